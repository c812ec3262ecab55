package api

import (
	"log/slog"
	"net/http"

	"github.com/ashgrove/millwork/internal/domain"
)

// RoutingHandler manages routing settings and exposes a manual send for
// verifying a message type's configuration end to end.
type RoutingHandler struct {
	engine     domain.RoutingPolicyEngine
	dispatcher domain.Dispatcher
	logger     *slog.Logger
}

// NewRoutingHandler creates a new routing handler.
func NewRoutingHandler(engine domain.RoutingPolicyEngine, dispatcher domain.Dispatcher, logger *slog.Logger) *RoutingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoutingHandler{
		engine:     engine,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// GetSetting handles GET /api/routing/{messageType}
func (h *RoutingHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	messageType := r.PathValue("messageType")
	if messageType == "" {
		respondError(w, r, domain.ErrUnknownMessageType)
		return
	}

	setting, err := h.engine.GetSetting(r.Context(), messageType)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, setting)
}

type putSettingRequest struct {
	Enabled bool               `json:"is_enabled"`
	Mode    domain.RoutingMode `json:"routing_mode" validate:"required,oneof=single all rotation"`
}

// PutSetting handles PUT /api/routing/{messageType}
func (h *RoutingHandler) PutSetting(w http.ResponseWriter, r *http.Request) {
	messageType := r.PathValue("messageType")
	if messageType == "" {
		respondError(w, r, domain.ErrUnknownMessageType)
		return
	}

	var req putSettingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	setting := domain.RoutingSetting{
		MessageType: messageType,
		Enabled:     req.Enabled,
		Mode:        req.Mode,
	}
	if err := h.engine.PutSetting(r.Context(), setting); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, setting)
}

type notifyRequest struct {
	MessageType string         `json:"message_type" validate:"required"`
	Channel     domain.Channel `json:"channel" validate:"required,oneof=sms email"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body" validate:"required"`
}

// Notify handles POST /api/notifications/send
//
// Used for operational messages that are not tied to an invoice (job status
// changes, schedule reminders) and for verifying routing configuration.
func (h *RoutingHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), req.MessageType, domain.OutboundMessage{
		Channel: req.Channel,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
