package api

import (
	"log/slog"
	"net/http"

	"github.com/ashgrove/millwork/internal/domain"
)

// HistoryHandler exposes the delivery audit log and the provider delivery
// callback.
type HistoryHandler struct {
	history domain.DeliveryHistory
	logger  *slog.Logger
}

// NewHistoryHandler creates a new delivery history handler.
func NewHistoryHandler(history domain.DeliveryHistory, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// List handles GET /api/history?message_type=...&limit=...
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	messageType := r.URL.Query().Get("message_type")
	limit := queryInt32(r, "limit", 0)

	entries, err := h.history.Query(r.Context(), messageType, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.DeliveryHistoryEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type deliveryCallbackRequest struct {
	ProviderMessageID string `json:"provider_message_id" validate:"required"`
	Status            string `json:"status" validate:"required"`
}

// DeliveryCallback handles POST /api/history/delivery-callback
//
// The SMS gateway posts here when a message reaches the handset. Only a
// "delivered" status upgrades the entry; anything else is acknowledged and
// ignored so the provider stops retrying.
func (h *HistoryHandler) DeliveryCallback(w http.ResponseWriter, r *http.Request) {
	var req deliveryCallbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if req.Status != string(domain.DeliveryStatusDelivered) {
		h.logger.Debug("ignoring delivery callback",
			"provider_message_id", req.ProviderMessageID,
			"status", req.Status)
		respondJSON(w, http.StatusOK, map[string]string{"result": "ignored"})
		return
	}

	if err := h.history.MarkDelivered(r.Context(), req.ProviderMessageID); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"result": "updated"})
}
