package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ashgrove/millwork/internal/domain"
	"github.com/google/uuid"
)

// RecipientHandler manages the per-message-type notification rosters.
type RecipientHandler struct {
	directory domain.RecipientDirectory
	logger    *slog.Logger
}

// NewRecipientHandler creates a new recipient handler.
func NewRecipientHandler(directory domain.RecipientDirectory, logger *slog.Logger) *RecipientHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecipientHandler{
		directory: directory,
		logger:    logger,
	}
}

type createRecipientRequest struct {
	MessageType   string     `json:"message_type" validate:"required"`
	EmployeeID    *uuid.UUID `json:"employee_id"`
	Name          string     `json:"name" validate:"required"`
	PhoneNumber   string     `json:"phone_number" validate:"omitempty,min=7"`
	Email         string     `json:"email" validate:"omitempty,email"`
	PriorityOrder int        `json:"priority_order" validate:"omitempty,min=1"`
	Active        *bool      `json:"is_active"`
}

// Create handles POST /api/recipients
func (h *RecipientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRecipientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	priority := req.PriorityOrder
	if priority == 0 {
		priority = 1
	}

	created, err := h.directory.AddRecipient(r.Context(), domain.Recipient{
		MessageType:   req.MessageType,
		EmployeeID:    req.EmployeeID,
		Name:          req.Name,
		PhoneNumber:   req.PhoneNumber,
		Email:         req.Email,
		PriorityOrder: priority,
		Active:        active,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// List handles GET /api/recipients?message_type=...&active=true
func (h *RecipientHandler) List(w http.ResponseWriter, r *http.Request) {
	messageType := r.URL.Query().Get("message_type")
	if messageType == "" {
		respondError(w, r, domain.ErrUnknownMessageType)
		return
	}

	var (
		recipients []domain.Recipient
		err        error
	)
	if r.URL.Query().Get("active") == "true" {
		recipients, err = h.directory.ListActive(r.Context(), messageType)
	} else {
		recipients, err = h.directory.ListAll(r.Context(), messageType)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	if recipients == nil {
		recipients = []domain.Recipient{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"recipients": recipients})
}

type updateRecipientRequest struct {
	Name          *string `json:"name"`
	PhoneNumber   *string `json:"phone_number"`
	Email         *string `json:"email"`
	PriorityOrder *int    `json:"priority_order" validate:"omitempty,min=1"`
	Active        *bool   `json:"is_active"`
}

// Update handles PATCH /api/recipients/{id}
func (h *RecipientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req updateRecipientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	updated, err := h.directory.UpdateRecipient(r.Context(), id, domain.UpdateRecipientParams{
		Name:          req.Name,
		PhoneNumber:   req.PhoneNumber,
		Email:         req.Email,
		PriorityOrder: req.PriorityOrder,
		Active:        req.Active,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/recipients/{id}
func (h *RecipientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.directory.RemoveRecipient(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
