package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashgrove/millwork/internal/domain"
)

type recipientDirectory struct {
	store   domain.RecipientStore
	routing domain.RoutingStore
	logger  *slog.Logger
	now     func() time.Time
}

var _ domain.RecipientDirectory = (*recipientDirectory)(nil)

// NewRecipientDirectory creates the recipient roster service. Structural
// changes to a message type's active set reset that type's rotation
// cursor so the next rotation cycle restarts instead of skipping or
// double-hitting a shifted recipient.
func NewRecipientDirectory(store domain.RecipientStore, routing domain.RoutingStore, logger *slog.Logger) domain.RecipientDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &recipientDirectory{
		store:   store,
		routing: routing,
		logger:  logger,
		now:     time.Now,
	}
}

// ListActive returns active recipients in priority order, insertion-order
// ties preserved by the store's ordering.
func (d *recipientDirectory) ListActive(ctx context.Context, messageType string) ([]domain.Recipient, error) {
	all, err := d.store.ListRecipients(ctx, messageType)
	if err != nil {
		return nil, err
	}

	active := make([]domain.Recipient, 0, len(all))
	for _, r := range all {
		if r.Active {
			active = append(active, r)
		}
	}
	return active, nil
}

// ListAll returns every recipient for a message type, active or not.
func (d *recipientDirectory) ListAll(ctx context.Context, messageType string) ([]domain.Recipient, error) {
	return d.store.ListRecipients(ctx, messageType)
}

// AddRecipient validates and stores a new recipient. Duplicate priority
// values are allowed; the newer entry sorts after the existing one.
func (d *recipientDirectory) AddRecipient(ctx context.Context, r domain.Recipient) (*domain.Recipient, error) {
	const op = "recipients.add"

	if err := validateRecipient(op, r); err != nil {
		return nil, err
	}

	r.ID = uuid.New()
	r.CreatedAt = d.now()

	if err := d.store.CreateRecipient(ctx, &r); err != nil {
		return nil, domain.WrapError(err, domain.ErrorCode(err), op, "failed to create recipient")
	}

	if r.Active {
		d.resetCursor(ctx, r.MessageType)
	}

	d.logger.Info("recipient added",
		"recipient_id", r.ID,
		"message_type", r.MessageType,
		"priority", r.PriorityOrder,
		"active", r.Active,
	)

	return &r, nil
}

// UpdateRecipient applies a partial edit. The cursor resets when the edit
// touches the active set: an active flag flip, or a priority change while
// active.
func (d *recipientDirectory) UpdateRecipient(ctx context.Context, id uuid.UUID, params domain.UpdateRecipientParams) (*domain.Recipient, error) {
	const op = "recipients.update"

	r, err := d.store.GetRecipient(ctx, id)
	if err != nil {
		return nil, err
	}

	wasActive := r.Active
	oldPriority := r.PriorityOrder

	if params.Name != nil {
		r.Name = *params.Name
	}
	if params.PhoneNumber != nil {
		r.PhoneNumber = *params.PhoneNumber
	}
	if params.Email != nil {
		r.Email = *params.Email
	}
	if params.PriorityOrder != nil {
		r.PriorityOrder = *params.PriorityOrder
	}
	if params.Active != nil {
		r.Active = *params.Active
	}

	if err := validateRecipient(op, *r); err != nil {
		return nil, err
	}

	if err := d.store.UpdateRecipient(ctx, r); err != nil {
		return nil, domain.WrapError(err, domain.ErrorCode(err), op, "failed to update recipient")
	}

	activeFlipped := wasActive != r.Active
	reordered := r.Active && r.PriorityOrder != oldPriority
	if activeFlipped || reordered {
		d.resetCursor(ctx, r.MessageType)
	}

	return r, nil
}

// RemoveRecipient deletes a recipient, resetting the cursor if the
// recipient was part of the active set.
func (d *recipientDirectory) RemoveRecipient(ctx context.Context, id uuid.UUID) error {
	const op = "recipients.remove"

	r, err := d.store.GetRecipient(ctx, id)
	if err != nil {
		return err
	}

	if err := d.store.DeleteRecipient(ctx, id); err != nil {
		return domain.WrapError(err, domain.ErrorCode(err), op, "failed to delete recipient")
	}

	if r.Active {
		d.resetCursor(ctx, r.MessageType)
	}

	d.logger.Info("recipient removed", "recipient_id", id, "message_type", r.MessageType)
	return nil
}

// resetCursor is best-effort: a failed reset is logged, not surfaced, so
// roster edits don't fail on cursor bookkeeping. The worst case is one
// uneven rotation cycle.
func (d *recipientDirectory) resetCursor(ctx context.Context, messageType string) {
	if err := d.routing.SetCursor(ctx, messageType, -1); err != nil {
		d.logger.Error("failed to reset rotation cursor",
			"message_type", messageType,
			"error", err,
		)
	}
}

func validateRecipient(op string, r domain.Recipient) error {
	if strings.TrimSpace(r.MessageType) == "" {
		return domain.NewValidationError(op, "message_type", "message type is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return domain.NewValidationError(op, "name", "name is required")
	}
	if strings.TrimSpace(r.PhoneNumber) == "" && strings.TrimSpace(r.Email) == "" {
		return domain.NewValidationError(op, "phone_number", "a phone number or email is required")
	}
	if r.PriorityOrder < 1 {
		return domain.NewValidationError(op, "priority_order", "priority order must be at least 1")
	}
	return nil
}
