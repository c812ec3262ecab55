package service

import (
	"context"
	"log/slog"

	"github.com/ashgrove/millwork/internal/domain"
)

// defaultHistoryPageSize caps history queries without an explicit limit.
const defaultHistoryPageSize = 100

type deliveryHistory struct {
	store  domain.HistoryStore
	logger *slog.Logger
}

var _ domain.DeliveryHistory = (*deliveryHistory)(nil)

// NewDeliveryHistory creates the append-only delivery audit log service.
func NewDeliveryHistory(store domain.HistoryStore, logger *slog.Logger) domain.DeliveryHistory {
	if logger == nil {
		logger = slog.Default()
	}
	return &deliveryHistory{store: store, logger: logger}
}

// Record appends an entry. Storage failures propagate; retry policy
// belongs to the caller.
func (h *deliveryHistory) Record(ctx context.Context, entry *domain.DeliveryHistoryEntry) error {
	const op = "history.record"

	if err := h.store.AppendEntry(ctx, entry); err != nil {
		return domain.WrapError(err, domain.ErrorCode(err), op, "failed to append delivery history entry")
	}
	return nil
}

// Query returns entries most-recent-first, optionally filtered by message
// type.
func (h *deliveryHistory) Query(ctx context.Context, messageType string, limit int32) ([]domain.DeliveryHistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryPageSize
	}
	return h.store.ListEntries(ctx, messageType, limit)
}

// MarkDelivered upgrades a sent entry to delivered on the provider's
// asynchronous callback. Best-effort and idempotent.
func (h *deliveryHistory) MarkDelivered(ctx context.Context, providerMessageID string) error {
	const op = "history.mark_delivered"

	if providerMessageID == "" {
		return domain.NewValidationError(op, "provider_message_id", "provider message id is required")
	}

	if err := h.store.MarkDelivered(ctx, providerMessageID); err != nil {
		return err
	}

	h.logger.Debug("delivery confirmed", "provider_message_id", providerMessageID)
	return nil
}
