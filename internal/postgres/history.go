package postgres

import (
	"context"

	"github.com/ashgrove/millwork/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryStore implements domain.HistoryStore using PostgreSQL.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that HistoryStore implements domain.HistoryStore.
var _ domain.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates a new PostgreSQL-backed delivery history store.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

func (s *HistoryStore) AppendEntry(ctx context.Context, entry *domain.DeliveryHistoryEntry) error {
	const op = "history_store.append"

	_, err := s.pool.Exec(ctx, `
		INSERT INTO delivery_history (id, message_type, channel, recipient_name,
			recipient_phone, sent_at, delivery_status, message_content,
			provider_message_id, failure_detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.MessageType, entry.Channel, entry.RecipientName,
		entry.RecipientPhone, entry.SentAt, entry.Status, entry.MessageContent,
		entry.ProviderMessageID, entry.FailureDetail)
	if err != nil {
		return domain.Internal(err, op, "failed to insert history entry")
	}
	return nil
}

func (s *HistoryStore) ListEntries(ctx context.Context, messageType string, limit int32) ([]domain.DeliveryHistoryEntry, error) {
	const op = "history_store.list"

	query := `SELECT id, message_type, channel, recipient_name, recipient_phone,
			sent_at, delivery_status, message_content, provider_message_id, failure_detail
		FROM delivery_history`
	args := []any{}
	if messageType != "" {
		query += ` WHERE message_type = $1`
		args = append(args, messageType)
	}
	query += ` ORDER BY sent_at DESC`
	if messageType != "" {
		query += ` LIMIT $2`
	} else {
		query += ` LIMIT $1`
	}
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list history entries")
	}
	defer rows.Close()

	var entries []domain.DeliveryHistoryEntry
	for rows.Next() {
		var e domain.DeliveryHistoryEntry
		if err := rows.Scan(&e.ID, &e.MessageType, &e.Channel, &e.RecipientName,
			&e.RecipientPhone, &e.SentAt, &e.Status, &e.MessageContent,
			&e.ProviderMessageID, &e.FailureDetail); err != nil {
			return nil, domain.Internal(err, op, "failed to scan history row")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to iterate history rows")
	}
	return entries, nil
}

// MarkDelivered upgrades matching sent entries to delivered. Re-delivery
// callbacks for an already-delivered entry are a no-op, not an error.
func (s *HistoryStore) MarkDelivered(ctx context.Context, providerMessageID string) error {
	const op = "history_store.mark_delivered"

	tag, err := s.pool.Exec(ctx, `
		UPDATE delivery_history
		SET delivery_status = $2
		WHERE provider_message_id = $1 AND delivery_status IN ($2, $3)`,
		providerMessageID, domain.DeliveryStatusDelivered, domain.DeliveryStatusSent)
	if err != nil {
		return domain.Internal(err, op, "failed to mark entry delivered")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHistoryEntryNotFound
	}
	return nil
}
