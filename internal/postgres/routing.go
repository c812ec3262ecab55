package postgres

import (
	"context"
	"errors"

	"github.com/ashgrove/millwork/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoutingStore implements domain.RoutingStore using PostgreSQL.
type RoutingStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that RoutingStore implements domain.RoutingStore.
var _ domain.RoutingStore = (*RoutingStore)(nil)

// NewRoutingStore creates a new PostgreSQL-backed routing store.
func NewRoutingStore(pool *pgxpool.Pool) *RoutingStore {
	return &RoutingStore{pool: pool}
}

func (s *RoutingStore) GetSetting(ctx context.Context, messageType string) (*domain.RoutingSetting, error) {
	const op = "routing_store.get_setting"

	var setting domain.RoutingSetting
	err := s.pool.QueryRow(ctx, `
		SELECT message_type, is_enabled, routing_mode
		FROM routing_settings
		WHERE message_type = $1`, messageType).
		Scan(&setting.MessageType, &setting.Enabled, &setting.Mode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound(op, "routing setting", messageType)
		}
		return nil, domain.Internal(err, op, "failed to query routing setting")
	}
	return &setting, nil
}

func (s *RoutingStore) PutSetting(ctx context.Context, setting domain.RoutingSetting) error {
	const op = "routing_store.put_setting"

	_, err := s.pool.Exec(ctx, `
		INSERT INTO routing_settings (message_type, is_enabled, routing_mode)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_type) DO UPDATE
		SET is_enabled = EXCLUDED.is_enabled, routing_mode = EXCLUDED.routing_mode`,
		setting.MessageType, setting.Enabled, setting.Mode)
	if err != nil {
		return domain.Internal(err, op, "failed to upsert routing setting")
	}
	return nil
}

// GetCursor returns -1 when no cursor row exists, which callers treat as
// "start rotation from the beginning".
func (s *RoutingStore) GetCursor(ctx context.Context, messageType string) (int, error) {
	const op = "routing_store.get_cursor"

	var index int
	err := s.pool.QueryRow(ctx, `
		SELECT last_index FROM rotation_cursors WHERE message_type = $1`,
		messageType).Scan(&index)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return -1, nil
		}
		return -1, domain.Internal(err, op, "failed to query rotation cursor")
	}
	return index, nil
}

func (s *RoutingStore) SetCursor(ctx context.Context, messageType string, index int) error {
	const op = "routing_store.set_cursor"

	_, err := s.pool.Exec(ctx, `
		INSERT INTO rotation_cursors (message_type, last_index, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (message_type) DO UPDATE
		SET last_index = EXCLUDED.last_index, updated_at = now()`,
		messageType, index)
	if err != nil {
		return domain.Internal(err, op, "failed to upsert rotation cursor")
	}
	return nil
}
