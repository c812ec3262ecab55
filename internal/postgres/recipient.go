package postgres

import (
	"context"
	"errors"

	"github.com/ashgrove/millwork/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecipientStore implements domain.RecipientStore using PostgreSQL.
type RecipientStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that RecipientStore implements domain.RecipientStore.
var _ domain.RecipientStore = (*RecipientStore)(nil)

// NewRecipientStore creates a new PostgreSQL-backed recipient store.
func NewRecipientStore(pool *pgxpool.Pool) *RecipientStore {
	return &RecipientStore{pool: pool}
}

const recipientColumns = `id, message_type, employee_id, name, phone_number,
	email, priority_order, is_active, created_at`

func (s *RecipientStore) ListRecipients(ctx context.Context, messageType string) ([]domain.Recipient, error) {
	const op = "recipient_store.list"

	rows, err := s.pool.Query(ctx, `
		SELECT `+recipientColumns+`
		FROM notification_recipients
		WHERE message_type = $1
		ORDER BY priority_order, created_at`, messageType)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list recipients")
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		r, err := scanRecipient(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan recipient row")
		}
		recipients = append(recipients, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to iterate recipient rows")
	}
	return recipients, nil
}

func (s *RecipientStore) GetRecipient(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	const op = "recipient_store.get"

	row := s.pool.QueryRow(ctx, `
		SELECT `+recipientColumns+`
		FROM notification_recipients
		WHERE id = $1`, id)

	r, err := scanRecipient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecipientNotFound
		}
		return nil, domain.Internal(err, op, "failed to query recipient")
	}
	return r, nil
}

func (s *RecipientStore) CreateRecipient(ctx context.Context, r *domain.Recipient) error {
	const op = "recipient_store.create"

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_recipients (id, message_type, employee_id, name,
			phone_number, email, priority_order, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.MessageType, r.EmployeeID, r.Name, r.PhoneNumber, r.Email,
		r.PriorityOrder, r.Active, r.CreatedAt)
	if err != nil {
		return domain.Internal(err, op, "failed to insert recipient")
	}
	return nil
}

func (s *RecipientStore) UpdateRecipient(ctx context.Context, r *domain.Recipient) error {
	const op = "recipient_store.update"

	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_recipients
		SET name = $2, phone_number = $3, email = $4, priority_order = $5, is_active = $6
		WHERE id = $1`,
		r.ID, r.Name, r.PhoneNumber, r.Email, r.PriorityOrder, r.Active)
	if err != nil {
		return domain.Internal(err, op, "failed to update recipient")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecipientNotFound
	}
	return nil
}

func (s *RecipientStore) DeleteRecipient(ctx context.Context, id uuid.UUID) error {
	const op = "recipient_store.delete"

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notification_recipients WHERE id = $1`, id)
	if err != nil {
		return domain.Internal(err, op, "failed to delete recipient")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecipientNotFound
	}
	return nil
}

func scanRecipient(row pgx.Row) (*domain.Recipient, error) {
	var r domain.Recipient
	err := row.Scan(&r.ID, &r.MessageType, &r.EmployeeID, &r.Name, &r.PhoneNumber,
		&r.Email, &r.PriorityOrder, &r.Active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
