// Package postgres implements the domain store interfaces on PostgreSQL
// using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashgrove/millwork/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InvoiceStore implements domain.InvoiceStore using PostgreSQL.
type InvoiceStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that InvoiceStore implements domain.InvoiceStore.
var _ domain.InvoiceStore = (*InvoiceStore)(nil)

// NewInvoiceStore creates a new PostgreSQL-backed invoice store.
func NewInvoiceStore(pool *pgxpool.Pool) *InvoiceStore {
	return &InvoiceStore{pool: pool}
}

const invoiceColumns = `id, invoice_number, client_id, invoice_date, due_date,
	tax_rate::text, discount_cents, markup_cents, subtotal_cents, tax_cents,
	total_cents, paid_cents, status, client_notes, admin_notes, created_at, updated_at`

func (s *InvoiceStore) CreateInvoice(ctx context.Context, inv *domain.Invoice) error {
	const op = "invoice_store.create"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO invoices (id, invoice_number, client_id, invoice_date, due_date,
			tax_rate, discount_cents, markup_cents, subtotal_cents, tax_cents,
			total_cents, paid_cents, status, client_notes, admin_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		inv.ID, inv.InvoiceNumber, inv.ClientID, inv.InvoiceDate, inv.DueDate,
		inv.TaxRate.String(), inv.DiscountCents, inv.MarkupCents, inv.SubtotalCents,
		inv.TaxCents, inv.TotalCents, inv.PaidCents, inv.Status, inv.ClientNotes,
		inv.AdminNotes, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return domain.Internal(err, op, "failed to insert invoice")
	}

	if err := insertLineItems(ctx, tx, inv.ID, inv.LineItems); err != nil {
		return domain.Internal(err, op, "failed to insert line items")
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Internal(err, op, "failed to commit transaction")
	}
	return nil
}

func (s *InvoiceStore) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	const op = "invoice_store.get"

	row := s.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, domain.Internal(err, op, "failed to query invoice")
	}

	items, err := s.loadLineItems(ctx, inv.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load line items")
	}
	inv.LineItems = items
	return inv, nil
}

func (s *InvoiceStore) ListInvoices(ctx context.Context, limit, offset int32) ([]domain.InvoiceSummary, error) {
	const op = "invoice_store.list"

	rows, err := s.pool.Query(ctx, `
		SELECT id, invoice_number, client_id, status, total_cents, paid_cents,
			due_date, created_at
		FROM invoices
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list invoices")
	}
	defer rows.Close()

	var summaries []domain.InvoiceSummary
	for rows.Next() {
		var sum domain.InvoiceSummary
		if err := rows.Scan(&sum.ID, &sum.InvoiceNumber, &sum.ClientID,
			&sum.Status, &sum.TotalCents, &sum.PaidCents, &sum.DueDate,
			&sum.CreatedAt); err != nil {
			return nil, domain.Internal(err, op, "failed to scan invoice row")
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to iterate invoice rows")
	}
	return summaries, nil
}

// SaveInvoice persists the full aggregate. Line items are replaced wholesale
// so positions stay dense after inserts and removals.
func (s *InvoiceStore) SaveInvoice(ctx context.Context, inv *domain.Invoice) error {
	const op = "invoice_store.save"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE invoices SET invoice_number = $2, client_id = $3, invoice_date = $4,
			due_date = $5, tax_rate = $6, discount_cents = $7, markup_cents = $8,
			subtotal_cents = $9, tax_cents = $10, total_cents = $11, paid_cents = $12,
			status = $13, client_notes = $14, admin_notes = $15, updated_at = $16
		WHERE id = $1`,
		inv.ID, inv.InvoiceNumber, inv.ClientID, inv.InvoiceDate, inv.DueDate,
		inv.TaxRate.String(), inv.DiscountCents, inv.MarkupCents, inv.SubtotalCents,
		inv.TaxCents, inv.TotalCents, inv.PaidCents, inv.Status, inv.ClientNotes,
		inv.AdminNotes, inv.UpdatedAt)
	if err != nil {
		return domain.Internal(err, op, "failed to update invoice")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM invoice_line_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return domain.Internal(err, op, "failed to clear line items")
	}
	if err := insertLineItems(ctx, tx, inv.ID, inv.LineItems); err != nil {
		return domain.Internal(err, op, "failed to insert line items")
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Internal(err, op, "failed to commit transaction")
	}
	return nil
}

func (s *InvoiceStore) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	const op = "invoice_store.delete"

	tag, err := s.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return domain.Internal(err, op, "failed to delete invoice")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

// NextInvoiceSequence returns the next per-year invoice sequence number. The
// upsert keeps concurrent callers from ever seeing the same value.
func (s *InvoiceStore) NextInvoiceSequence(ctx context.Context, year int) (int, error) {
	const op = "invoice_store.next_sequence"

	var next int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO invoice_number_sequences (year, last_value)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = invoice_number_sequences.last_value + 1
		RETURNING last_value`, year).Scan(&next)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to advance invoice sequence")
	}
	return next, nil
}

func (s *InvoiceStore) loadLineItems(ctx context.Context, invoiceID uuid.UUID) ([]domain.LineItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, description, quantity::text, unit_price_cents, item_type, total_price_cents
		FROM invoice_line_items
		WHERE invoice_id = $1
		ORDER BY position`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var (
			item domain.LineItem
			qty  string
		)
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &qty,
			&item.UnitPriceCents, &item.ItemType, &item.TotalPriceCents); err != nil {
			return nil, err
		}
		item.Quantity, err = decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q: %w", qty, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func insertLineItems(ctx context.Context, tx pgx.Tx, invoiceID uuid.UUID, items []domain.LineItem) error {
	for i, item := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO invoice_line_items (id, invoice_id, position, title, description,
				quantity, unit_price_cents, item_type, total_price_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, invoiceID, i, item.Title, item.Description,
			item.Quantity.String(), item.UnitPriceCents, item.ItemType, item.TotalPriceCents)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var (
		inv     domain.Invoice
		taxRate string
	)
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.ClientID, &inv.InvoiceDate,
		&inv.DueDate, &taxRate, &inv.DiscountCents, &inv.MarkupCents,
		&inv.SubtotalCents, &inv.TaxCents, &inv.TotalCents, &inv.PaidCents,
		&inv.Status, &inv.ClientNotes, &inv.AdminNotes, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.TaxRate, err = decimal.NewFromString(taxRate)
	if err != nil {
		return nil, fmt.Errorf("invalid tax rate %q: %w", taxRate, err)
	}
	return &inv, nil
}
