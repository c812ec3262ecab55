package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ashgrove/millwork/internal/billing"
	"github.com/ashgrove/millwork/internal/domain"
	"github.com/ashgrove/millwork/internal/telemetry"
)

// defaultPaymentTermDays is applied when a new invoice has no due date.
const defaultPaymentTermDays = 30

type invoiceService struct {
	store  domain.InvoiceStore
	locks  *keyedMutex
	logger *slog.Logger
	now    func() time.Time
}

// Compile-time check that invoiceService implements domain.InvoiceService.
var _ domain.InvoiceService = (*invoiceService)(nil)

// NewInvoiceService creates the billing aggregate service. All mutations
// of a given invoice are serialized on a per-invoice lock so a totals
// recompute never observes line items mid-edit.
func NewInvoiceService(store domain.InvoiceStore, logger *slog.Logger) domain.InvoiceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceService{
		store:  store,
		locks:  newKeyedMutex(),
		logger: logger,
		now:    time.Now,
	}
}

// CreateInvoice creates a new draft invoice with no line items.
func (s *invoiceService) CreateInvoice(ctx context.Context, params domain.CreateInvoiceParams) (*domain.Invoice, error) {
	const op = "invoice.create"

	if params.ClientID == uuid.Nil {
		return nil, domain.NewValidationError(op, "client_id", "client is required")
	}

	invoiceDate := params.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = s.now()
	}
	dueDate := params.DueDate
	if dueDate.IsZero() {
		dueDate = invoiceDate.AddDate(0, 0, defaultPaymentTermDays)
	}
	if dueDate.Before(invoiceDate) {
		return nil, domain.NewValidationError(op, "due_date", "due date must not precede the invoice date")
	}

	seq, err := s.store.NextInvoiceSequence(ctx, invoiceDate.Year())
	if err != nil {
		return nil, domain.WrapError(err, domain.ErrorCode(err), op, "failed to allocate invoice number")
	}

	inv := &domain.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: fmt.Sprintf("INV-%d-%04d", invoiceDate.Year(), seq),
		ClientID:      params.ClientID,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		LineItems:     []domain.LineItem{},
		TaxRate:       decimal.Zero,
		Status:        domain.InvoiceStatusDraft,
		ClientNotes:   params.ClientNotes,
		AdminNotes:    params.AdminNotes,
		CreatedAt:     s.now(),
		UpdatedAt:     s.now(),
	}

	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		return nil, domain.WrapError(err, domain.ErrorCode(err), op, "failed to create invoice")
	}

	s.logger.Info("invoice created",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"client_id", inv.ClientID,
	)

	return inv, nil
}

// GetInvoice retrieves an invoice with its line items (admin view).
func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	return s.store.GetInvoice(ctx, invoiceID)
}

// GetClientInvoice retrieves the customer-facing projection. Admin notes
// never cross this boundary.
func (s *invoiceService) GetClientInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.ClientInvoice, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	view := inv.ClientView()
	return &view, nil
}

// ListInvoices lists invoices most-recent-first.
func (s *invoiceService) ListInvoices(ctx context.Context, limit, offset int32) ([]domain.InvoiceSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListInvoices(ctx, limit, offset)
}

// AddLineItem appends a line item and recomputes totals.
func (s *invoiceService) AddLineItem(ctx context.Context, invoiceID uuid.UUID, item domain.LineItem) (*domain.Invoice, error) {
	const op = "invoice.add_line_item"

	if strings.TrimSpace(item.Title) == "" {
		return nil, domain.NewValidationError(op, "title", "title is required")
	}
	if item.Quantity.IsNegative() {
		return nil, domain.NewValidationError(op, "quantity", "quantity must not be negative")
	}
	if !quantityScaleOK(item.Quantity) {
		return nil, domain.NewValidationError(op, "quantity", "quantity supports at most three decimal places")
	}
	if item.UnitPriceCents < 0 {
		return nil, domain.NewValidationError(op, "unit_price", "unit price must not be negative")
	}

	return s.mutate(ctx, op, invoiceID, func(inv *domain.Invoice) error {
		if inv.Status != domain.InvoiceStatusDraft {
			return domain.ErrInvoiceNotDraft
		}
		item.ID = uuid.New()
		item.TotalPriceCents = billing.LineItemTotal(item.Quantity, item.UnitPriceCents)
		inv.LineItems = append(inv.LineItems, item)
		return nil
	}, true)
}

// UpdateLineItem edits one field of the line item at index. Quantity and
// unit price edits settle the item's total price before the invoice-level
// recompute; other fields change nothing money-related.
func (s *invoiceService) UpdateLineItem(ctx context.Context, invoiceID uuid.UUID, index int, params domain.UpdateLineItemParams) (*domain.Invoice, error) {
	const op = "invoice.update_line_item"

	if params.Quantity != nil && params.Quantity.IsNegative() {
		return nil, domain.NewValidationError(op, "quantity", "quantity must not be negative")
	}
	if params.Quantity != nil && !quantityScaleOK(*params.Quantity) {
		return nil, domain.NewValidationError(op, "quantity", "quantity supports at most three decimal places")
	}
	if params.UnitPrice != nil && *params.UnitPrice < 0 {
		return nil, domain.NewValidationError(op, "unit_price", "unit price must not be negative")
	}

	moneyEdit := params.Quantity != nil || params.UnitPrice != nil

	return s.mutate(ctx, op, invoiceID, func(inv *domain.Invoice) error {
		if inv.Status != domain.InvoiceStatusDraft {
			return domain.ErrInvoiceNotDraft
		}
		if index < 0 || index >= len(inv.LineItems) {
			return domain.ErrLineItemNotFound
		}

		item := &inv.LineItems[index]
		if params.Title != nil {
			if strings.TrimSpace(*params.Title) == "" {
				return domain.NewValidationError(op, "title", "title is required")
			}
			item.Title = *params.Title
		}
		if params.Description != nil {
			item.Description = *params.Description
		}
		if params.ItemType != nil {
			item.ItemType = *params.ItemType
		}
		if params.Quantity != nil {
			item.Quantity = *params.Quantity
		}
		if params.UnitPrice != nil {
			item.UnitPriceCents = *params.UnitPrice
		}
		if moneyEdit {
			item.TotalPriceCents = billing.LineItemTotal(item.Quantity, item.UnitPriceCents)
		}
		return nil
	}, moneyEdit)
}

// RemoveLineItem removes the line item at index and recomputes totals.
// An out-of-range index is a no-op so racing UI deletes don't error.
func (s *invoiceService) RemoveLineItem(ctx context.Context, invoiceID uuid.UUID, index int) (*domain.Invoice, error) {
	const op = "invoice.remove_line_item"

	return s.mutate(ctx, op, invoiceID, func(inv *domain.Invoice) error {
		if inv.Status != domain.InvoiceStatusDraft {
			return domain.ErrInvoiceNotDraft
		}
		if index < 0 || index >= len(inv.LineItems) {
			return nil
		}
		inv.LineItems = append(inv.LineItems[:index], inv.LineItems[index+1:]...)
		return nil
	}, true)
}

// SetTaxRate sets the tax fraction and recomputes totals.
func (s *invoiceService) SetTaxRate(ctx context.Context, invoiceID uuid.UUID, rate decimal.Decimal) (*domain.Invoice, error) {
	const op = "invoice.set_tax_rate"

	if rate.IsNegative() {
		return nil, domain.NewValidationError(op, "tax_rate", "tax rate must not be negative")
	}
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, domain.NewValidationError(op, "tax_rate", "tax rate is a fraction between 0 and 1")
	}

	return s.mutate(ctx, op, invoiceID, func(inv *domain.Invoice) error {
		if inv.Status != domain.InvoiceStatusDraft {
			return domain.ErrInvoiceNotDraft
		}
		inv.TaxRate = rate
		return nil
	}, true)
}

// SetDiscount sets the flat discount and recomputes totals.
func (s *invoiceService) SetDiscount(ctx context.Context, invoiceID uuid.UUID, cents int64) (*domain.Invoice, error) {
	const op = "invoice.set_discount"

	if cents < 0 {
		return nil, domain.NewValidationError(op, "discount", "discount must not be negative")
	}

	return s.mutate(ctx, op, invoiceID, func(inv *domain.Invoice) error {
		if inv.Status != domain.InvoiceStatusDraft {
			return domain.ErrInvoiceNotDraft
		}
		inv.DiscountCents = cents
		return nil
	}, true)
}

// SetMarkup sets the flat markup and recomputes totals.
func (s *invoiceService) SetMarkup(ctx context.Context, invoiceID uuid.UUID, cents int64) (*domain.Invoice, error) {
	const op = "invoice.set_markup"

	if cents < 0 {
		return nil, domain.NewValidationError(op, "markup", "markup must not be negative")
	}

	return s.mutate(ctx, op, invoiceID, func(inv *domain.Invoice) error {
		if inv.Status != domain.InvoiceStatusDraft {
			return domain.ErrInvoiceNotDraft
		}
		inv.MarkupCents = cents
		return nil
	}, true)
}

// MarkSent transitions draft -> sent. Only the dispatch path calls this;
// an invoice already sent stays sent (re-sending is allowed), but partial
// and paid invoices never move backward.
func (s *invoiceService) MarkSent(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	const op = "invoice.mark_sent"

	return s.mutate(ctx, op, invoiceID, func(inv *domain.Invoice) error {
		switch inv.Status {
		case domain.InvoiceStatusDraft:
			inv.Status = domain.InvoiceStatusSent
			return nil
		case domain.InvoiceStatusSent:
			return nil
		default:
			return domain.ErrInvalidTransition
		}
	}, false)
}

// RecordPayment applies a payment from the external payment collaborator
// and drives the monotonic sent -> partial -> paid transitions.
func (s *invoiceService) RecordPayment(ctx context.Context, invoiceID uuid.UUID, amountCents int64) (*domain.Invoice, error) {
	const op = "invoice.record_payment"

	if amountCents <= 0 {
		return nil, domain.NewValidationError(op, "amount", "payment amount must be positive")
	}

	return s.mutate(ctx, op, invoiceID, func(inv *domain.Invoice) error {
		if inv.Status != domain.InvoiceStatusSent && inv.Status != domain.InvoiceStatusPartial {
			return domain.ErrInvalidTransition
		}
		if amountCents > inv.BalanceCents() {
			return domain.ErrPaymentExceedsTotal
		}

		inv.PaidCents += amountCents
		if inv.BalanceCents() == 0 {
			inv.Status = domain.InvoiceStatusPaid
		} else {
			inv.Status = domain.InvoiceStatusPartial
		}
		return nil
	}, false)
}

// DeleteInvoice removes an invoice permanently.
func (s *invoiceService) DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	const op = "invoice.delete"

	unlock := s.locks.Lock(invoiceID.String())
	defer unlock()

	if err := s.store.DeleteInvoice(ctx, invoiceID); err != nil {
		return domain.WrapError(err, domain.ErrorCode(err), op, "failed to delete invoice")
	}

	s.logger.Info("invoice deleted", "invoice_id", invoiceID)
	return nil
}

// mutate loads the invoice under its lock, applies fn, optionally
// recomputes totals, and persists row plus line items atomically. Any
// error from fn leaves stored state untouched.
func (s *invoiceService) mutate(ctx context.Context, op string, invoiceID uuid.UUID, fn func(*domain.Invoice) error, recompute bool) (*domain.Invoice, error) {
	unlock := s.locks.Lock(invoiceID.String())
	defer unlock()

	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := fn(inv); err != nil {
		return nil, err
	}

	if recompute {
		totals := billing.ComputeTotals(inv.LineItems, inv.TaxRate, inv.DiscountCents, inv.MarkupCents)
		inv.SubtotalCents = totals.SubtotalCents
		inv.TaxCents = totals.TaxCents
		inv.TotalCents = totals.TotalCents
		telemetry.InvoiceRecomputes.WithLabelValues(op).Inc()
	}
	inv.UpdatedAt = s.now()

	if err := s.store.SaveInvoice(ctx, inv); err != nil {
		return nil, domain.WrapError(err, domain.ErrorCode(err), op, "failed to save invoice")
	}

	return inv, nil
}

// quantityScaleOK reports whether a quantity fits the stored precision of
// three decimal places. Anything finer would round silently on save and
// break the quantity * unit-price derivation on reload.
func quantityScaleOK(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(3))
}
