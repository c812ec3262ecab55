package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice-related domain errors.
var (
	ErrInvoiceNotFound     = &Error{Code: ENOTFOUND, Message: "Invoice not found"}
	ErrInvalidTransition   = &Error{Code: ECONFLICT, Message: "Invalid invoice status transition"}
	ErrInvoiceNotDraft     = &Error{Code: ECONFLICT, Message: "Invoice can only be edited while in draft status"}
	ErrPaymentExceedsTotal = &Error{Code: EINVALID, Message: "Payment amount exceeds outstanding balance"}
	ErrLineItemNotFound    = &Error{Code: ENOTFOUND, Message: "Line item not found"}
	ErrInvoiceDeleted      = &Error{Code: ENOTFOUND, Message: "Invoice has been deleted"}
	ErrNumberGeneration    = &Error{Code: EINTERNAL, Message: "Failed to generate invoice number"}
)

// InvoiceStatus is the lifecycle state of an invoice.
//
// Transitions are monotonic: draft -> sent (explicit dispatch only),
// sent -> partial (partial payment), sent|partial -> paid (full payment).
// No transition ever moves backward from partial or paid.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// IsValid reports whether s is a known invoice status.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartial, InvoiceStatusPaid:
		return true
	}
	return false
}

// LineItemType labels a billable row. Values come from the admin UI.
type LineItemType string

const (
	LineItemTypeMaterial LineItemType = "material"
	LineItemTypeLabor    LineItemType = "labor"
	LineItemTypeCustom   LineItemType = "custom"
)

// LineItem is one billable row on an invoice.
//
// TotalPriceCents is derived: it always equals Quantity * UnitPriceCents
// rounded half-up to whole cents. Edits to Title, Description or ItemType
// do not change it; edits to Quantity or UnitPriceCents recompute it.
type LineItem struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPriceCents  int64           `json:"unit_price_cents"`
	ItemType        LineItemType    `json:"item_type"`
	TotalPriceCents int64           `json:"total_price_cents"`
}

// Invoice is the billing aggregate root.
//
// SubtotalCents, TaxCents and TotalCents are derived from the line items,
// tax rate, discount and markup; they are recomputed and stored together
// whenever any of those inputs change and are never left stale.
type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	DueDate       time.Time       `json:"due_date"`
	LineItems     []LineItem      `json:"line_items"`
	TaxRate       decimal.Decimal `json:"tax_rate"` // fraction in [0, 1]
	DiscountCents int64           `json:"discount_cents"`
	MarkupCents   int64           `json:"markup_cents"`
	SubtotalCents int64           `json:"subtotal_cents"`
	TaxCents      int64           `json:"tax_cents"`
	TotalCents    int64           `json:"total_cents"`
	PaidCents     int64           `json:"paid_cents"`
	Status        InvoiceStatus   `json:"status"`
	ClientNotes   string          `json:"client_notes"`

	// AdminNotes is internal-only. It must never appear on a client-facing
	// read path; use ClientView for anything a customer can see.
	AdminNotes string `json:"admin_notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BalanceCents is the outstanding amount on the invoice.
func (inv *Invoice) BalanceCents() int64 {
	return inv.TotalCents - inv.PaidCents
}

// ClientInvoice is the customer-facing projection of an invoice.
// It deliberately has no admin notes field.
type ClientInvoice struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	DueDate       time.Time       `json:"due_date"`
	LineItems     []LineItem      `json:"line_items"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	DiscountCents int64           `json:"discount_cents"`
	MarkupCents   int64           `json:"markup_cents"`
	SubtotalCents int64           `json:"subtotal_cents"`
	TaxCents      int64           `json:"tax_cents"`
	TotalCents    int64           `json:"total_cents"`
	PaidCents     int64           `json:"paid_cents"`
	Status        InvoiceStatus   `json:"status"`
	ClientNotes   string          `json:"client_notes"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ClientView returns the customer-facing projection of the invoice.
func (inv *Invoice) ClientView() ClientInvoice {
	return ClientInvoice{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
		InvoiceDate:   inv.InvoiceDate,
		DueDate:       inv.DueDate,
		LineItems:     inv.LineItems,
		TaxRate:       inv.TaxRate,
		DiscountCents: inv.DiscountCents,
		MarkupCents:   inv.MarkupCents,
		SubtotalCents: inv.SubtotalCents,
		TaxCents:      inv.TaxCents,
		TotalCents:    inv.TotalCents,
		PaidCents:     inv.PaidCents,
		Status:        inv.Status,
		ClientNotes:   inv.ClientNotes,
		CreatedAt:     inv.CreatedAt,
	}
}

// InvoiceSummary is a lightweight invoice representation for lists.
type InvoiceSummary struct {
	ID            uuid.UUID     `json:"id"`
	InvoiceNumber string        `json:"invoice_number"`
	ClientID      uuid.UUID     `json:"client_id"`
	Status        InvoiceStatus `json:"status"`
	TotalCents    int64         `json:"total_cents"`
	PaidCents     int64         `json:"paid_cents"`
	DueDate       time.Time     `json:"due_date"`
	CreatedAt     time.Time     `json:"created_at"`
}

// CreateInvoiceParams contains parameters for creating a draft invoice.
type CreateInvoiceParams struct {
	ClientID    uuid.UUID
	InvoiceDate time.Time
	DueDate     time.Time
	ClientNotes string
	AdminNotes  string
}

// UpdateLineItemParams carries a single-field edit to a line item.
// Exactly one of the pointer fields is expected to be set.
type UpdateLineItemParams struct {
	Title       *string
	Description *string
	ItemType    *LineItemType
	Quantity    *decimal.Decimal
	UnitPrice   *int64 // cents
}

// InvoiceService is the billing aggregate surface exposed to callers.
//
// All mutating operations on a given invoice are serialized: a totals
// recompute never reads line items mid-mutation. Validation failures are
// synchronous and leave state untouched.
type InvoiceService interface {
	// CreateInvoice creates a new draft invoice with no line items.
	CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*Invoice, error)

	// GetInvoice retrieves an invoice with its line items (admin view).
	GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*Invoice, error)

	// GetClientInvoice retrieves the customer-facing projection.
	// Admin notes are never present on this path.
	GetClientInvoice(ctx context.Context, invoiceID uuid.UUID) (*ClientInvoice, error)

	// ListInvoices lists invoices most-recent-first.
	ListInvoices(ctx context.Context, limit, offset int32) ([]InvoiceSummary, error)

	// AddLineItem appends a line item and recomputes totals.
	AddLineItem(ctx context.Context, invoiceID uuid.UUID, item LineItem) (*Invoice, error)

	// UpdateLineItem edits one field of the line item at index.
	// Quantity and unit price edits recompute the item's total price and
	// then the invoice totals; other fields leave totals untouched.
	UpdateLineItem(ctx context.Context, invoiceID uuid.UUID, index int, params UpdateLineItemParams) (*Invoice, error)

	// RemoveLineItem removes the line item at index and recomputes totals.
	// An out-of-range index is a no-op, tolerating racing UI updates.
	RemoveLineItem(ctx context.Context, invoiceID uuid.UUID, index int) (*Invoice, error)

	// SetTaxRate sets the tax fraction (0..1) and recomputes totals.
	SetTaxRate(ctx context.Context, invoiceID uuid.UUID, rate decimal.Decimal) (*Invoice, error)

	// SetDiscount sets the flat discount (cents >= 0) and recomputes totals.
	SetDiscount(ctx context.Context, invoiceID uuid.UUID, cents int64) (*Invoice, error)

	// SetMarkup sets the flat markup (cents >= 0) and recomputes totals.
	SetMarkup(ctx context.Context, invoiceID uuid.UUID, cents int64) (*Invoice, error)

	// MarkSent transitions draft -> sent. Called only by the dispatch path;
	// invoices are never marked sent automatically.
	MarkSent(ctx context.Context, invoiceID uuid.UUID) (*Invoice, error)

	// RecordPayment applies a payment and drives sent -> partial -> paid.
	// The amount must be positive and no greater than the balance.
	RecordPayment(ctx context.Context, invoiceID uuid.UUID, amountCents int64) (*Invoice, error)

	// DeleteInvoice removes an invoice permanently. Terminal and irreversible.
	DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error
}

// InvoiceStore is the persistence capability consumed by the invoice service.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error

	// GetInvoice loads an invoice with its line items in order.
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)

	ListInvoices(ctx context.Context, limit, offset int32) ([]InvoiceSummary, error)

	// SaveInvoice persists the invoice row and its line items atomically.
	SaveInvoice(ctx context.Context, inv *Invoice) error

	DeleteInvoice(ctx context.Context, id uuid.UUID) error

	// NextInvoiceSequence allocates the next per-year invoice number.
	NextInvoiceSequence(ctx context.Context, year int) (int, error)
}
