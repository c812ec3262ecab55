// Package billing holds the pure money math for invoices.
//
// All monetary amounts are integer cents; quantities and tax rates are
// fixed-point decimals. Nothing here touches I/O, so identical inputs
// always produce identical outputs.
package billing

import (
	"github.com/shopspring/decimal"

	"github.com/ashgrove/millwork/internal/domain"
)

// Totals is the derived money state of an invoice.
type Totals struct {
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
}

// LineItemTotal computes quantity * unit price, rounded half-up to whole
// cents. Quantities may be fractional (e.g. 2.5 hours of labor).
func LineItemTotal(quantity decimal.Decimal, unitPriceCents int64) int64 {
	// decimal.Round rounds half away from zero, which is half-up for the
	// non-negative amounts the aggregate admits.
	return quantity.Mul(decimal.NewFromInt(unitPriceCents)).Round(0).IntPart()
}

// ComputeTotals derives subtotal, tax and grand total from settled line
// items plus the invoice-level tax rate, discount and markup.
//
// Inputs are assumed valid (rate in [0,1], discount and markup >= 0); the
// aggregate rejects anything else before calling here. With no line items
// the discount and markup still apply. The grand total never drops below
// zero: a discount larger than the rest of the invoice yields 0, not a
// negative balance. That clamp applies to every invoice, not just empty
// ones, so total is max(0, subtotal + tax - discount + markup) throughout
// rather than the raw formula going negative.
func ComputeTotals(items []domain.LineItem, taxRate decimal.Decimal, discountCents, markupCents int64) Totals {
	var subtotal int64
	for _, item := range items {
		subtotal += item.TotalPriceCents
	}

	tax := decimal.NewFromInt(subtotal).Mul(taxRate).Round(0).IntPart()

	total := subtotal + tax - discountCents + markupCents
	if total < 0 {
		total = 0
	}

	return Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    total,
	}
}
