package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ashgrove/millwork/internal/billing"
	"github.com/ashgrove/millwork/internal/domain"
)

func item(qty string, unitCents int64) domain.LineItem {
	q := decimal.RequireFromString(qty)
	return domain.LineItem{
		Quantity:        q,
		UnitPriceCents:  unitCents,
		TotalPriceCents: billing.LineItemTotal(q, unitCents),
	}
}

// Test_ComputeTotals_WorkedExample validates the canonical scenario:
// 2 x $75.00 + 1 x $220.00 at 8.5% tax with a $50 discount
// = subtotal $370.00, tax $31.45, total $351.45.
func Test_ComputeTotals_WorkedExample(t *testing.T) {
	items := []domain.LineItem{
		item("2", 7500),
		item("1", 22000),
	}

	got := billing.ComputeTotals(items, decimal.RequireFromString("0.085"), 5000, 0)

	assert.Equal(t, int64(37000), got.SubtotalCents, "2*7500 + 1*22000")
	assert.Equal(t, int64(3145), got.TaxCents, "37000 * 0.085 = 3145")
	assert.Equal(t, int64(35145), got.TotalCents, "37000 + 3145 - 5000")
}

func Test_ComputeTotals(t *testing.T) {
	tests := []struct {
		name          string
		items         []domain.LineItem
		taxRate       string
		discountCents int64
		markupCents   int64
		want          billing.Totals
		explanation   string
	}{
		{
			name:        "no items no adjustments",
			items:       nil,
			taxRate:     "0",
			want:        billing.Totals{},
			explanation: "empty invoice is all zeros",
		},
		{
			name:          "no items discount and markup still apply",
			items:         nil,
			taxRate:       "0.1",
			discountCents: 2000,
			markupCents:   3500,
			want:          billing.Totals{SubtotalCents: 0, TaxCents: 0, TotalCents: 1500},
			explanation:   "max(0, -2000 + 3500) = 1500; tax on empty subtotal is 0",
		},
		{
			name:          "discount exceeding invoice clamps at zero",
			items:         []domain.LineItem{item("1", 1000)},
			taxRate:       "0",
			discountCents: 5000,
			want:          billing.Totals{SubtotalCents: 1000, TaxCents: 0, TotalCents: 0},
			explanation:   "total never goes negative",
		},
		{
			name:        "tax rounds half up",
			items:       []domain.LineItem{item("1", 1250)},
			taxRate:     "0.066",
			want:        billing.Totals{SubtotalCents: 1250, TaxCents: 83, TotalCents: 1333},
			explanation: "1250 * 0.066 = 82.5, rounds up to 83",
		},
		{
			name:        "fractional quantity",
			items:       []domain.LineItem{item("2.5", 8000)},
			taxRate:     "0",
			want:        billing.Totals{SubtotalCents: 20000, TaxCents: 0, TotalCents: 20000},
			explanation: "2.5 hours at $80.00",
		},
		{
			name:        "fractional quantity rounds half up",
			items:       []domain.LineItem{item("0.333", 1000)},
			taxRate:     "0",
			want:        billing.Totals{SubtotalCents: 333, TaxCents: 0, TotalCents: 333},
			explanation: "333.0 cents exactly after rounding",
		},
		{
			name:        "full rate edge case",
			items:       []domain.LineItem{item("1", 5000)},
			taxRate:     "1",
			want:        billing.Totals{SubtotalCents: 5000, TaxCents: 5000, TotalCents: 10000},
			explanation: "rate 1.0 doubles the invoice",
		},
		{
			name:          "markup and discount together",
			items:         []domain.LineItem{item("3", 2599)},
			taxRate:       "0.085",
			discountCents: 500,
			markupCents:   1200,
			want:          billing.Totals{SubtotalCents: 7797, TaxCents: 663, TotalCents: 9160},
			explanation:   "7797 * 0.085 = 662.745 -> 663; 7797 + 663 - 500 + 1200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := billing.ComputeTotals(tt.items, decimal.RequireFromString(tt.taxRate), tt.discountCents, tt.markupCents)
			assert.Equal(t, tt.want, got, tt.explanation)
		})
	}
}

// Test_ComputeTotals_Idempotent checks the calculator is a pure function:
// repeated calls with identical inputs agree exactly.
func Test_ComputeTotals_Idempotent(t *testing.T) {
	items := []domain.LineItem{item("7", 1999), item("0.25", 12000)}
	rate := decimal.RequireFromString("0.0725")

	first := billing.ComputeTotals(items, rate, 750, 300)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, billing.ComputeTotals(items, rate, 750, 300))
	}
}

func Test_LineItemTotal(t *testing.T) {
	tests := []struct {
		name        string
		qty         string
		unitCents   int64
		want        int64
		explanation string
	}{
		{"whole quantity", "4", 2500, 10000, "4 * $25.00"},
		{"zero quantity", "0", 9999, 0, "nothing ordered"},
		{"half cent rounds up", "1.5", 33, 50, "49.5 rounds to 50"},
		{"large amounts", "12", 1234567, 14814804, "no drift at scale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := billing.LineItemTotal(decimal.RequireFromString(tt.qty), tt.unitCents)
			assert.Equal(t, tt.want, got, tt.explanation)
		})
	}
}
