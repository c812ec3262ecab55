package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrove/millwork/internal/domain"
)

func newTestInvoiceService(t *testing.T) (domain.InvoiceService, *fakeInvoiceStore) {
	t.Helper()
	store := newFakeInvoiceStore()
	return NewInvoiceService(store, testLogger()), store
}

func mustCreateDraft(t *testing.T, svc domain.InvoiceService) *domain.Invoice {
	t.Helper()
	inv, err := svc.CreateInvoice(context.Background(), domain.CreateInvoiceParams{
		ClientID: uuid.New(),
	})
	require.NoError(t, err)
	return inv
}

func Test_CreateInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a numbered draft with defaults", func(t *testing.T) {
		svc, _ := newTestInvoiceService(t)

		inv, err := svc.CreateInvoice(ctx, domain.CreateInvoiceParams{ClientID: uuid.New()})
		require.NoError(t, err)

		year := time.Now().Year()
		assert.Equal(t, domain.InvoiceStatusDraft, inv.Status)
		assert.Regexp(t, `^INV-\d{4}-\d{4}$`, inv.InvoiceNumber)
		assert.Contains(t, inv.InvoiceNumber, "INV-"+time.Now().Format("2006"))
		assert.Equal(t, year, inv.InvoiceDate.Year())
		assert.Equal(t, inv.InvoiceDate.AddDate(0, 0, 30), inv.DueDate,
			"default payment terms are net 30")
		assert.Empty(t, inv.LineItems)
		assert.Zero(t, inv.TotalCents)
	})

	t.Run("sequence advances per invoice", func(t *testing.T) {
		svc, _ := newTestInvoiceService(t)

		first, err := svc.CreateInvoice(ctx, domain.CreateInvoiceParams{ClientID: uuid.New()})
		require.NoError(t, err)
		second, err := svc.CreateInvoice(ctx, domain.CreateInvoiceParams{ClientID: uuid.New()})
		require.NoError(t, err)

		assert.NotEqual(t, first.InvoiceNumber, second.InvoiceNumber)
	})

	t.Run("rejects a missing client", func(t *testing.T) {
		svc, _ := newTestInvoiceService(t)

		_, err := svc.CreateInvoice(ctx, domain.CreateInvoiceParams{})
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("rejects a due date before the invoice date", func(t *testing.T) {
		svc, _ := newTestInvoiceService(t)

		now := time.Now()
		_, err := svc.CreateInvoice(ctx, domain.CreateInvoiceParams{
			ClientID:    uuid.New(),
			InvoiceDate: now,
			DueDate:     now.AddDate(0, 0, -1),
		})
		assert.True(t, domain.IsValidationError(err))
	})
}

// The worked example every other billing number hangs off: two line items,
// 8.5% tax, a $50 discount.
func Test_InvoiceTotals_WorkedExample(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestInvoiceService(t)
	inv := mustCreateDraft(t, svc)

	_, err := svc.AddLineItem(ctx, inv.ID, domain.LineItem{
		Title:          "Shaker cabinet doors",
		Quantity:       decimal.NewFromInt(2),
		UnitPriceCents: 7500,
		ItemType:       domain.LineItemTypeMaterial,
	})
	require.NoError(t, err)

	_, err = svc.AddLineItem(ctx, inv.ID, domain.LineItem{
		Title:          "Installation labor",
		Quantity:       decimal.NewFromInt(1),
		UnitPriceCents: 22000,
		ItemType:       domain.LineItemTypeLabor,
	})
	require.NoError(t, err)

	_, err = svc.SetTaxRate(ctx, inv.ID, decimal.RequireFromString("0.085"))
	require.NoError(t, err)

	got, err := svc.SetDiscount(ctx, inv.ID, 5000)
	require.NoError(t, err)

	assert.Equal(t, int64(37000), got.SubtotalCents)
	assert.Equal(t, int64(3145), got.TaxCents)
	assert.Equal(t, int64(35145), got.TotalCents)
}

func Test_UpdateLineItem(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (domain.InvoiceService, uuid.UUID) {
		svc, _ := newTestInvoiceService(t)
		inv := mustCreateDraft(t, svc)
		_, err := svc.AddLineItem(ctx, inv.ID, domain.LineItem{
			Title:          "Crown molding",
			Quantity:       decimal.NewFromInt(4),
			UnitPriceCents: 1200,
		})
		require.NoError(t, err)
		return svc, inv.ID
	}

	t.Run("quantity edit recomputes item and invoice totals", func(t *testing.T) {
		svc, id := setup(t)

		qty := decimal.RequireFromString("2.5")
		got, err := svc.UpdateLineItem(ctx, id, 0, domain.UpdateLineItemParams{Quantity: &qty})
		require.NoError(t, err)

		assert.Equal(t, int64(3000), got.LineItems[0].TotalPriceCents)
		assert.Equal(t, int64(3000), got.SubtotalCents)
	})

	t.Run("title edit leaves totals untouched", func(t *testing.T) {
		svc, id := setup(t)

		before, err := svc.GetInvoice(ctx, id)
		require.NoError(t, err)

		title := "Crown molding, primed"
		got, err := svc.UpdateLineItem(ctx, id, 0, domain.UpdateLineItemParams{Title: &title})
		require.NoError(t, err)

		assert.Equal(t, title, got.LineItems[0].Title)
		assert.Equal(t, before.SubtotalCents, got.SubtotalCents)
		assert.Equal(t, before.LineItems[0].TotalPriceCents, got.LineItems[0].TotalPriceCents)
	})

	t.Run("out-of-range index is not found", func(t *testing.T) {
		svc, id := setup(t)

		title := "x"
		_, err := svc.UpdateLineItem(ctx, id, 5, domain.UpdateLineItemParams{Title: &title})
		assert.ErrorIs(t, err, domain.ErrLineItemNotFound)
	})

	t.Run("negative quantity rejected before any store access", func(t *testing.T) {
		svc, id := setup(t)

		qty := decimal.NewFromInt(-1)
		_, err := svc.UpdateLineItem(ctx, id, 0, domain.UpdateLineItemParams{Quantity: &qty})
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("quantity finer than stored precision rejected", func(t *testing.T) {
		svc, id := setup(t)

		_, err := svc.AddLineItem(ctx, id, domain.LineItem{
			Title:          "Brass screws",
			Quantity:       decimal.RequireFromString("1.2345"),
			UnitPriceCents: 40,
		})
		assert.True(t, domain.IsValidationError(err))

		// The quantity column holds three decimal places; a finer value
		// would round on save and desync the derived line total.
		qty := decimal.RequireFromString("0.0001")
		_, err = svc.UpdateLineItem(ctx, id, 0, domain.UpdateLineItemParams{Quantity: &qty})
		assert.True(t, domain.IsValidationError(err))

		ok := decimal.RequireFromString("2.500")
		got, err := svc.UpdateLineItem(ctx, id, 0, domain.UpdateLineItemParams{Quantity: &ok})
		require.NoError(t, err, "trailing zeros are not extra precision")
		assert.True(t, got.LineItems[0].Quantity.Equal(ok))
	})
}

func Test_RemoveLineItem(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestInvoiceService(t)
	inv := mustCreateDraft(t, svc)

	_, err := svc.AddLineItem(ctx, inv.ID, domain.LineItem{
		Title:          "Drawer slides",
		Quantity:       decimal.NewFromInt(10),
		UnitPriceCents: 850,
	})
	require.NoError(t, err)

	t.Run("removal recomputes totals", func(t *testing.T) {
		got, err := svc.RemoveLineItem(ctx, inv.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, got.LineItems)
		assert.Zero(t, got.SubtotalCents)
		assert.Zero(t, got.TotalCents)
	})

	t.Run("out-of-range removal is a no-op", func(t *testing.T) {
		got, err := svc.RemoveLineItem(ctx, inv.ID, 3)
		require.NoError(t, err)
		assert.Empty(t, got.LineItems)
	})
}

func Test_DiscountAndMarkup(t *testing.T) {
	ctx := context.Background()

	t.Run("discount larger than subtotal clamps the total at zero", func(t *testing.T) {
		svc, _ := newTestInvoiceService(t)
		inv := mustCreateDraft(t, svc)

		got, err := svc.SetDiscount(ctx, inv.ID, 2000)
		require.NoError(t, err)
		assert.Zero(t, got.TotalCents, "an empty invoice with a discount owes nothing")
	})

	t.Run("markup applies without line items", func(t *testing.T) {
		svc, _ := newTestInvoiceService(t)
		inv := mustCreateDraft(t, svc)

		_, err := svc.SetDiscount(ctx, inv.ID, 2000)
		require.NoError(t, err)
		got, err := svc.SetMarkup(ctx, inv.ID, 3500)
		require.NoError(t, err)

		assert.Equal(t, int64(1500), got.TotalCents)
	})

	t.Run("negative amounts rejected", func(t *testing.T) {
		svc, _ := newTestInvoiceService(t)
		inv := mustCreateDraft(t, svc)

		_, err := svc.SetDiscount(ctx, inv.ID, -1)
		assert.True(t, domain.IsValidationError(err))
		_, err = svc.SetMarkup(ctx, inv.ID, -1)
		assert.True(t, domain.IsValidationError(err))
	})
}

func Test_StatusLifecycle(t *testing.T) {
	ctx := context.Background()

	// billable returns a sent invoice with a known total.
	billable := func(t *testing.T) (domain.InvoiceService, uuid.UUID) {
		svc, _ := newTestInvoiceService(t)
		inv := mustCreateDraft(t, svc)
		_, err := svc.AddLineItem(ctx, inv.ID, domain.LineItem{
			Title:          "Pantry build",
			Quantity:       decimal.NewFromInt(1),
			UnitPriceCents: 10000,
		})
		require.NoError(t, err)
		_, err = svc.MarkSent(ctx, inv.ID)
		require.NoError(t, err)
		return svc, inv.ID
	}

	t.Run("draft becomes sent only through MarkSent", func(t *testing.T) {
		svc, _ := newTestInvoiceService(t)
		inv := mustCreateDraft(t, svc)

		got, err := svc.MarkSent(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusSent, got.Status)
	})

	t.Run("re-marking a sent invoice is a no-op", func(t *testing.T) {
		svc, id := billable(t)

		got, err := svc.MarkSent(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusSent, got.Status)
	})

	t.Run("partial payment moves sent to partial", func(t *testing.T) {
		svc, id := billable(t)

		got, err := svc.RecordPayment(ctx, id, 4000)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusPartial, got.Status)
		assert.Equal(t, int64(6000), got.BalanceCents())
	})

	t.Run("full payment across installments reaches paid", func(t *testing.T) {
		svc, id := billable(t)

		_, err := svc.RecordPayment(ctx, id, 4000)
		require.NoError(t, err)
		got, err := svc.RecordPayment(ctx, id, 6000)
		require.NoError(t, err)

		assert.Equal(t, domain.InvoiceStatusPaid, got.Status)
		assert.Zero(t, got.BalanceCents())
	})

	t.Run("overpayment is rejected and state is untouched", func(t *testing.T) {
		svc, id := billable(t)

		_, err := svc.RecordPayment(ctx, id, 10001)
		assert.ErrorIs(t, err, domain.ErrPaymentExceedsTotal)

		got, err := svc.GetInvoice(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusSent, got.Status)
		assert.Zero(t, got.PaidCents)
	})

	t.Run("payments on a draft are rejected", func(t *testing.T) {
		svc, _ := newTestInvoiceService(t)
		inv := mustCreateDraft(t, svc)

		_, err := svc.RecordPayment(ctx, inv.ID, 100)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("paid never moves backward", func(t *testing.T) {
		svc, id := billable(t)

		_, err := svc.RecordPayment(ctx, id, 10000)
		require.NoError(t, err)

		_, err = svc.MarkSent(ctx, id)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("edits after sending are rejected", func(t *testing.T) {
		svc, id := billable(t)

		_, err := svc.AddLineItem(ctx, id, domain.LineItem{
			Title:          "Late addition",
			Quantity:       decimal.NewFromInt(1),
			UnitPriceCents: 500,
		})
		assert.ErrorIs(t, err, domain.ErrInvoiceNotDraft)

		_, err = svc.SetTaxRate(ctx, id, decimal.RequireFromString("0.1"))
		assert.ErrorIs(t, err, domain.ErrInvoiceNotDraft)

		_, err = svc.RemoveLineItem(ctx, id, 0)
		assert.ErrorIs(t, err, domain.ErrInvoiceNotDraft)
	})
}

func Test_ClientView_OmitsAdminNotes(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestInvoiceService(t)

	inv, err := svc.CreateInvoice(ctx, domain.CreateInvoiceParams{
		ClientID:    uuid.New(),
		ClientNotes: "Thanks for your business",
		AdminNotes:  "client haggles, quote high next time",
	})
	require.NoError(t, err)

	view, err := svc.GetClientInvoice(ctx, inv.ID)
	require.NoError(t, err)

	assert.Equal(t, "Thanks for your business", view.ClientNotes)
	assert.Equal(t, inv.InvoiceNumber, view.InvoiceNumber)
}

func Test_DeleteInvoice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestInvoiceService(t)
	inv := mustCreateDraft(t, svc)

	require.NoError(t, svc.DeleteInvoice(ctx, inv.ID))

	_, err := svc.GetInvoice(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)

	err = svc.DeleteInvoice(ctx, inv.ID)
	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
}

func Test_FailedSaveLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestInvoiceService(t)
	inv := mustCreateDraft(t, svc)

	store.saveErr = domain.Unavailable(nil, "test", "store down")

	_, err := svc.AddLineItem(ctx, inv.ID, domain.LineItem{
		Title:          "Toe kicks",
		Quantity:       decimal.NewFromInt(6),
		UnitPriceCents: 400,
	})
	require.Error(t, err)

	store.saveErr = nil
	got, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, got.LineItems)
	assert.Zero(t, got.SubtotalCents)
}
