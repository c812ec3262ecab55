package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ashgrove/millwork/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceHandler exposes the billing operations over JSON.
type InvoiceHandler struct {
	invoices   domain.InvoiceService
	dispatcher domain.Dispatcher
	logger     *slog.Logger
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(invoices domain.InvoiceService, dispatcher domain.Dispatcher, logger *slog.Logger) *InvoiceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceHandler{
		invoices:   invoices,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

type createInvoiceRequest struct {
	ClientID    uuid.UUID `json:"client_id" validate:"required"`
	InvoiceDate time.Time `json:"invoice_date"`
	DueDate     time.Time `json:"due_date"`
	ClientNotes string    `json:"client_notes"`
	AdminNotes  string    `json:"admin_notes"`
}

// Create handles POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	inv, err := h.invoices.CreateInvoice(r.Context(), domain.CreateInvoiceParams{
		ClientID:    req.ClientID,
		InvoiceDate: req.InvoiceDate,
		DueDate:     req.DueDate,
		ClientNotes: req.ClientNotes,
		AdminNotes:  req.AdminNotes,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}

// List handles GET /api/invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt32(r, "limit", 50)
	offset := queryInt32(r, "offset", 0)

	summaries, err := h.invoices.ListInvoices(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []domain.InvoiceSummary{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"invoices": summaries})
}

// Get handles GET /api/invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	inv, err := h.invoices.GetInvoice(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// GetClientView handles GET /api/invoices/{id}/client-view
func (h *InvoiceHandler) GetClientView(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := h.invoices.GetClientInvoice(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /api/invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.invoices.DeleteInvoice(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type lineItemRequest struct {
	Title          string              `json:"title" validate:"required"`
	Description    string              `json:"description"`
	Quantity       decimal.Decimal     `json:"quantity" validate:"required"`
	UnitPriceCents int64               `json:"unit_price_cents"`
	ItemType       domain.LineItemType `json:"item_type" validate:"omitempty,oneof=material labor custom"`
}

// AddLineItem handles POST /api/invoices/{id}/line-items
func (h *InvoiceHandler) AddLineItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req lineItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	itemType := req.ItemType
	if itemType == "" {
		itemType = domain.LineItemTypeCustom
	}

	inv, err := h.invoices.AddLineItem(r.Context(), id, domain.LineItem{
		Title:          req.Title,
		Description:    req.Description,
		Quantity:       req.Quantity,
		UnitPriceCents: req.UnitPriceCents,
		ItemType:       itemType,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

type updateLineItemRequest struct {
	Title          *string              `json:"title"`
	Description    *string              `json:"description"`
	ItemType       *domain.LineItemType `json:"item_type"`
	Quantity       *decimal.Decimal     `json:"quantity"`
	UnitPriceCents *int64               `json:"unit_price_cents"`
}

// UpdateLineItem handles PATCH /api/invoices/{id}/line-items/{index}
func (h *InvoiceHandler) UpdateLineItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	index, err := pathInt(r, "index")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req updateLineItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	inv, err := h.invoices.UpdateLineItem(r.Context(), id, index, domain.UpdateLineItemParams{
		Title:       req.Title,
		Description: req.Description,
		ItemType:    req.ItemType,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPriceCents,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// RemoveLineItem handles DELETE /api/invoices/{id}/line-items/{index}
func (h *InvoiceHandler) RemoveLineItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	index, err := pathInt(r, "index")
	if err != nil {
		respondError(w, r, err)
		return
	}

	inv, err := h.invoices.RemoveLineItem(r.Context(), id, index)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

type setTaxRateRequest struct {
	TaxRate decimal.Decimal `json:"tax_rate"`
}

// SetTaxRate handles PUT /api/invoices/{id}/tax-rate
func (h *InvoiceHandler) SetTaxRate(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req setTaxRateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	inv, err := h.invoices.SetTaxRate(r.Context(), id, req.TaxRate)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

type setAmountRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

// SetDiscount handles PUT /api/invoices/{id}/discount
func (h *InvoiceHandler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	h.setAdjustment(w, r, h.invoices.SetDiscount)
}

// SetMarkup handles PUT /api/invoices/{id}/markup
func (h *InvoiceHandler) SetMarkup(w http.ResponseWriter, r *http.Request) {
	h.setAdjustment(w, r, h.invoices.SetMarkup)
}

func (h *InvoiceHandler) setAdjustment(w http.ResponseWriter, r *http.Request,
	set func(ctx context.Context, id uuid.UUID, cents int64) (*domain.Invoice, error)) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req setAmountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	inv, err := set(r.Context(), id, req.AmountCents)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// Send handles POST /api/invoices/{id}/send
//
// The invoice notification is dispatched first; only a dispatch that
// delivered to at least one recipient marks the invoice sent. An invoice
// never becomes sent as a side effect of anything else.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	inv, err := h.invoices.GetInvoice(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if inv.Status != domain.InvoiceStatusDraft && inv.Status != domain.InvoiceStatusSent {
		respondError(w, r, domain.ErrInvalidTransition)
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), "invoice_sent", invoiceMessage(inv))
	if err != nil {
		respondError(w, r, err)
		return
	}

	// Only an actual delivery moves the invoice out of draft. Disabled
	// routing, an empty active set, or a fan-out where nothing got through
	// leave it editable and the send retryable; the dispatch result tells
	// the caller why nothing went out.
	if result.Outcome == domain.OutcomeResolved && result.Succeeded > 0 {
		inv, err = h.invoices.MarkSent(r.Context(), id)
		if err != nil {
			respondError(w, r, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"invoice":  inv,
		"dispatch": result,
	})
}

type recordPaymentRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

// RecordPayment handles POST /api/invoices/{id}/payments
func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req recordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	inv, err := h.invoices.RecordPayment(r.Context(), id, req.AmountCents)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// invoiceMessage renders the outbound notification for an invoice send.
func invoiceMessage(inv *domain.Invoice) domain.OutboundMessage {
	return domain.OutboundMessage{
		Channel: domain.ChannelEmail,
		Subject: fmt.Sprintf("Invoice %s", inv.InvoiceNumber),
		Body: fmt.Sprintf("Invoice %s for $%.2f is ready. Due %s.",
			inv.InvoiceNumber,
			float64(inv.TotalCents)/100,
			inv.DueDate.Format("Jan 2, 2006")),
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.Invalid("api.path", fmt.Sprintf("Invalid %s in path", name))
	}
	return id, nil
}

func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, domain.Invalid("api.path", fmt.Sprintf("Invalid %s in path", name))
	}
	return n, nil
}

func queryInt32(r *http.Request, name string, def int32) int32 {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			return int32(n)
		}
	}
	return def
}
