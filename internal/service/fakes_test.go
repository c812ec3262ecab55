package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/ashgrove/millwork/internal/domain"
	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeInvoiceStore is an in-memory domain.InvoiceStore. It hands out
// copies so unsaved mutations never leak into stored state, mirroring a
// real round trip through the database.
type fakeInvoiceStore struct {
	mu        sync.Mutex
	invoices  map[uuid.UUID]domain.Invoice
	sequences map[int]int

	saveErr error // when set, SaveInvoice returns this error
	seqErr  error // when set, NextInvoiceSequence returns this error
}

func newFakeInvoiceStore() *fakeInvoiceStore {
	return &fakeInvoiceStore{
		invoices:  make(map[uuid.UUID]domain.Invoice),
		sequences: make(map[int]int),
	}
}

func (f *fakeInvoiceStore) CreateInvoice(ctx context.Context, inv *domain.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices[inv.ID] = copyInvoice(*inv)
	return nil
}

func (f *fakeInvoiceStore) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	out := copyInvoice(inv)
	return &out, nil
}

func (f *fakeInvoiceStore) ListInvoices(ctx context.Context, limit, offset int32) ([]domain.InvoiceSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var summaries []domain.InvoiceSummary
	for _, inv := range f.invoices {
		summaries = append(summaries, domain.InvoiceSummary{
			ID:            inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			ClientID:      inv.ClientID,
			Status:        inv.Status,
			TotalCents:    inv.TotalCents,
			PaidCents:     inv.PaidCents,
			DueDate:       inv.DueDate,
			CreatedAt:     inv.CreatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (f *fakeInvoiceStore) SaveInvoice(ctx context.Context, inv *domain.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.invoices[inv.ID]; !ok {
		return domain.ErrInvoiceNotFound
	}
	f.invoices[inv.ID] = copyInvoice(*inv)
	return nil
}

func (f *fakeInvoiceStore) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.invoices[id]; !ok {
		return domain.ErrInvoiceNotFound
	}
	delete(f.invoices, id)
	return nil
}

func (f *fakeInvoiceStore) NextInvoiceSequence(ctx context.Context, year int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seqErr != nil {
		return 0, f.seqErr
	}
	f.sequences[year]++
	return f.sequences[year], nil
}

func copyInvoice(inv domain.Invoice) domain.Invoice {
	items := make([]domain.LineItem, len(inv.LineItems))
	copy(items, inv.LineItems)
	inv.LineItems = items
	return inv
}

// fakeRecipientStore is an in-memory domain.RecipientStore ordered by
// priority then insertion time, like the real query.
type fakeRecipientStore struct {
	mu         sync.Mutex
	recipients map[uuid.UUID]domain.Recipient

	listErr error
}

func newFakeRecipientStore() *fakeRecipientStore {
	return &fakeRecipientStore{recipients: make(map[uuid.UUID]domain.Recipient)}
}

func (f *fakeRecipientStore) ListRecipients(ctx context.Context, messageType string) ([]domain.Recipient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Recipient
	for _, r := range f.recipients {
		if r.MessageType == messageType {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriorityOrder != out[j].PriorityOrder {
			return out[i].PriorityOrder < out[j].PriorityOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeRecipientStore) GetRecipient(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recipients[id]
	if !ok {
		return nil, domain.ErrRecipientNotFound
	}
	out := r
	return &out, nil
}

func (f *fakeRecipientStore) CreateRecipient(ctx context.Context, r *domain.Recipient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recipients[r.ID] = *r
	return nil
}

func (f *fakeRecipientStore) UpdateRecipient(ctx context.Context, r *domain.Recipient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recipients[r.ID]; !ok {
		return domain.ErrRecipientNotFound
	}
	f.recipients[r.ID] = *r
	return nil
}

func (f *fakeRecipientStore) DeleteRecipient(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recipients[id]; !ok {
		return domain.ErrRecipientNotFound
	}
	delete(f.recipients, id)
	return nil
}

// fakeRoutingStore is an in-memory domain.RoutingStore. An absent cursor
// reads as -1, matching the SQL store.
type fakeRoutingStore struct {
	mu       sync.Mutex
	settings map[string]domain.RoutingSetting
	cursors  map[string]int

	cursorErr error // when set, SetCursor returns this error
}

func newFakeRoutingStore() *fakeRoutingStore {
	return &fakeRoutingStore{
		settings: make(map[string]domain.RoutingSetting),
		cursors:  make(map[string]int),
	}
}

func (f *fakeRoutingStore) GetSetting(ctx context.Context, messageType string) (*domain.RoutingSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[messageType]
	if !ok {
		return nil, domain.NotFound("fake.get_setting", "routing setting", messageType)
	}
	out := s
	return &out, nil
}

func (f *fakeRoutingStore) PutSetting(ctx context.Context, setting domain.RoutingSetting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[setting.MessageType] = setting
	return nil
}

func (f *fakeRoutingStore) GetCursor(ctx context.Context, messageType string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cursors[messageType]
	if !ok {
		return -1, nil
	}
	return c, nil
}

func (f *fakeRoutingStore) SetCursor(ctx context.Context, messageType string, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursorErr != nil {
		return f.cursorErr
	}
	f.cursors[messageType] = index
	return nil
}

// cursor reports the stored cursor value, or -1 when absent.
func (f *fakeRoutingStore) cursor(messageType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cursors[messageType]
	if !ok {
		return -1
	}
	return c
}

// fakeHistoryStore is an in-memory domain.HistoryStore.
type fakeHistoryStore struct {
	mu      sync.Mutex
	entries []domain.DeliveryHistoryEntry

	appendErr error
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{}
}

func (f *fakeHistoryStore) AppendEntry(ctx context.Context, entry *domain.DeliveryHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryStore) ListEntries(ctx context.Context, messageType string, limit int32) ([]domain.DeliveryHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DeliveryHistoryEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if messageType != "" && f.entries[i].MessageType != messageType {
			continue
		}
		out = append(out, f.entries[i])
		if int32(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeHistoryStore) MarkDelivered(ctx context.Context, providerMessageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if f.entries[i].ProviderMessageID == providerMessageID {
			f.entries[i].Status = domain.DeliveryStatusDelivered
			return nil
		}
	}
	return domain.ErrHistoryEntryNotFound
}

func (f *fakeHistoryStore) all() []domain.DeliveryHistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.DeliveryHistoryEntry, len(f.entries))
	copy(out, f.entries)
	return out
}
