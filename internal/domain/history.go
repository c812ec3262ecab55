package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// History-related domain errors.
var (
	ErrHistoryEntryNotFound = &Error{Code: ENOTFOUND, Message: "Delivery history entry not found"}
)

// DeliveryStatus tracks the outcome of one send attempt.
//
// "sent" means the provider accepted the message; a later asynchronous
// provider callback may upgrade it to "delivered". "failed" is terminal.
type DeliveryStatus string

const (
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// DeliveryHistoryEntry is one append-only audit record of a send attempt.
// Entries are never mutated after creation except for the best-effort
// sent -> delivered upgrade driven by the transport provider's callback.
type DeliveryHistoryEntry struct {
	ID                uuid.UUID      `json:"id"`
	MessageType       string         `json:"message_type"`
	Channel           Channel        `json:"channel"`
	RecipientName     string         `json:"recipient_name"`
	RecipientPhone    string         `json:"recipient_phone"`
	SentAt            time.Time      `json:"sent_at"`
	Status            DeliveryStatus `json:"delivery_status"`
	MessageContent    string         `json:"message_content"`
	ProviderMessageID string         `json:"provider_message_id,omitempty"`
	FailureDetail     string         `json:"failure_detail,omitempty"`
}

// OutboundMessage is a rendered message ready for dispatch.
type OutboundMessage struct {
	Channel Channel `json:"channel"`
	Subject string  `json:"subject,omitempty"` // email only
	Body    string  `json:"body"`
}

// DispatchResult aggregates per-recipient outcomes for one dispatch call.
//
// Dispatch is not atomic across recipients: under broadcast, some
// recipients may have received the message while others failed. Callers
// must surface this as a partial result, never a blanket error.
type DispatchResult struct {
	Outcome   ResolutionOutcome      `json:"outcome"`
	Mode      RoutingMode            `json:"mode"`
	Attempted int                    `json:"attempted"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Entries   []DeliveryHistoryEntry `json:"entries"`
}

// Dispatcher sends a rendered message to every recipient the routing
// policy resolves, recording exactly one history entry per attempt.
type Dispatcher interface {
	Dispatch(ctx context.Context, messageType string, msg OutboundMessage) (*DispatchResult, error)
}

// DeliveryHistory is the audit log surface.
type DeliveryHistory interface {
	// Record appends an entry. Fails only on storage unavailability,
	// which is reported, not retried.
	Record(ctx context.Context, entry *DeliveryHistoryEntry) error

	// Query returns entries most-recent-first, optionally filtered by
	// message type. A limit <= 0 applies the default page size.
	Query(ctx context.Context, messageType string, limit int32) ([]DeliveryHistoryEntry, error)

	// MarkDelivered upgrades the entry with the given provider message ID
	// from sent to delivered. Idempotent; unknown IDs are reported as
	// not found.
	MarkDelivered(ctx context.Context, providerMessageID string) error
}

// HistoryStore is the persistence capability for the delivery log.
type HistoryStore interface {
	AppendEntry(ctx context.Context, entry *DeliveryHistoryEntry) error
	ListEntries(ctx context.Context, messageType string, limit int32) ([]DeliveryHistoryEntry, error)
	MarkDelivered(ctx context.Context, providerMessageID string) error
}
