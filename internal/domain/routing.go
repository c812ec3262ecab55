package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Routing-related domain errors.
var (
	ErrRecipientNotFound  = &Error{Code: ENOTFOUND, Message: "Notification recipient not found"}
	ErrUnknownRoutingMode = &Error{Code: EINVALID, Message: "Unknown routing mode"}
	ErrUnknownMessageType = &Error{Code: EINVALID, Message: "Message type must not be empty"}
)

// Channel is the delivery channel for an outbound notification.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// IsValid reports whether c is a known channel.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelSMS, ChannelEmail:
		return true
	}
	return false
}

// RoutingMode selects how recipients are chosen for one send event.
type RoutingMode string

const (
	// RoutingModeSingle sends to the lowest-priority-order active recipient.
	RoutingModeSingle RoutingMode = "single"

	// RoutingModeAll broadcasts to every active recipient in priority order.
	RoutingModeAll RoutingMode = "all"

	// RoutingModeRotation cycles through active recipients one per send.
	RoutingModeRotation RoutingMode = "rotation"
)

// IsValid reports whether m is a known routing mode.
func (m RoutingMode) IsValid() bool {
	switch m {
	case RoutingModeSingle, RoutingModeAll, RoutingModeRotation:
		return true
	}
	return false
}

// Recipient is one notification target for a message type.
//
// PriorityOrder defines ascending send and rotation order. Two recipients
// for the same message type may share a priority; the earlier-inserted one
// sorts first.
type Recipient struct {
	ID            uuid.UUID  `json:"id"`
	MessageType   string     `json:"message_type"`
	EmployeeID    *uuid.UUID `json:"employee_id,omitempty"`
	Name          string     `json:"name"`
	PhoneNumber   string     `json:"phone_number"`
	Email         string     `json:"email,omitempty"`
	PriorityOrder int        `json:"priority_order"`
	Active        bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RoutingSetting is the per-message-type routing policy.
// When no setting has been stored, the default is {Enabled: true, Mode: single}.
type RoutingSetting struct {
	MessageType string      `json:"message_type"`
	Enabled     bool        `json:"is_enabled"`
	Mode        RoutingMode `json:"routing_mode"`
}

// DefaultRoutingSetting is the policy applied when none has been configured.
func DefaultRoutingSetting(messageType string) RoutingSetting {
	return RoutingSetting{
		MessageType: messageType,
		Enabled:     true,
		Mode:        RoutingModeSingle,
	}
}

// ResolutionOutcome classifies the result of resolving recipients for a send.
// Disabled and no-recipients are "nothing to send" outcomes, not errors.
type ResolutionOutcome string

const (
	OutcomeResolved     ResolutionOutcome = "resolved"
	OutcomeDisabled     ResolutionOutcome = "routing_disabled"
	OutcomeNoRecipients ResolutionOutcome = "no_active_recipients"
)

// Resolution is the recipient set chosen for one outbound send event.
type Resolution struct {
	Outcome    ResolutionOutcome `json:"outcome"`
	Mode       RoutingMode       `json:"mode"`
	Recipients []Recipient       `json:"recipients"`
}

// UpdateRecipientParams carries a partial edit to a recipient.
type UpdateRecipientParams struct {
	Name          *string
	PhoneNumber   *string
	Email         *string
	PriorityOrder *int
	Active        *bool
}

// RecipientDirectory manages per-message-type recipient rosters.
//
// Any structural change to the active set for a message type (an active
// recipient added, removed, deactivated or reordered) resets that type's
// rotation cursor so the next rotation cycle restarts cleanly.
type RecipientDirectory interface {
	// ListActive returns the active recipients for a message type ordered
	// by priority, ties broken by insertion order.
	ListActive(ctx context.Context, messageType string) ([]Recipient, error)

	// ListAll returns every recipient for a message type, active or not.
	ListAll(ctx context.Context, messageType string) ([]Recipient, error)

	AddRecipient(ctx context.Context, r Recipient) (*Recipient, error)
	UpdateRecipient(ctx context.Context, id uuid.UUID, params UpdateRecipientParams) (*Recipient, error)
	RemoveRecipient(ctx context.Context, id uuid.UUID) error
}

// RoutingPolicyEngine resolves the concrete recipient set for one send.
//
// In rotation mode, resolution advances the persisted cursor as a side
// effect; resolution and cursor advance are atomic per message type, so two
// racing sends never pick the same recipient twice in a row.
type RoutingPolicyEngine interface {
	ResolveRecipients(ctx context.Context, messageType string) (*Resolution, error)

	GetSetting(ctx context.Context, messageType string) (*RoutingSetting, error)
	PutSetting(ctx context.Context, setting RoutingSetting) error
}

// RecipientStore is the persistence capability for recipients.
type RecipientStore interface {
	// ListRecipients returns recipients for a message type ordered by
	// priority_order then created_at.
	ListRecipients(ctx context.Context, messageType string) ([]Recipient, error)

	GetRecipient(ctx context.Context, id uuid.UUID) (*Recipient, error)
	CreateRecipient(ctx context.Context, r *Recipient) error
	UpdateRecipient(ctx context.Context, r *Recipient) error
	DeleteRecipient(ctx context.Context, id uuid.UUID) error
}

// RoutingStore is the persistence capability for settings and cursors.
type RoutingStore interface {
	// GetSetting returns the stored setting, or ErrorCode ENOTFOUND when
	// none exists for the message type.
	GetSetting(ctx context.Context, messageType string) (*RoutingSetting, error)

	PutSetting(ctx context.Context, setting RoutingSetting) error

	// GetCursor returns the last-used rotation index, or -1 when the
	// cursor has never been written (or has been reset).
	GetCursor(ctx context.Context, messageType string) (int, error)

	SetCursor(ctx context.Context, messageType string, index int) error
}
