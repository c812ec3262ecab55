package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashgrove/millwork/internal/domain"
	"github.com/ashgrove/millwork/internal/telemetry"
	"github.com/ashgrove/millwork/internal/transport"
)

// DispatcherConfig bounds the fan-out behavior of one dispatch call.
type DispatcherConfig struct {
	// PerRecipientTimeout caps each transport call; an attempt that
	// exceeds it is recorded as failed without affecting the others.
	PerRecipientTimeout time.Duration

	// MaxParallel limits concurrent transport calls in one dispatch.
	MaxParallel int
}

type dispatcher struct {
	resolver domain.RoutingPolicyEngine
	email    transport.EmailSender
	sms      transport.SMSSender
	history  domain.DeliveryHistory
	config   DispatcherConfig
	logger   *slog.Logger
	now      func() time.Time
}

var _ domain.Dispatcher = (*dispatcher)(nil)

// NewDispatcher creates the delivery dispatcher. Sends to multiple
// recipients fan out in parallel; the call waits for every outcome before
// returning, and one slow or failing recipient never blocks or cancels
// the rest.
func NewDispatcher(
	resolver domain.RoutingPolicyEngine,
	email transport.EmailSender,
	sms transport.SMSSender,
	history domain.DeliveryHistory,
	config DispatcherConfig,
	logger *slog.Logger,
) domain.Dispatcher {
	if config.PerRecipientTimeout == 0 {
		config.PerRecipientTimeout = 10 * time.Second
	}
	if config.MaxParallel == 0 {
		config.MaxParallel = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &dispatcher{
		resolver: resolver,
		email:    email,
		sms:      sms,
		history:  history,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Dispatch resolves recipients for the message type and sends the
// rendered message to each, producing exactly one history entry per
// attempt. The result aggregates per-recipient outcomes; partial failure
// is a partial result, not an error.
func (d *dispatcher) Dispatch(ctx context.Context, messageType string, msg domain.OutboundMessage) (*domain.DispatchResult, error) {
	const op = "dispatch.send"

	if !msg.Channel.IsValid() {
		return nil, domain.NewValidationError(op, "channel", "channel must be sms or email")
	}

	started := d.now()
	defer func() {
		telemetry.DispatchDuration.Observe(time.Since(started).Seconds())
	}()

	resolution, err := d.resolver.ResolveRecipients(ctx, messageType)
	if err != nil {
		return nil, err
	}

	result := &domain.DispatchResult{
		Outcome: resolution.Outcome,
		Mode:    resolution.Mode,
	}
	if resolution.Outcome != domain.OutcomeResolved {
		d.logger.Info("dispatch skipped",
			"message_type", messageType,
			"outcome", resolution.Outcome,
		)
		return result, nil
	}

	// Fan out with bounded parallelism. Each slot in entries belongs to
	// one recipient, so no locking is needed on the way back.
	entries := make([]domain.DeliveryHistoryEntry, len(resolution.Recipients))
	sem := make(chan struct{}, d.config.MaxParallel)
	var wg sync.WaitGroup

	for i, recipient := range resolution.Recipients {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, r domain.Recipient) {
			defer wg.Done()
			defer func() { <-sem }()
			entries[i] = d.attempt(ctx, messageType, msg, r)
		}(i, recipient)
	}
	wg.Wait()

	for i := range entries {
		if err := d.history.Record(ctx, &entries[i]); err != nil {
			// Storage trouble must not turn a delivered message into a
			// reported failure; the attempt outcome stands.
			d.logger.Error("failed to record delivery history entry",
				"message_type", messageType,
				"recipient", entries[i].RecipientName,
				"error", err,
			)
		}

		result.Attempted++
		if entries[i].Status == domain.DeliveryStatusFailed {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	result.Entries = entries

	d.logger.Info("dispatch complete",
		"message_type", messageType,
		"mode", result.Mode,
		"attempted", result.Attempted,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)

	return result, nil
}

// attempt performs one transport call under the per-recipient timeout and
// returns its history entry. Never returns an error: failures become
// failed entries.
func (d *dispatcher) attempt(ctx context.Context, messageType string, msg domain.OutboundMessage, r domain.Recipient) domain.DeliveryHistoryEntry {
	entry := domain.DeliveryHistoryEntry{
		ID:             uuid.New(),
		MessageType:    messageType,
		Channel:        msg.Channel,
		RecipientName:  r.Name,
		RecipientPhone: r.PhoneNumber,
		SentAt:         d.now(),
		MessageContent: msg.Body,
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.config.PerRecipientTimeout)
	defer cancel()

	var providerID string
	var err error
	switch msg.Channel {
	case domain.ChannelSMS:
		if r.PhoneNumber == "" {
			err = domain.Invalid("dispatch.attempt", "recipient has no phone number")
		} else {
			providerID, err = d.sms.SendSMS(sendCtx, r.PhoneNumber, msg.Body)
		}
	case domain.ChannelEmail:
		if r.Email == "" {
			err = domain.Invalid("dispatch.attempt", "recipient has no email address")
		} else {
			providerID, err = d.email.SendEmail(sendCtx, r.Email, msg.Subject, msg.Body)
		}
	}

	if err != nil {
		entry.Status = domain.DeliveryStatusFailed
		entry.FailureDetail = err.Error()
		d.logger.Warn("send attempt failed",
			"message_type", messageType,
			"channel", msg.Channel,
			"recipient", r.Name,
			"error", err,
		)
	} else {
		entry.Status = domain.DeliveryStatusSent
		entry.ProviderMessageID = providerID
	}

	telemetry.DispatchAttempts.WithLabelValues(string(msg.Channel), string(entry.Status)).Inc()
	return entry
}
