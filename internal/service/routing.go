package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ashgrove/millwork/internal/domain"
	"github.com/ashgrove/millwork/internal/telemetry"
)

type routingEngine struct {
	recipients domain.RecipientStore
	store      domain.RoutingStore
	locks      *keyedMutex
	logger     *slog.Logger
}

var _ domain.RoutingPolicyEngine = (*routingEngine)(nil)

// NewRoutingEngine creates the routing policy engine. Resolution for a
// message type runs under a per-type lock: in rotation mode the cursor
// read and advance are one atomic step, so racing sends for the same type
// never pick the same recipient twice in a row and never skip one.
// Different message types resolve fully in parallel.
func NewRoutingEngine(recipients domain.RecipientStore, store domain.RoutingStore, logger *slog.Logger) domain.RoutingPolicyEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &routingEngine{
		recipients: recipients,
		store:      store,
		locks:      newKeyedMutex(),
		logger:     logger,
	}
}

// ResolveRecipients resolves the concrete recipient set for one send event.
func (e *routingEngine) ResolveRecipients(ctx context.Context, messageType string) (*domain.Resolution, error) {
	const op = "routing.resolve"

	if strings.TrimSpace(messageType) == "" {
		return nil, domain.ErrUnknownMessageType
	}

	unlock := e.locks.Lock(messageType)
	defer unlock()

	setting, err := e.settingOrDefault(ctx, messageType)
	if err != nil {
		return nil, err
	}

	if !setting.Enabled {
		telemetry.RoutingResolutions.WithLabelValues(string(setting.Mode), string(domain.OutcomeDisabled)).Inc()
		return &domain.Resolution{Outcome: domain.OutcomeDisabled, Mode: setting.Mode}, nil
	}

	active, err := e.activeRecipients(ctx, messageType)
	if err != nil {
		return nil, err
	}

	if len(active) == 0 {
		telemetry.RoutingResolutions.WithLabelValues(string(setting.Mode), string(domain.OutcomeNoRecipients)).Inc()
		return &domain.Resolution{Outcome: domain.OutcomeNoRecipients, Mode: setting.Mode}, nil
	}

	var chosen []domain.Recipient
	switch setting.Mode {
	case domain.RoutingModeSingle:
		chosen = active[:1]

	case domain.RoutingModeAll:
		chosen = active

	case domain.RoutingModeRotation:
		cursor, err := e.store.GetCursor(ctx, messageType)
		if err != nil {
			return nil, domain.WrapError(err, domain.ErrorCode(err), op, "failed to read rotation cursor")
		}

		// A fresh or reset cursor, or a stale index left by a shrunken
		// active set, restarts the cycle at the top.
		next := 0
		if cursor >= 0 && cursor < len(active) {
			next = (cursor + 1) % len(active)
		}

		if err := e.store.SetCursor(ctx, messageType, next); err != nil {
			return nil, domain.WrapError(err, domain.ErrorCode(err), op, "failed to advance rotation cursor")
		}
		chosen = active[next : next+1]

		e.logger.Debug("rotation cursor advanced",
			"message_type", messageType,
			"cursor", next,
			"active_count", len(active),
		)

	default:
		return nil, domain.ErrUnknownRoutingMode
	}

	telemetry.RoutingResolutions.WithLabelValues(string(setting.Mode), string(domain.OutcomeResolved)).Inc()
	return &domain.Resolution{
		Outcome:    domain.OutcomeResolved,
		Mode:       setting.Mode,
		Recipients: chosen,
	}, nil
}

// GetSetting returns the stored setting for a message type, or the
// default {enabled, single} when none has been configured.
func (e *routingEngine) GetSetting(ctx context.Context, messageType string) (*domain.RoutingSetting, error) {
	if strings.TrimSpace(messageType) == "" {
		return nil, domain.ErrUnknownMessageType
	}
	setting, err := e.settingOrDefault(ctx, messageType)
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// PutSetting stores a per-message-type routing policy. Changing the mode
// or toggling enabled leaves the rotation cursor alone; only roster
// changes reset it.
func (e *routingEngine) PutSetting(ctx context.Context, setting domain.RoutingSetting) error {
	const op = "routing.put_setting"

	if strings.TrimSpace(setting.MessageType) == "" {
		return domain.ErrUnknownMessageType
	}
	if !setting.Mode.IsValid() {
		return domain.ErrUnknownRoutingMode
	}

	if err := e.store.PutSetting(ctx, setting); err != nil {
		return domain.WrapError(err, domain.ErrorCode(err), op, "failed to store routing setting")
	}

	e.logger.Info("routing setting updated",
		"message_type", setting.MessageType,
		"mode", setting.Mode,
		"enabled", setting.Enabled,
	)
	return nil
}

func (e *routingEngine) settingOrDefault(ctx context.Context, messageType string) (domain.RoutingSetting, error) {
	setting, err := e.store.GetSetting(ctx, messageType)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return domain.DefaultRoutingSetting(messageType), nil
		}
		return domain.RoutingSetting{}, err
	}
	return *setting, nil
}

func (e *routingEngine) activeRecipients(ctx context.Context, messageType string) ([]domain.Recipient, error) {
	all, err := e.recipients.ListRecipients(ctx, messageType)
	if err != nil {
		return nil, err
	}
	active := make([]domain.Recipient, 0, len(all))
	for _, r := range all {
		if r.Active {
			active = append(active, r)
		}
	}
	return active, nil
}
