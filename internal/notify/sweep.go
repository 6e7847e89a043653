package notify

import (
	"context"
	"fmt"
	"time"

	"alphabot/internal/event"
	"alphabot/internal/registry"
	"alphabot/internal/transport"
	"alphabot/pkg/logx"
)

const (
	// DefaultReminderWindow is how far before its start an event becomes
	// eligible for a reminder.
	DefaultReminderWindow = 5 * time.Minute

	// DefaultMarkerTTL keeps a delivered marker long enough to outlive the
	// reminder window without accumulating state.
	DefaultMarkerTTL = time.Hour
)

// Channel is the delivery slice of the transport adapter the sweep needs.
type Channel interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
	Pin(ctx context.Context, ref transport.MessageRef) error
}

// Sweeper walks (event, subscriber) pairs inside the reminder window and
// delivers at most one reminder per pair, tracked by expiring markers.
//
// Two sweeps racing on the same pair can both read "no marker" before either
// writes one; dedup is therefore best-effort under overlapping triggers, not
// a hard guarantee.
type Sweeper struct {
	store   registry.Store
	channel Channel
	log     logx.Logger

	window    time.Duration
	markerTTL time.Duration
}

func NewSweeper(store registry.Store, channel Channel, log logx.Logger) *Sweeper {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sweeper{
		store:     store,
		channel:   channel,
		log:       log,
		window:    DefaultReminderWindow,
		markerTTL: DefaultMarkerTTL,
	}
}

// SetWindow overrides the reminder window (values <= 0 keep the default).
func (s *Sweeper) SetWindow(d time.Duration) {
	if d > 0 {
		s.window = d
	}
}

// SetMarkerTTL overrides the marker retention (values <= 0 keep the default).
func (s *Sweeper) SetMarkerTTL(d time.Duration) {
	if d > 0 {
		s.markerTTL = d
	}
}

// MarkerKey builds the idempotency key for one (subscriber, event) pair.
// The effective time is part of the key so a rescheduled event pings again.
func MarkerKey(chatID int64, token string, effectiveAt time.Time) string {
	return fmt.Sprintf("event_notified:%d:%s-%s", chatID, token, effectiveAt.Format(time.RFC3339))
}

// Run performs one sweep over the given events and returns how many reminders
// were delivered.
//
// Failure policy:
//   - store disabled or Members() failing: abort, zero sent (fail closed)
//   - marker read error: skip that pair this cycle
//   - delivery error: pair stays pending, retried next cycle inside the window
//   - pin error: ignored; the reminder was already delivered
func (s *Sweeper) Run(ctx context.Context, events []event.Event, now time.Time) (int, error) {
	if s.store == nil {
		return 0, registry.ErrDisabled
	}

	subscribers, err := s.store.Members(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		return 0, nil
	}

	deadline := now.Add(s.window)
	sent := 0

	for _, e := range events {
		if e.EffectiveAt == nil {
			continue
		}
		at := *e.EffectiveAt
		// Half-open window: already-started events are out, the boundary
		// instant now+window is in.
		if !at.After(now) || at.After(deadline) {
			continue
		}

		text := formatReminder(e, now)
		for _, chatID := range subscribers {
			key := MarkerKey(chatID, e.Token, at)

			exists, err := s.store.MarkerExists(ctx, key)
			if err != nil {
				s.log.Warn("marker lookup failed, skipping pair", logx.Int64("chat_id", chatID), logx.String("token", e.Token), logx.Err(err))
				continue
			}
			if exists {
				continue
			}

			ref, err := s.channel.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, &transport.SendOptions{ParseMode: "Markdown"})
			if err != nil {
				s.log.Warn("reminder delivery failed", logx.Int64("chat_id", chatID), logx.String("token", e.Token), logx.Err(err))
				continue
			}

			if err := s.store.SetMarker(ctx, key, s.markerTTL); err != nil {
				// The reminder went out; a marker write failure just risks a
				// duplicate next cycle.
				s.log.Warn("marker write failed", logx.String("key", key), logx.Err(err))
			}
			sent++

			if err := s.channel.Pin(ctx, ref); err != nil {
				s.log.Debug("pin failed", logx.Int64("chat_id", chatID), logx.Err(err))
			}
		}
	}

	return sent, nil
}
