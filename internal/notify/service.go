package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alphabot/internal/event"
	"alphabot/internal/feed"
	"alphabot/pkg/logx"
)

// Service ties the normalizer to the two consumer paths: on-demand digests
// and periodic reminder sweeps.
type Service struct {
	norm    *event.Normalizer
	sweeper *Sweeper
	local   *time.Location
	log     logx.Logger
}

func NewService(norm *event.Normalizer, sweeper *Sweeper, local *time.Location, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if local == nil {
		local = time.Local
	}
	return &Service{norm: norm, sweeper: sweeper, local: local, log: log}
}

// Digest fetches, classifies and renders the current event summary.
// Fetch failures come back as a short user-visible line, never an error:
// the caller always has something to show.
func (s *Service) Digest(ctx context.Context, now time.Time) (text string, nextToken string) {
	events, err := s.norm.Normalize(ctx)
	if err != nil {
		s.log.Warn("digest fetch failed", logx.Err(err))
		return fetchErrorLine(err), ""
	}
	if len(events) == 0 {
		return noEventsLine, ""
	}

	todays, upcoming := event.Classify(events, now.In(s.local))
	return formatDigest(todays, upcoming)
}

// Sweep fetches fresh events and runs one reminder pass. A fetch failure
// means zero reminders this cycle; the next trigger retries.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	now := time.Now().In(s.local)

	events, err := s.norm.Normalize(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch events: %w", err)
	}
	return s.sweeper.Run(ctx, events, now)
}

// SweepEvents runs one reminder pass over an injected event list. Integration
// tests use this to drive the sweep without the upstream feed.
func (s *Service) SweepEvents(ctx context.Context, events []event.Event, now time.Time) (int, error) {
	return s.sweeper.Run(ctx, events, now)
}

func fetchErrorLine(err error) string {
	var se *feed.StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("❌ API error (code %d).", se.Code)
	case errors.Is(err, feed.ErrBadPayload):
		return "❌ Invalid data format from the feed."
	default:
		return "❌ Network error while fetching events."
	}
}
