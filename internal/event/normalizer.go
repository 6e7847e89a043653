package event

import (
	"context"

	"alphabot/internal/feed"
	"alphabot/pkg/logx"
)

// Source is the slice of the feed client the normalizer needs.
type Source interface {
	Events(ctx context.Context) ([]feed.RawEvent, error)
	Prices(ctx context.Context) feed.PriceMap
}

// Normalizer turns the raw upstream list into deduplicated, time-resolved,
// price-enriched events.
type Normalizer struct {
	src      Source
	resolver *Resolver
	log      logx.Logger
}

func NewNormalizer(src Source, resolver *Resolver, log logx.Logger) *Normalizer {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Normalizer{src: src, resolver: resolver, log: log}
}

// Normalize fetches events and prices and runs the pipeline. Feed errors
// propagate; price failures do not (the client already degrades those to an
// empty map). An empty feed is a valid empty result.
func (n *Normalizer) Normalize(ctx context.Context) ([]Event, error) {
	raw, err := n.src.Events(ctx)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	prices := n.src.Prices(ctx)

	deduped := Dedup(raw)
	if dropped := len(raw) - len(deduped); dropped > 0 {
		n.log.Debug("deduplicated feed records", logx.Int("dropped", dropped), logx.Int("kept", len(deduped)))
	}

	out := make([]Event, 0, len(deduped))
	for _, r := range deduped {
		out = append(out, Event{
			RawEvent:    r,
			EffectiveAt: n.resolver.Resolve(r.Date, r.Time, r.EffectivePhase()),
			Prices:      prices,
		})
	}
	return out, nil
}
