// Package event holds the normalization pipeline: raw feed records go in,
// deduplicated, time-resolved, price-enriched events come out, plus the pure
// today/upcoming classification used by digests.
package event

import (
	"time"

	"alphabot/internal/feed"
)

// Event is a normalized feed record.
type Event struct {
	feed.RawEvent

	// EffectiveAt is the resolved start instant in the local (subscriber)
	// timezone. nil means the upstream time was missing or unparsable and the
	// event is display-only.
	EffectiveAt *time.Time

	// Prices is the batch-wide price snapshot. All events normalized in the
	// same call share the same map.
	Prices feed.PriceMap
}

// Key identifies an event for deduplication.
type Key struct {
	Date  string
	Token string
}

func (e Event) Key() Key {
	return Key{Date: e.Date, Token: e.Token}
}

// Dedup collapses raw records sharing a (date, token) key. The record with the
// highest phase wins, by phase value rather than arrival order. Output order
// is first-encounter order of the surviving keys.
func Dedup(raw []feed.RawEvent) []feed.RawEvent {
	byKey := make(map[Key]feed.RawEvent, len(raw))
	order := make([]Key, 0, len(raw))

	for _, ev := range raw {
		k := Key{Date: ev.Date, Token: ev.Token}
		cur, seen := byKey[k]
		if !seen {
			byKey[k] = ev
			order = append(order, k)
			continue
		}
		if ev.EffectivePhase() > cur.EffectivePhase() {
			byKey[k] = ev
		}
	}

	out := make([]feed.RawEvent, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}
