package event

import (
	"sort"
	"time"
)

// Classify partitions events into today's and upcoming buckets relative to
// now, dropping events that already started. Pure: no I/O, deterministic for
// fixed inputs.
//
// Calendar-day comparison happens in now's location, which is expected to be
// the subscriber timezone.
func Classify(events []Event, now time.Time) (todays, upcoming []Event) {
	today := dateOf(now)

	for _, e := range events {
		if e.EffectiveAt != nil && e.EffectiveAt.Before(now) {
			continue
		}

		var day time.Time
		if e.EffectiveAt != nil {
			day = dateOf(e.EffectiveAt.In(now.Location()))
		} else {
			// Time unknown: fall back to the calendar date alone.
			d, err := time.ParseInLocation(dateLayout, e.Date, now.Location())
			if err != nil {
				continue
			}
			day = dateOf(d)
		}

		switch {
		case day.Equal(today):
			todays = append(todays, e)
		case day.After(today):
			upcoming = append(upcoming, e)
		}
	}

	sortByEffective(todays)
	sortByEffective(upcoming)
	return todays, upcoming
}

// sortByEffective orders ascending by effective time. Events without one sort
// last; ties among them keep encounter order.
func sortByEffective(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].EffectiveAt, events[j].EffectiveAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
