package event

import (
	"strings"
	"time"
)

const (
	// The feed publishes clock values in Shanghai time; subscribers read
	// Vietnam time. Both are overridable in config.
	DefaultFeedTimezone  = "Asia/Shanghai"
	DefaultLocalTimezone = "Asia/Ho_Chi_Minh"

	// Phase-2 events start a fixed 18 hours after the listed phase-1 time,
	// per upstream convention.
	phaseTwoOffset = 18 * time.Hour

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// Resolver converts raw (date, time, phase) triples from the feed timezone to
// absolute instants in the local timezone.
type Resolver struct {
	feedTZ  *time.Location
	localTZ *time.Location
}

// NewResolver loads both zones. Empty names fall back to the defaults.
func NewResolver(feedTZ, localTZ string) (*Resolver, error) {
	if strings.TrimSpace(feedTZ) == "" {
		feedTZ = DefaultFeedTimezone
	}
	if strings.TrimSpace(localTZ) == "" {
		localTZ = DefaultLocalTimezone
	}
	f, err := time.LoadLocation(feedTZ)
	if err != nil {
		return nil, err
	}
	l, err := time.LoadLocation(localTZ)
	if err != nil {
		return nil, err
	}
	return &Resolver{feedTZ: f, localTZ: l}, nil
}

// Local returns the subscriber-facing timezone.
func (r *Resolver) Local() *time.Location { return r.localTZ }

// Resolve returns the event's absolute start time, or nil when the inputs
// don't carry a usable clock value. Upstream data quality is unreliable by
// design, so every parse failure maps to nil rather than an error.
//
// Only the first whitespace-delimited field of timeStr is treated as the
// clock; trailing noise like "13:00 Delay" is discarded.
func (r *Resolver) Resolve(dateStr, timeStr string, phase int) *time.Time {
	dateStr = strings.TrimSpace(dateStr)
	timeStr = strings.TrimSpace(timeStr)
	if dateStr == "" || timeStr == "" || !strings.Contains(timeStr, ":") {
		return nil
	}

	fields := strings.Fields(timeStr)
	if len(fields) == 0 || !strings.Contains(fields[0], ":") {
		return nil
	}
	clock := fields[0]

	t, err := time.ParseInLocation(dateTimeLayout, dateStr+" "+clock, r.feedTZ)
	if err != nil {
		return nil
	}
	if phase == 2 {
		t = t.Add(phaseTwoOffset)
	}
	local := t.In(r.localTZ)
	return &local
}
