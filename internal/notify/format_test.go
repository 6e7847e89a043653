package notify

import (
	"strings"
	"testing"
	"time"

	"alphabot/internal/event"
	"alphabot/internal/feed"
)

func TestFormatDigestSectionsAndNextToken(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 1, 15, 0, 0, 0, ict)
	later := time.Date(2025, 6, 2, 10, 0, 0, 0, ict)
	todays := []event.Event{
		{RawEvent: feed.RawEvent{Token: "AAA", Name: "Alpha", Time: "16:00"}, EffectiveAt: &at},
	}
	upcoming := []event.Event{
		{RawEvent: feed.RawEvent{Token: "BBB", Name: "Beta", Time: "11:00"}, EffectiveAt: &later},
	}

	text, next := formatDigest(todays, upcoming)
	if next != "AAA" {
		t.Fatalf("nextToken = %q, want AAA", next)
	}
	if !strings.Contains(text, todaysHeader) || !strings.Contains(text, upcomingHeader) {
		t.Fatalf("missing section headers:\n%s", text)
	}
	// Today rows show the clock only; upcoming rows carry the date too.
	if !strings.Contains(text, "`15:00`") {
		t.Fatalf("today row should show resolved clock:\n%s", text)
	}
	if !strings.Contains(text, "`10:00 02/06`") {
		t.Fatalf("upcoming row should show clock and date:\n%s", text)
	}
}

func TestFormatDigestUpcomingOnly(t *testing.T) {
	t.Parallel()

	later := time.Date(2025, 6, 2, 10, 0, 0, 0, ict)
	upcoming := []event.Event{
		{RawEvent: feed.RawEvent{Token: "BBB", Name: "Beta"}, EffectiveAt: &later},
	}
	text, next := formatDigest(nil, upcoming)
	if next != "BBB" {
		t.Fatalf("nextToken = %q, want BBB", next)
	}
	if strings.Contains(text, todaysHeader) {
		t.Fatalf("empty today section rendered:\n%s", text)
	}
}

func TestFormatDigestEmpty(t *testing.T) {
	t.Parallel()

	text, next := formatDigest(nil, nil)
	if text != nothingAhead || next != "" {
		t.Fatalf("got (%q, %q)", text, next)
	}
}

func TestFormatEventSentinelKeepsRawTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 1, 15, 0, 0, 0, ict)
	e := event.Event{
		RawEvent:    feed.RawEvent{Token: "AAA", Name: "Alpha", Time: "Tomorrow 13:00"},
		EffectiveAt: &at,
	}
	line := formatEvent(e, false)
	if !strings.Contains(line, "Tomorrow 13:00") {
		t.Fatalf("sentinel time replaced by resolved clock:\n%s", line)
	}
}

func TestFormatEventPriceAndValue(t *testing.T) {
	t.Parallel()

	e := event.Event{
		RawEvent: feed.RawEvent{Token: "AAA", Name: "Alpha", Amount: "200"},
		Prices:   feed.PriceMap{"AAA": {DexPrice: 0.5, Price: 0.4}},
	}
	line := formatEvent(e, false)
	if !strings.Contains(line, "$0.5000") {
		t.Fatalf("dex price not preferred:\n%s", line)
	}
	if !strings.Contains(line, "Value: `$100.00`") {
		t.Fatalf("value not computed from amount*price:\n%s", line)
	}
}

func TestFormatEventMissingFields(t *testing.T) {
	t.Parallel()

	line := formatEvent(event.Event{}, false)
	if !strings.Contains(line, "N/A") || !strings.Contains(line, "`TBA`") || !strings.Contains(line, "`-`") {
		t.Fatalf("placeholders missing:\n%s", line)
	}
}

func TestFormatReminderMinutes(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, ict)
	at := now.Add(3 * time.Minute)
	e := event.Event{RawEvent: feed.RawEvent{Token: "AAA", Name: "Alpha"}, EffectiveAt: &at}

	text := formatReminder(e, now)
	if !strings.Contains(text, "*4 min*") {
		t.Fatalf("expected rounded-up minutes:\n%s", text)
	}
	if !strings.Contains(text, "Alpha (AAA)") {
		t.Fatalf("missing event identity:\n%s", text)
	}
}
