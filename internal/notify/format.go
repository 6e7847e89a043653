package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"alphabot/internal/event"
)

const (
	todaysHeader   = "🎁 *Today's Airdrops:*"
	upcomingHeader = "🗓️ *Upcoming Airdrops:*"

	noEventsLine   = "ℹ️ No airdrop events found."
	nothingAhead   = "ℹ️ No upcoming events."
	sectionDivider = "\n\n" + "-------------------------" + "\n\n"
)

// timeSentinels are free-text markers the upstream uses instead of a clock
// value. When present, the raw text is shown as-is rather than the resolved
// instant (the resolved value would mislead: "Tomorrow 13:00" resolves to the
// listed date, not tomorrow).
var timeSentinels = []string{"Tomorrow", "Day after"}

// formatDigest renders the two classified buckets into one Markdown message
// and picks the token of the nearest event for the inline button label.
func formatDigest(todays, upcoming []event.Event) (text string, nextToken string) {
	var parts []string
	if len(todays) > 0 {
		parts = append(parts, todaysHeader+"\n\n"+formatSection(todays, false))
	}
	if len(upcoming) > 0 {
		section := upcomingHeader + "\n\n" + formatSection(upcoming, true)
		if len(parts) > 0 {
			parts = append(parts, sectionDivider+section)
		} else {
			parts = append(parts, section)
		}
	}
	if len(parts) == 0 {
		return nothingAhead, ""
	}

	switch {
	case len(todays) > 0:
		nextToken = todays[0].Token
	case len(upcoming) > 0:
		nextToken = upcoming[0].Token
	}
	return strings.Join(parts, ""), nextToken
}

func formatSection(events []event.Event, includeDate bool) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, formatEvent(e, includeDate))
	}
	return strings.Join(lines, "\n\n")
}

func formatEvent(e event.Event, includeDate bool) string {
	name := orNA(e.Name)
	token := orNA(e.Token)
	points := orDash(e.Points)
	amount := orDash(e.Amount)

	display := e.Time
	if display == "" {
		display = "TBA"
	}
	if e.EffectiveAt != nil && !containsSentinel(e.Time) {
		display = e.EffectiveAt.Format("15:04")
		if includeDate {
			display += " " + e.EffectiveAt.Format("02/01")
		}
	}

	var price string
	var value string
	if q, ok := e.Prices[e.Token]; ok {
		if p := q.Best(); p > 0 {
			price = fmt.Sprintf(" (`$%s`)", formatPrice(p))
			if amt, err := strconv.ParseFloat(e.Amount, 64); err == nil {
				value = fmt.Sprintf("\n  Value: `$%.2f`", amt*p)
			}
		}
	}

	return fmt.Sprintf("*%s (%s)*%s\n  Points: `%s`\n  Amount: `%s`%s\n  Time: `%s`",
		name, token, price, points, amount, value, display)
}

// formatReminder renders the short pre-event ping.
func formatReminder(e event.Event, now time.Time) string {
	minutesLeft := 1
	if e.EffectiveAt != nil {
		minutesLeft = int(e.EffectiveAt.Sub(now).Minutes()) + 1
	}
	return fmt.Sprintf("‼️ *REMINDER* ‼️\n\nEvent: *%s (%s)*\nStarts in about *%d min*.",
		orNA(e.Name), orNA(e.Token), minutesLeft)
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 4, 64)
}

func containsSentinel(s string) bool {
	for _, m := range timeSentinels {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
