// Package calendar renders events as iCalendar documents so a schedule
// query can be imported into any calendar application.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/game-watcher/internal/event"
)

// Typical durations per sport, used for DTEND since the sources only
// publish start times.
var sportDurations = map[string]time.Duration{
	"futbol": 2 * time.Hour,
	"nfl":    3 * time.Hour,
	"nba":    3 * time.Hour,
	"f1":     2 * time.Hour,
	"boxing": 4 * time.Hour,
	"mma":    5 * time.Hour,
}

// GenerateICS renders the events as a single VCALENDAR with one VEVENT
// per event.
func GenerateICS(events []*event.Event) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//game-watcher//game-watcher//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	now := time.Now().UTC()
	for _, evt := range events {
		writeVEvent(&ics, evt, now)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeVEvent(ics *strings.Builder, evt *event.Event, stamp time.Time) {
	ics.WriteString("BEGIN:VEVENT\r\n")

	// The natural key survives re-collection, so re-imports update the
	// existing calendar entry instead of duplicating it.
	fmt.Fprintf(ics, "UID:%s@game-watcher\r\n", evt.NaturalKey())
	fmt.Fprintf(ics, "DTSTAMP:%s\r\n", formatICSTime(stamp))
	fmt.Fprintf(ics, "DTSTART:%s\r\n", formatICSTime(evt.Date))
	fmt.Fprintf(ics, "DTEND:%s\r\n", formatICSTime(evt.Date.Add(duration(evt.Sport))))

	fmt.Fprintf(ics, "SUMMARY:%s\r\n", escapeICS(fmt.Sprintf("[%s] %s", strings.ToUpper(evt.Sport), evt.Title)))

	var details []string
	if len(evt.Participants) > 0 {
		details = append(details, "Participants: "+strings.Join(evt.Participants, ", "))
	}
	if len(evt.Leagues) > 0 {
		details = append(details, "Leagues: "+strings.Join(evt.Leagues, ", "))
	}
	if len(details) > 0 {
		fmt.Fprintf(ics, "DESCRIPTION:%s\r\n", escapeICS(strings.Join(details, "\n")))
	}

	if evt.Location != "" {
		fmt.Fprintf(ics, "LOCATION:%s\r\n", escapeICS(evt.Location))
	}
	if evt.WatchLink != "" {
		fmt.Fprintf(ics, "URL:%s\r\n", evt.WatchLink)
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

func duration(sport string) time.Duration {
	if d, ok := sportDurations[sport]; ok {
		return d
	}
	return 2 * time.Hour
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters according to RFC 5545
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
