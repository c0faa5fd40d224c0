package event

import (
	"strings"
	"time"
)

// zoneOffsets maps the timezone abbreviations US TV listings use to fixed
// UTC offsets. The two-letter forms ("ET") are ambiguous between standard
// and daylight time; standard offsets are close enough for schedule data.
var zoneOffsets = map[string]int{
	"ET": -5 * 3600, "EST": -5 * 3600, "EDT": -4 * 3600,
	"CT": -6 * 3600, "CST": -6 * 3600, "CDT": -5 * 3600,
	"MT": -7 * 3600, "MST": -7 * 3600, "MDT": -6 * 3600,
	"PT": -8 * 3600, "PST": -8 * 3600, "PDT": -7 * 3600,
	"GMT": 0, "UTC": 0, "BST": 1 * 3600,
}

var absoluteLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"01/02/2006",
	"01/02/06",
	"2 January 2006",
}

var zonedLayouts = []string{
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"Jan 2, 2006 15:04",
}

// ParseDate normalizes a source date string to a UTC time.
// Returns time.Time{} (zero value) if parsing fails.
// Supported forms include RFC3339, "2025-10-28", "Oct 28, 2025 3:00 PM ET",
// "January 15, 2025", "01/15/2025", "Jan 15" (year taken from ref) and the
// relative words "Today" and "Tomorrow".
func ParseDate(dateText string, ref time.Time) time.Time {
	s := strings.TrimSpace(dateText)
	if s == "" {
		return time.Time{}
	}
	if ref.IsZero() {
		ref = time.Now().UTC()
	}

	switch strings.ToLower(s) {
	case "today":
		return midnight(ref)
	case "tomorrow":
		return midnight(ref.AddDate(0, 0, 1))
	}

	// Machine-readable ISO forms first; the odds API and a few schedule
	// pages emit these directly.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC()
	}

	// US TV-listing style with a trailing timezone abbreviation.
	if t, ok := parseWithZoneAbbrev(s); ok {
		return t
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}

	// Month and day only; the year comes from the reference time.
	for _, layout := range []string{"Jan 2", "January 2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(ref.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}

	return time.Time{}
}

// CombineTime attaches a clock-only string such as "3:00 PM" or "19:45" to
// a calendar day. When the clock cannot be parsed the event defaults to
// noon, which keeps it on the right day in every timezone the sources use.
func CombineTime(day time.Time, clock string) time.Time {
	clock = strings.ToUpper(strings.TrimSpace(clock))
	for _, layout := range []string{"3:04 PM", "15:04"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, time.UTC)
}

func parseWithZoneAbbrev(s string) (time.Time, bool) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return time.Time{}, false
	}
	offset, ok := zoneOffsets[strings.ToUpper(s[i+1:])]
	if !ok {
		return time.Time{}, false
	}

	rest := strings.TrimSpace(s[:i])
	loc := time.FixedZone(strings.ToUpper(s[i+1:]), offset)
	for _, layout := range zonedLayouts {
		if t, err := time.ParseInLocation(layout, rest, loc); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
