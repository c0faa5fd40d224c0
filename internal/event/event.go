package event

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sports is the fixed set of sports the collectors know how to fetch.
// Request validation and collector registration both check against it.
var Sports = []string{"futbol", "f1", "boxing", "mma", "nfl", "nba"}

// SupportedSport reports whether sport is in the supported set.
func SupportedSport(sport string) bool {
	for _, s := range Sports {
		if s == sport {
			return true
		}
	}
	return false
}

// Event represents a single scheduled sports event.
type Event struct {
	ID           int64     `json:"id,omitempty"`
	Sport        string    `json:"sport"`
	Date         time.Time `json:"date"`
	Title        string    `json:"title"`
	Participants []string  `json:"participants"`
	Location     string    `json:"location,omitempty"`
	Leagues      []string  `json:"leagues,omitempty"`
	WatchLink    string    `json:"watch_link,omitempty"`
	ScrapedAt    time.Time `json:"scraped_at"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// ValidationError reports a record that cannot be coerced into the
// canonical shape. Collectors catch it per record and drop the record;
// request handlers surface it to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Reason)
}

// New builds a validated Event. It enforces the required fields (supported
// sport, non-zero date, non-empty title), deduplicates participants while
// preserving their order, deduplicates and sorts leagues, and stamps
// ScrapedAt with the current time.
func New(sport string, date time.Time, title string, participants []string, location string, leagues []string) (*Event, error) {
	if !SupportedSport(sport) {
		return nil, &ValidationError{Field: "sport", Reason: fmt.Sprintf("%q is not supported", sport)}
	}
	if date.IsZero() {
		return nil, &ValidationError{Field: "date", Reason: "missing or unparseable"}
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}

	return &Event{
		Sport:        sport,
		Date:         date.UTC(),
		Title:        title,
		Participants: dedupOrdered(participants),
		Location:     strings.TrimSpace(location),
		Leagues:      dedupSorted(leagues),
		ScrapedAt:    time.Now().UTC(),
	}, nil
}

// NaturalKey returns the business key that identifies this event across
// repeated collections. Two scrapes of the same real-world event always
// produce the same key, regardless of surrogate IDs.
func (e *Event) NaturalKey() string {
	return GenerateKey(e.Sport, e.Date, e.Title)
}

// GenerateKey creates a deterministic key from the (sport, date, title)
// composite. The title is lowercased so cosmetic casing changes at the
// source do not split an event into two rows.
func GenerateKey(sport string, date time.Time, title string) string {
	h := sha1.New()
	h.Write([]byte(sport + "|" + date.UTC().Format(time.RFC3339) + "|" + strings.ToLower(strings.TrimSpace(title))))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// dedupOrdered removes duplicate and empty entries while keeping the first
// occurrence of each value in place. Participant order is meaningful
// (home side first), so sorting is not an option here.
func dedupOrdered(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// dedupSorted removes duplicates and returns the values sorted. Leagues
// are set-valued, so a stable order keeps keys and comparisons cheap.
func dedupSorted(values []string) []string {
	out := dedupOrdered(values)
	sort.Strings(out)
	return out
}
