// Package storage owns the persisted event, betting odds, and webhook
// subscription records. Upserts are idempotent and keyed by the records'
// natural keys, so re-collection updates rows instead of duplicating them.
//
// Two implementations are provided: Postgres for deployments and an
// in-memory store with the same semantics for tests and local runs.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/odds"
)

// ErrNotFound is returned when a lookup by ID matches nothing.
var ErrNotFound = errors.New("not found")

const (
	// DefaultLimit applies when a query does not specify one.
	DefaultLimit = 100
	// MaxLimit is the hard cap on any single query.
	MaxLimit = 1000
)

// UpsertResult reports how a batch landed. New holds the freshly
// inserted rows so callers can notify on genuinely new events without
// re-querying.
type UpsertResult struct {
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	New      []*event.Event `json:"-"`
}

// Filter narrows an event query. All set fields apply conjunctively.
type Filter struct {
	Sport string
	From  time.Time
	To    time.Time
	Limit int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	default:
		return f.Limit
	}
}

// Subscription is a registered webhook target.
type Subscription struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// Store is the persistence contract the service layer depends on.
type Store interface {
	// UpsertEvents inserts or refreshes each event by natural key.
	// Existing rows keep their ID and CreatedAt; everything else is
	// overwritten and ScrapedAt advances. Atomic per row.
	UpsertEvents(ctx context.Context, events []*event.Event) (UpsertResult, error)

	// QueryEvents returns events matching the filter, ordered by date
	// ascending.
	QueryEvents(ctx context.Context, f Filter) ([]*event.Event, error)

	// EventsForDay returns the events on a single UTC calendar day,
	// optionally restricted to one sport.
	EventsForDay(ctx context.Context, day time.Time, sport string) ([]*event.Event, error)

	// GetEvent looks an event up by surrogate ID.
	GetEvent(ctx context.Context, id int64) (*event.Event, error)

	// UnsyncedEvents returns events not yet exported to a calendar;
	// MarkSynced flips the flag after a successful export.
	UnsyncedEvents(ctx context.Context) ([]*event.Event, error)
	MarkSynced(ctx context.Context, ids []int64) error

	// UpsertOdds overwrites odds records by natural key. Best odds are
	// recomputed from the stored quotes, never trusted from the caller.
	UpsertOdds(ctx context.Context, records []*odds.Odds) (UpsertResult, error)

	// OddsForEvent returns the odds record linked to an event.
	OddsForEvent(ctx context.Context, eventID int64) (*odds.Odds, error)

	// MatchEventForOdds finds the first stored event whose participants
	// match the odds record's home and away names. Returns (nil, nil)
	// when nothing matches.
	MatchEventForOdds(ctx context.Context, o *odds.Odds) (*event.Event, error)

	AddSubscription(ctx context.Context, sub Subscription) (string, error)
	Subscriptions(ctx context.Context, enabledOnly bool) ([]Subscription, error)
	RemoveSubscription(ctx context.Context, id string) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// namesOverlap implements the deliberately permissive participant match:
// case-insensitive substring containment in either direction. "Kansas
// City" matches "Kansas City Chiefs". False positives are a known
// limitation of this policy, accepted for cross-source name drift.
func namesOverlap(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// eventMatchesOdds reports whether both odds participants appear in the
// event's participant list.
func eventMatchesOdds(evt *event.Event, o *odds.Odds) bool {
	var home, away bool
	for _, p := range evt.Participants {
		if namesOverlap(p, o.HomeTeam) {
			home = true
		}
		if namesOverlap(p, o.AwayTeam) {
			away = true
		}
	}
	return home && away
}

// dayBounds returns the [start, end) UTC window of a calendar day.
func dayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
