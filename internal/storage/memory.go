package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/odds"
)

// Memory is an in-process Store guarded by a single mutex. Every upsert is
// an atomic check-then-write under the lock, giving the same last-write-
// wins semantics as the Postgres implementation.
type Memory struct {
	mu          sync.Mutex
	nextEventID int64
	nextOddsID  int64
	events      map[string]*event.Event // natural key → record
	oddsRecords map[string]*odds.Odds   // natural key → record
	synced      map[int64]bool
	subs        map[string]Subscription
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		events:      make(map[string]*event.Event),
		oddsRecords: make(map[string]*odds.Odds),
		synced:      make(map[int64]bool),
		subs:        make(map[string]Subscription),
	}
}

func (m *Memory) UpsertEvents(_ context.Context, events []*event.Event) (UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res UpsertResult
	now := time.Now().UTC()
	for _, incoming := range events {
		stored := cloneEvent(incoming)
		if stored.ScrapedAt.IsZero() {
			stored.ScrapedAt = now
		}

		key := stored.NaturalKey()
		if existing, ok := m.events[key]; ok {
			stored.ID = existing.ID
			stored.CreatedAt = existing.CreatedAt
			res.Updated++
		} else {
			m.nextEventID++
			stored.ID = m.nextEventID
			stored.CreatedAt = now
			res.Inserted++
			res.New = append(res.New, cloneEvent(stored))
		}
		incoming.ID = stored.ID
		m.events[key] = stored
	}
	return res, nil
}

func (m *Memory) QueryEvents(_ context.Context, f Filter) ([]*event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*event.Event
	for _, evt := range m.events {
		if f.Sport != "" && evt.Sport != f.Sport {
			continue
		}
		if !f.From.IsZero() && evt.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && evt.Date.After(f.To) {
			continue
		}
		out = append(out, cloneEvent(evt))
	}

	sortByDate(out)
	if limit := f.limit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) EventsForDay(ctx context.Context, day time.Time, sport string) ([]*event.Event, error) {
	start, end := dayBounds(day)
	return m.QueryEvents(ctx, Filter{Sport: sport, From: start, To: end.Add(-time.Nanosecond), Limit: MaxLimit})
}

func (m *Memory) GetEvent(_ context.Context, id int64) (*event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, evt := range m.events {
		if evt.ID == id {
			return cloneEvent(evt), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UnsyncedEvents(_ context.Context) ([]*event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*event.Event
	for _, evt := range m.events {
		if !m.synced[evt.ID] {
			out = append(out, cloneEvent(evt))
		}
	}
	sortByDate(out)
	return out, nil
}

func (m *Memory) MarkSynced(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		m.synced[id] = true
	}
	return nil
}

func (m *Memory) UpsertOdds(_ context.Context, records []*odds.Odds) (UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res UpsertResult
	for _, incoming := range records {
		stored := cloneOdds(incoming)
		stored.Best = odds.BestFromQuotes(stored.Quotes)

		key := stored.NaturalKey()
		if existing, ok := m.oddsRecords[key]; ok {
			stored.ID = existing.ID
			res.Updated++
		} else {
			m.nextOddsID++
			stored.ID = m.nextOddsID
			res.Inserted++
		}
		m.oddsRecords[key] = stored
	}
	return res, nil
}

func (m *Memory) OddsForEvent(_ context.Context, eventID int64) (*odds.Odds, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range m.oddsRecords {
		if o.EventID != nil && *o.EventID == eventID {
			return cloneOdds(o), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) MatchEventForOdds(_ context.Context, o *odds.Odds) (*event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Insertion order keeps "first match wins" deterministic.
	candidates := make([]*event.Event, 0, len(m.events))
	for _, evt := range m.events {
		candidates = append(candidates, evt)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	for _, evt := range candidates {
		if eventMatchesOdds(evt, o) {
			return cloneEvent(evt), nil
		}
	}
	return nil, nil
}

func (m *Memory) AddSubscription(_ context.Context, sub Subscription) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	m.subs[sub.ID] = sub
	return sub.ID, nil
}

func (m *Memory) Subscriptions(_ context.Context, enabledOnly bool) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		if enabledOnly && !sub.Enabled {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) RemoveSubscription(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[id]; !ok {
		return ErrNotFound
	}
	delete(m.subs, id)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func sortByDate(events []*event.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Title < events[j].Title
	})
}

// cloneEvent copies a record so callers and the store never alias the
// same slices.
func cloneEvent(evt *event.Event) *event.Event {
	out := *evt
	out.Participants = append([]string(nil), evt.Participants...)
	out.Leagues = append([]string(nil), evt.Leagues...)
	return &out
}

func cloneOdds(o *odds.Odds) *odds.Odds {
	out := *o
	out.Quotes = append([]odds.Quote(nil), o.Quotes...)
	if o.EventID != nil {
		id := *o.EventID
		out.EventID = &id
	}
	return &out
}
