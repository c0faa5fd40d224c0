package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/fetch"
)

// Collector fetches the upcoming schedule for a single sport.
type Collector interface {
	// Sport returns the sport identifier, one of event.Sports.
	Sport() string

	// Collect fetches and parses upcoming events. Unreachable sources
	// are logged and skipped; Collect returns an error only for faults
	// that make the whole run meaningless, such as a cancelled context.
	Collect(ctx context.Context) ([]*event.Event, error)
}

// Backfiller is implemented by collectors whose sources can be targeted
// at an arbitrary month instead of the upcoming window.
type Backfiller interface {
	Backfill(ctx context.Context, year int, month time.Month) ([]*event.Event, error)
}

// Registry holds the configured collectors keyed by sport, preserving
// registration order for deterministic all-sports runs.
type Registry struct {
	order   []string
	bySport map[string]Collector
}

// NewRegistry builds a registry from the given collectors. A duplicate
// sport replaces the earlier registration.
func NewRegistry(collectors ...Collector) *Registry {
	r := &Registry{bySport: make(map[string]Collector, len(collectors))}
	for _, c := range collectors {
		if _, exists := r.bySport[c.Sport()]; !exists {
			r.order = append(r.order, c.Sport())
		}
		r.bySport[c.Sport()] = c
	}
	return r
}

// Default returns a registry with the collectors for every supported
// sport, sharing one HTTP client.
func Default(client *fetch.Client, log *zap.SugaredLogger) *Registry {
	return NewRegistry(
		NewFutbol(client, log),
		NewF1(client, log),
		NewBoxing(client, log),
		NewMMA(client, log),
		NewNFL(client, log),
		NewNBA(client, log),
	)
}

// Get returns the collector for sport.
func (r *Registry) Get(sport string) (Collector, bool) {
	c, ok := r.bySport[sport]
	return c, ok
}

// Sports returns the registered sports in registration order.
func (r *Registry) Sports() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns the collectors in registration order.
func (r *Registry) All() []Collector {
	out := make([]Collector, 0, len(r.order))
	for _, sport := range r.order {
		out = append(out, r.bySport[sport])
	}
	return out
}
