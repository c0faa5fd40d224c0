// Package service wires collectors, storage, the odds client, and the
// webhook dispatcher into the operations the CLI exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pfrederiksen/game-watcher/internal/collector"
	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/metrics"
	"github.com/pfrederiksen/game-watcher/internal/odds"
	"github.com/pfrederiksen/game-watcher/internal/storage"
	"github.com/pfrederiksen/game-watcher/internal/webhook"
)

// Service orchestrates the collection pipeline.
type Service struct {
	store    storage.Store
	registry *collector.Registry
	odds     *odds.Client
	hooks    *webhook.Dispatcher
	log      *zap.SugaredLogger
}

// New assembles a Service from its dependencies.
func New(store storage.Store, registry *collector.Registry, oddsClient *odds.Client, hooks *webhook.Dispatcher, log *zap.SugaredLogger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		odds:     oddsClient,
		hooks:    hooks,
		log:      log,
	}
}

// CollectResult summarizes one sport's collection run.
type CollectResult struct {
	Sport     string        `json:"sport"`
	Collected int           `json:"collected"`
	Inserted  int           `json:"inserted"`
	Updated   int           `json:"updated"`
	Duration  time.Duration `json:"duration"`
}

// Collect runs one sport's collector, stores the events, and notifies
// webhook subscribers about genuinely new ones.
func (s *Service) Collect(ctx context.Context, sport string) (CollectResult, error) {
	res := CollectResult{Sport: sport}

	c, err := s.collectorFor(sport)
	if err != nil {
		return res, err
	}

	start := time.Now()
	events, err := c.Collect(ctx)
	if err != nil {
		metrics.CollectionErrors.WithLabelValues(sport).Inc()
		return res, fmt.Errorf("collecting %s: %w", sport, err)
	}
	res.Collected = len(events)
	metrics.EventsCollected.WithLabelValues(sport).Add(float64(len(events)))

	upsert, err := s.store.UpsertEvents(ctx, events)
	if err != nil {
		metrics.CollectionErrors.WithLabelValues(sport).Inc()
		return res, fmt.Errorf("storing %s events: %w", sport, err)
	}
	res.Inserted = upsert.Inserted
	res.Updated = upsert.Updated
	res.Duration = time.Since(start)

	metrics.EventsInserted.WithLabelValues(sport).Add(float64(upsert.Inserted))
	metrics.CollectionDuration.WithLabelValues(sport).Observe(res.Duration.Seconds())

	if len(upsert.New) > 0 {
		s.notify(ctx, upsert.New)
	}
	return res, nil
}

// CollectAll runs every registered collector. One sport failing is
// recorded in its result and logged; the rest still run.
func (s *Service) CollectAll(ctx context.Context) []CollectResult {
	results := make([]CollectResult, 0, len(s.registry.Sports()))
	for _, sport := range s.registry.Sports() {
		res, err := s.Collect(ctx, sport)
		if err != nil {
			s.log.Errorw("collection failed", "sport", sport, "error", err)
		}
		results = append(results, res)
	}
	return results
}

// Backfill collects a specific month for sports that support targeting
// one; the others fall back to a regular collection run. Backfilled
// events do not trigger webhooks.
func (s *Service) Backfill(ctx context.Context, sport string, year int, month time.Month) (CollectResult, error) {
	res := CollectResult{Sport: sport}

	c, err := s.collectorFor(sport)
	if err != nil {
		return res, err
	}

	start := time.Now()
	var events []*event.Event
	if bf, ok := c.(collector.Backfiller); ok {
		events, err = bf.Backfill(ctx, year, month)
	} else {
		events, err = c.Collect(ctx)
	}
	if err != nil {
		return res, fmt.Errorf("backfilling %s: %w", sport, err)
	}
	res.Collected = len(events)

	upsert, err := s.store.UpsertEvents(ctx, events)
	if err != nil {
		return res, fmt.Errorf("storing %s events: %w", sport, err)
	}
	res.Inserted = upsert.Inserted
	res.Updated = upsert.Updated
	res.Duration = time.Since(start)
	return res, nil
}

// Query returns stored events matching the filter.
func (s *Service) Query(ctx context.Context, f storage.Filter) ([]*event.Event, error) {
	if f.Sport != "" && !event.SupportedSport(f.Sport) {
		return nil, &event.ValidationError{Field: "sport", Reason: fmt.Sprintf("%q is not supported", f.Sport)}
	}
	return s.store.QueryEvents(ctx, f)
}

// OddsResult summarizes one betting odds cycle.
type OddsResult struct {
	Collected int `json:"collected"`
	Matched   int `json:"matched"`
	Stored    int `json:"stored"`
}

// CollectBettingOdds fetches odds for every sport with an API mapping,
// links them to stored events, and stores them. A sport hitting the
// rate limit is skipped for this cycle.
func (s *Service) CollectBettingOdds(ctx context.Context) (OddsResult, error) {
	var res OddsResult
	if !s.odds.Enabled() {
		return res, errors.New("odds api key not configured")
	}

	for _, sport := range s.registry.Sports() {
		sportKey, ok := odds.SportKeys[sport]
		if !ok {
			continue
		}

		raw, err := s.odds.FetchSport(ctx, sportKey)
		if err != nil {
			if errors.Is(err, odds.ErrRateLimited) {
				s.log.Warnw("odds api rate limited, skipping sport this cycle", "sport", sport)
			} else {
				s.log.Errorw("odds fetch failed", "sport", sport, "error", err)
			}
			continue
		}

		records, err := odds.ParseOdds(raw)
		if err != nil {
			s.log.Errorw("odds response unparseable", "sport", sport, "error", err)
			continue
		}
		res.Collected += len(records)
		metrics.OddsFetched.Add(float64(len(records)))

		for _, record := range records {
			evt, err := s.store.MatchEventForOdds(ctx, record)
			if err != nil {
				s.log.Errorw("odds matching failed", "sport", sport, "error", err)
				continue
			}
			if evt != nil {
				id := evt.ID
				record.EventID = &id
				res.Matched++
				metrics.OddsMatched.Inc()
			}
		}

		stored, err := s.store.UpsertOdds(ctx, records)
		if err != nil {
			s.log.Errorw("storing odds failed", "sport", sport, "error", err)
			continue
		}
		res.Stored += stored.Inserted + stored.Updated
	}

	return res, nil
}

// GetOddsForEvent returns the stored odds linked to an event.
func (s *Service) GetOddsForEvent(ctx context.Context, eventID int64) (*odds.Odds, error) {
	return s.store.OddsForEvent(ctx, eventID)
}

// RegisterWebhook validates and stores a new subscription.
func (s *Service) RegisterWebhook(ctx context.Context, name, url string) (string, error) {
	if err := s.hooks.Validate(url); err != nil {
		return "", err
	}
	return s.store.AddSubscription(ctx, storage.Subscription{Name: name, URL: url, Enabled: true})
}

// Webhooks lists the stored subscriptions.
func (s *Service) Webhooks(ctx context.Context) ([]storage.Subscription, error) {
	return s.store.Subscriptions(ctx, false)
}

// RemoveWebhook deletes a subscription.
func (s *Service) RemoveWebhook(ctx context.Context, id string) error {
	return s.store.RemoveSubscription(ctx, id)
}

// TriggerWebhooks re-delivers a day's events to every enabled
// subscription, for manual recovery after a delivery outage.
func (s *Service) TriggerWebhooks(ctx context.Context, day time.Time, sport string) (webhook.Report, error) {
	if sport != "" && !event.SupportedSport(sport) {
		return webhook.Report{}, &event.ValidationError{Field: "sport", Reason: fmt.Sprintf("%q is not supported", sport)}
	}

	events, err := s.store.EventsForDay(ctx, day, sport)
	if err != nil {
		return webhook.Report{}, fmt.Errorf("loading events for %s: %w", day.Format("2006-01-02"), err)
	}

	subs, err := s.store.Subscriptions(ctx, true)
	if err != nil {
		return webhook.Report{}, fmt.Errorf("loading subscriptions: %w", err)
	}

	report := s.hooks.Deliver(ctx, subs, events)
	s.recordDeliveries(report)
	return report, nil
}

// TestWebhook checks an endpoint's connectivity without touching
// storage.
func (s *Service) TestWebhook(ctx context.Context, url string) (time.Duration, error) {
	return s.hooks.Test(ctx, url)
}

func (s *Service) collectorFor(sport string) (collector.Collector, error) {
	if !event.SupportedSport(sport) {
		return nil, &event.ValidationError{Field: "sport", Reason: fmt.Sprintf("%q is not supported", sport)}
	}
	c, ok := s.registry.Get(sport)
	if !ok {
		return nil, &event.ValidationError{Field: "sport", Reason: fmt.Sprintf("no collector registered for %q", sport)}
	}
	return c, nil
}

func (s *Service) notify(ctx context.Context, events []*event.Event) {
	subs, err := s.store.Subscriptions(ctx, true)
	if err != nil {
		s.log.Errorw("loading subscriptions failed", "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	report := s.hooks.Deliver(ctx, subs, events)
	s.recordDeliveries(report)
	s.log.Infow("notified webhook subscribers",
		"events", len(events), "delivered", report.Delivered, "failed", report.Failed)
}

func (s *Service) recordDeliveries(report webhook.Report) {
	metrics.WebhookDeliveries.WithLabelValues("delivered").Add(float64(report.Delivered))
	metrics.WebhookDeliveries.WithLabelValues("failed").Add(float64(report.Failed))
}
