package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pfrederiksen/game-watcher/internal/collector"
	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/fetch"
	"github.com/pfrederiksen/game-watcher/internal/logger"
	"github.com/pfrederiksen/game-watcher/internal/odds"
	"github.com/pfrederiksen/game-watcher/internal/storage"
	"github.com/pfrederiksen/game-watcher/internal/webhook"
)

// fakeCollector serves canned events, standing in for a live source.
type fakeCollector struct {
	sport  string
	events []*event.Event
	err    error
}

func (f *fakeCollector) Sport() string { return f.sport }

func (f *fakeCollector) Collect(context.Context) ([]*event.Event, error) {
	return f.events, f.err
}

type fakeBackfiller struct {
	fakeCollector
	gotYear  int
	gotMonth time.Month
}

func (f *fakeBackfiller) Backfill(_ context.Context, year int, month time.Month) ([]*event.Event, error) {
	f.gotYear, f.gotMonth = year, month
	return f.events, f.err
}

func mustEvent(t *testing.T, sport, title string, participants ...string) *event.Event {
	t.Helper()
	evt, err := event.New(sport, time.Date(2025, 10, 28, 20, 0, 0, 0, time.UTC), title, participants, "", nil)
	if err != nil {
		t.Fatalf("building test event: %v", err)
	}
	return evt
}

func newService(t *testing.T, store storage.Store, collectors ...collector.Collector) *Service {
	t.Helper()
	oddsClient := odds.NewClient(fetch.New(logger.Nop()), "", 0, logger.Nop())
	hooks := webhook.NewDispatcher(logger.Nop(), webhook.WithURLValidator(func(string) error { return nil }))
	return New(store, collector.NewRegistry(collectors...), oddsClient, hooks, logger.Nop())
}

func TestCollect_StoresAndReports(t *testing.T) {
	store := storage.NewMemory()
	svc := newService(t, store, &fakeCollector{sport: "nfl", events: []*event.Event{
		mustEvent(t, "nfl", "Chiefs vs Bills", "Kansas City Chiefs", "Buffalo Bills"),
	}})

	res, err := svc.Collect(context.Background(), "nfl")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if res.Collected != 1 || res.Inserted != 1 || res.Updated != 0 {
		t.Errorf("result = %+v, want 1 collected and inserted", res)
	}

	// A second run of the same schedule updates in place.
	svc2 := newService(t, store, &fakeCollector{sport: "nfl", events: []*event.Event{
		mustEvent(t, "nfl", "Chiefs vs Bills", "Kansas City Chiefs", "Buffalo Bills"),
	}})
	res, err = svc2.Collect(context.Background(), "nfl")
	if err != nil {
		t.Fatalf("second Collect: %v", err)
	}
	if res.Inserted != 0 || res.Updated != 1 {
		t.Errorf("second run = %+v, want pure update", res)
	}
}

func TestCollect_UnsupportedSport(t *testing.T) {
	svc := newService(t, storage.NewMemory())

	_, err := svc.Collect(context.Background(), "cricket")
	var verr *event.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestCollect_OnlyNewEventsTriggerWebhooks(t *testing.T) {
	var deliveries atomic.Int32
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deliveries.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer sink.Close()

	store := storage.NewMemory()
	svc := newService(t, store, &fakeCollector{sport: "nba", events: []*event.Event{
		mustEvent(t, "nba", "Lakers vs Celtics", "Lakers", "Celtics"),
	}})
	if _, err := svc.RegisterWebhook(context.Background(), "sink", sink.URL); err != nil {
		t.Fatalf("RegisterWebhook: %v", err)
	}

	if _, err := svc.Collect(context.Background(), "nba"); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := deliveries.Load(); got != 1 {
		t.Fatalf("first run made %d deliveries, want 1", got)
	}

	// Nothing new on the second run, so nothing is delivered.
	if _, err := svc.Collect(context.Background(), "nba"); err != nil {
		t.Fatalf("second Collect: %v", err)
	}
	if got := deliveries.Load(); got != 1 {
		t.Errorf("re-collection made %d total deliveries, want still 1", got)
	}
}

func TestCollectAll_ContinuesPastFailures(t *testing.T) {
	store := storage.NewMemory()
	svc := newService(t, store,
		&fakeCollector{sport: "nfl", err: errors.New("source exploded")},
		&fakeCollector{sport: "nba", events: []*event.Event{
			mustEvent(t, "nba", "Lakers vs Celtics", "Lakers", "Celtics"),
		}},
	)

	results := svc.CollectAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want one per sport", len(results))
	}

	byName := map[string]CollectResult{}
	for _, r := range results {
		byName[r.Sport] = r
	}
	if byName["nfl"].Inserted != 0 {
		t.Errorf("failed sport reported %d inserts", byName["nfl"].Inserted)
	}
	if byName["nba"].Inserted != 1 {
		t.Errorf("healthy sport inserted %d, want 1", byName["nba"].Inserted)
	}
}

func TestBackfill_UsesBackfillerWhenAvailable(t *testing.T) {
	bf := &fakeBackfiller{fakeCollector: fakeCollector{sport: "futbol", events: []*event.Event{
		mustEvent(t, "futbol", "Arsenal vs Chelsea", "Arsenal", "Chelsea"),
	}}}
	svc := newService(t, storage.NewMemory(), bf)

	res, err := svc.Backfill(context.Background(), "futbol", 2025, time.September)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if bf.gotYear != 2025 || bf.gotMonth != time.September {
		t.Errorf("backfiller called with %d-%v", bf.gotYear, bf.gotMonth)
	}
	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", res.Inserted)
	}
}

func TestBackfill_FallsBackToCollect(t *testing.T) {
	svc := newService(t, storage.NewMemory(), &fakeCollector{sport: "boxing", events: []*event.Event{
		mustEvent(t, "boxing", "Usyk vs Fury", "Usyk", "Fury"),
	}})

	res, err := svc.Backfill(context.Background(), "boxing", 2025, time.September)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", res.Inserted)
	}
}

func TestQuery_RejectsUnknownSport(t *testing.T) {
	svc := newService(t, storage.NewMemory())

	_, err := svc.Query(context.Background(), storage.Filter{Sport: "handball"})
	var verr *event.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestCollectBettingOdds(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{
				"id": "abc123",
				"sport_key": "americanfootball_nfl",
				"commence_time": "2025-10-28T20:00:00Z",
				"home_team": "Kansas City Chiefs",
				"away_team": "Buffalo Bills",
				"bookmakers": [
					{
						"key": "draftkings",
						"title": "DraftKings",
						"markets": [
							{
								"key": "h2h",
								"outcomes": [
									{"name": "Kansas City Chiefs", "price": 1.8},
									{"name": "Buffalo Bills", "price": 2.1}
								]
							}
						]
					}
				]
			}
		]`)
	}))
	defer api.Close()

	store := storage.NewMemory()
	store.UpsertEvents(context.Background(), []*event.Event{
		mustEvent(t, "nfl", "Chiefs vs Bills", "Kansas City Chiefs", "Buffalo Bills"),
	})

	oddsClient := odds.NewClient(fetch.New(logger.Nop()), "test-key", 0, logger.Nop(), odds.WithBaseURL(api.URL))
	hooks := webhook.NewDispatcher(logger.Nop())
	svc := New(store, collector.NewRegistry(&fakeCollector{sport: "nfl"}), oddsClient, hooks, logger.Nop())

	res, err := svc.CollectBettingOdds(context.Background())
	if err != nil {
		t.Fatalf("CollectBettingOdds: %v", err)
	}
	if res.Collected != 1 || res.Matched != 1 || res.Stored != 1 {
		t.Fatalf("result = %+v, want 1/1/1", res)
	}

	events, _ := store.QueryEvents(context.Background(), storage.Filter{})
	linked, err := svc.GetOddsForEvent(context.Background(), events[0].ID)
	if err != nil {
		t.Fatalf("GetOddsForEvent: %v", err)
	}
	if linked.Best.Home.Bookmaker != "DraftKings" || linked.Best.Home.Price != 1.8 {
		t.Errorf("best home = %+v", linked.Best.Home)
	}
}

func TestCollectBettingOdds_RequiresAPIKey(t *testing.T) {
	svc := newService(t, storage.NewMemory())
	if _, err := svc.CollectBettingOdds(context.Background()); err == nil {
		t.Fatal("expected error without an API key")
	}
}

func TestTriggerWebhooks(t *testing.T) {
	var deliveries atomic.Int32
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deliveries.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer sink.Close()

	store := storage.NewMemory()
	day := time.Date(2025, 10, 28, 0, 0, 0, 0, time.UTC)
	store.UpsertEvents(context.Background(), []*event.Event{
		mustEvent(t, "nba", "Lakers vs Celtics", "Lakers", "Celtics"),
	})

	svc := newService(t, store)
	if _, err := svc.RegisterWebhook(context.Background(), "sink", sink.URL); err != nil {
		t.Fatalf("RegisterWebhook: %v", err)
	}

	report, err := svc.TriggerWebhooks(context.Background(), day, "")
	if err != nil {
		t.Fatalf("TriggerWebhooks: %v", err)
	}
	if report.Delivered != 1 || deliveries.Load() != 1 {
		t.Errorf("report = %+v with %d requests, want one delivery", report, deliveries.Load())
	}
}

func TestRegisterWebhook_RejectsUnsafeURL(t *testing.T) {
	store := storage.NewMemory()
	// Default URL policy, no overrides.
	hooks := webhook.NewDispatcher(logger.Nop())
	oddsClient := odds.NewClient(fetch.New(logger.Nop()), "", 0, logger.Nop())
	svc := New(store, collector.NewRegistry(), oddsClient, hooks, logger.Nop())

	if _, err := svc.RegisterWebhook(context.Background(), "bad", "http://192.168.1.5/hook"); !errors.Is(err, webhook.ErrUnsafeURL) {
		t.Fatalf("error = %v, want ErrUnsafeURL", err)
	}

	subs, _ := svc.Webhooks(context.Background())
	if len(subs) != 0 {
		t.Errorf("unsafe registration persisted: %v", subs)
	}
}
