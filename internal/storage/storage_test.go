package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/odds"
)

var gameDate = time.Date(2025, time.October, 28, 20, 0, 0, 0, time.UTC)

func mustEvent(t *testing.T, sport string, date time.Time, title string, participants ...string) *event.Event {
	t.Helper()
	evt, err := event.New(sport, date, title, participants, "", nil)
	if err != nil {
		t.Fatalf("building test event: %v", err)
	}
	return evt
}

func TestUpsertEvents_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	evt := mustEvent(t, "nfl", gameDate, "Chiefs vs Bills", "Kansas City Chiefs", "Buffalo Bills")

	first, err := store.UpsertEvents(ctx, []*event.Event{evt})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.Inserted != 1 || first.Updated != 0 {
		t.Errorf("first upsert = %+v, want 1 inserted", first)
	}
	firstID := evt.ID
	firstScraped := evt.ScrapedAt

	// Re-collection of the same real-world event must update, not duplicate.
	again := mustEvent(t, "nfl", gameDate, "Chiefs vs Bills", "Kansas City Chiefs", "Buffalo Bills")
	again.ScrapedAt = firstScraped.Add(time.Minute)

	second, err := store.UpsertEvents(ctx, []*event.Event{again})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Inserted != 0 || second.Updated != 1 {
		t.Errorf("second upsert = %+v, want 1 updated", second)
	}

	all, _ := store.QueryEvents(ctx, Filter{})
	if len(all) != 1 {
		t.Fatalf("store holds %d rows, want 1", len(all))
	}
	if all[0].ID != firstID {
		t.Errorf("ID changed on update: %d → %d", firstID, all[0].ID)
	}
	if !all[0].ScrapedAt.After(firstScraped) {
		t.Error("ScrapedAt did not advance on re-collection")
	}
}

func TestUpsertEvents_DedupWithinBatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	a := mustEvent(t, "nba", gameDate, "Lakers vs Celtics", "Lakers", "Celtics")
	a.Location = "first write"
	b := mustEvent(t, "nba", gameDate, "Lakers vs Celtics", "Lakers", "Celtics")
	b.Location = "last write"

	if _, err := store.UpsertEvents(ctx, []*event.Event{a, b}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	all, _ := store.QueryEvents(ctx, Filter{})
	if len(all) != 1 {
		t.Fatalf("store holds %d rows, want 1", len(all))
	}
	if all[0].Location != "last write" {
		t.Errorf("Location = %q, want last write to win", all[0].Location)
	}
}

func TestQueryEvents_FilterConjunction(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	d1 := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	d3 := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)

	store.UpsertEvents(ctx, []*event.Event{
		mustEvent(t, "futbol", d2, "Arsenal vs Chelsea", "Arsenal", "Chelsea"),
		mustEvent(t, "futbol", d3, "Liverpool vs Everton", "Liverpool", "Everton"),
		mustEvent(t, "nba", d2, "Lakers vs Celtics", "Lakers", "Celtics"),
		mustEvent(t, "futbol", d1, "Spurs vs West Ham", "Spurs", "West Ham"),
	})

	got, err := store.QueryEvents(ctx, Filter{
		Sport: "futbol",
		From:  time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		To:    time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("query returned %d events, want 2", len(got))
	}
	for _, evt := range got {
		if evt.Sport != "futbol" {
			t.Errorf("query leaked sport %q", evt.Sport)
		}
	}
	if !got[0].Date.Before(got[1].Date) {
		t.Error("results not ordered by date ascending")
	}
}

func TestQueryEvents_LimitCap(t *testing.T) {
	f := Filter{Limit: 50000}
	if f.limit() != MaxLimit {
		t.Errorf("limit() = %d, want hard cap %d", f.limit(), MaxLimit)
	}
	if (Filter{}).limit() != DefaultLimit {
		t.Errorf("default limit = %d, want %d", (Filter{}).limit(), DefaultLimit)
	}
}

func TestEventsForDay(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	day := time.Date(2025, 10, 28, 0, 0, 0, 0, time.UTC)
	store.UpsertEvents(ctx, []*event.Event{
		mustEvent(t, "nfl", day.Add(20*time.Hour), "Chiefs vs Bills", "Chiefs", "Bills"),
		mustEvent(t, "nfl", day.AddDate(0, 0, 1), "Jets vs Giants", "Jets", "Giants"),
		mustEvent(t, "nba", day.Add(2*time.Hour), "Lakers vs Celtics", "Lakers", "Celtics"),
	})

	got, err := store.EventsForDay(ctx, day, "")
	if err != nil {
		t.Fatalf("EventsForDay: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("EventsForDay returned %d events, want 2", len(got))
	}

	nflOnly, _ := store.EventsForDay(ctx, day, "nfl")
	if len(nflOnly) != 1 || nflOnly[0].Sport != "nfl" {
		t.Errorf("EventsForDay with sport filter returned %v", nflOnly)
	}
}

func TestMatchEventForOdds(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	store.UpsertEvents(ctx, []*event.Event{
		mustEvent(t, "nba", gameDate, "Lakers vs Celtics", "Los Angeles Lakers", "Boston Celtics"),
		mustEvent(t, "nfl", gameDate, "Chiefs vs Bills", "Kansas City Chiefs", "Buffalo Bills"),
	})

	// Odds sources abbreviate names; substring containment bridges that.
	o := &odds.Odds{SportKey: "americanfootball_nfl", HomeTeam: "Kansas City", AwayTeam: "Buffalo Bills", CommenceTime: gameDate}
	matched, err := store.MatchEventForOdds(ctx, o)
	if err != nil {
		t.Fatalf("MatchEventForOdds: %v", err)
	}
	if matched == nil || matched.Title != "Chiefs vs Bills" {
		t.Errorf("matched %v, want Chiefs vs Bills", matched)
	}

	unmatched, err := store.MatchEventForOdds(ctx, &odds.Odds{HomeTeam: "Real Madrid", AwayTeam: "Barcelona"})
	if err != nil {
		t.Fatalf("MatchEventForOdds: %v", err)
	}
	if unmatched != nil {
		t.Errorf("matched %v, want no match", unmatched)
	}
}

func TestUpsertOdds_OverwritesAndRecomputesBest(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	o := &odds.Odds{
		SportKey: "basketball_nba", HomeTeam: "Lakers", AwayTeam: "Celtics",
		CommenceTime: gameDate,
		Quotes:       []odds.Quote{{Bookmaker: "A", Home: 1.80, Away: 2.00}},
		// Deliberately stale derived state; the store must not trust it.
		Best:      odds.BestOdds{Home: odds.BestPrice{Price: 99, Bookmaker: "bogus"}},
		FetchedAt: time.Now().UTC(),
	}

	res, err := store.UpsertOdds(ctx, []*odds.Odds{o})
	if err != nil {
		t.Fatalf("UpsertOdds: %v", err)
	}
	if res.Inserted != 1 {
		t.Errorf("first upsert = %+v, want 1 inserted", res)
	}

	refresh := &odds.Odds{
		SportKey: "basketball_nba", HomeTeam: "Lakers", AwayTeam: "Celtics",
		CommenceTime: gameDate,
		Quotes:       []odds.Quote{{Bookmaker: "A", Home: 1.85, Away: 1.95}, {Bookmaker: "B", Home: 1.90, Away: 1.92}},
		FetchedAt:    time.Now().UTC(),
	}
	res, err = store.UpsertOdds(ctx, []*odds.Odds{refresh})
	if err != nil {
		t.Fatalf("UpsertOdds refresh: %v", err)
	}
	if res.Updated != 1 {
		t.Errorf("refresh = %+v, want 1 updated (overwrite, not append)", res)
	}

	id := int64(7)
	refresh.EventID = &id
	store.UpsertOdds(ctx, []*odds.Odds{refresh})

	stored, err := store.OddsForEvent(ctx, 7)
	if err != nil {
		t.Fatalf("OddsForEvent: %v", err)
	}
	if stored.Best.Home.Price != 1.90 || stored.Best.Home.Bookmaker != "B" {
		t.Errorf("best home = %.2f@%s, want recomputed 1.90@B", stored.Best.Home.Price, stored.Best.Home.Bookmaker)
	}
}

func TestGetEvent_NotFound(t *testing.T) {
	store := NewMemory()
	if _, err := store.GetEvent(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEvent error = %v, want ErrNotFound", err)
	}
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	id1, err := store.AddSubscription(ctx, Subscription{Name: "ops", URL: "https://example.com/hook", Enabled: true})
	if err != nil {
		t.Fatalf("AddSubscription: %v", err)
	}
	if id1 == "" {
		t.Fatal("AddSubscription returned empty ID")
	}
	store.AddSubscription(ctx, Subscription{Name: "staging", URL: "https://staging.example.com/hook", Enabled: false})

	enabled, _ := store.Subscriptions(ctx, true)
	if len(enabled) != 1 || enabled[0].Name != "ops" {
		t.Errorf("enabled subscriptions = %v, want just ops", enabled)
	}

	all, _ := store.Subscriptions(ctx, false)
	if len(all) != 2 {
		t.Errorf("all subscriptions = %d, want 2", len(all))
	}

	if err := store.RemoveSubscription(ctx, id1); err != nil {
		t.Fatalf("RemoveSubscription: %v", err)
	}
	if err := store.RemoveSubscription(ctx, id1); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove error = %v, want ErrNotFound", err)
	}
}

func TestUnsyncedEvents(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	store.UpsertEvents(ctx, []*event.Event{
		mustEvent(t, "f1", gameDate, "Mexico City Grand Prix"),
		mustEvent(t, "f1", gameDate.AddDate(0, 0, 7), "Brazil Grand Prix"),
	})

	pending, _ := store.UnsyncedEvents(ctx)
	if len(pending) != 2 {
		t.Fatalf("unsynced = %d, want 2", len(pending))
	}

	store.MarkSynced(ctx, []int64{pending[0].ID})
	pending, _ = store.UnsyncedEvents(ctx)
	if len(pending) != 1 {
		t.Errorf("unsynced after MarkSynced = %d, want 1", len(pending))
	}
}

func TestNamesOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Kansas City Chiefs", "Kansas City", true},
		{"Kansas City", "Kansas City Chiefs", true},
		{"BUFFALO BILLS", "buffalo bills", true},
		{"Arsenal", "Chelsea", false},
		{"", "Chelsea", false},
	}
	for _, tt := range tests {
		if got := namesOverlap(tt.a, tt.b); got != tt.want {
			t.Errorf("namesOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
