package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/odds"
)

// Postgres implements Store on a Postgres database. Each upsert is a
// single INSERT ... ON CONFLICT statement, so concurrent collectors
// hitting the same natural key resolve to last-write-wins without errors.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens the database and ensures the schema exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			natural_key TEXT NOT NULL UNIQUE,
			sport TEXT NOT NULL,
			date TIMESTAMPTZ NOT NULL,
			title TEXT NOT NULL,
			participants TEXT NOT NULL DEFAULT '[]',
			location TEXT NOT NULL DEFAULT '',
			leagues TEXT NOT NULL DEFAULT '[]',
			watch_link TEXT NOT NULL DEFAULT '',
			scraped_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			synced_to_calendar BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_sport_date ON events (sport, date)`,
		`CREATE TABLE IF NOT EXISTS betting_odds (
			id BIGSERIAL PRIMARY KEY,
			natural_key TEXT NOT NULL UNIQUE,
			event_id BIGINT REFERENCES events(id),
			sport_key TEXT NOT NULL,
			home_team TEXT NOT NULL,
			away_team TEXT NOT NULL,
			commence_time TIMESTAMPTZ NOT NULL,
			quotes TEXT NOT NULL DEFAULT '[]',
			fetched_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_betting_odds_event ON betting_odds (event_id)`,
		`CREATE TABLE IF NOT EXISTS webhook_subscriptions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) UpsertEvents(ctx context.Context, events []*event.Event) (UpsertResult, error) {
	var res UpsertResult
	now := time.Now().UTC()

	for _, evt := range events {
		scrapedAt := evt.ScrapedAt
		if scrapedAt.IsZero() {
			scrapedAt = now
		}
		participants, err := json.Marshal(evt.Participants)
		if err != nil {
			return res, fmt.Errorf("encoding participants: %w", err)
		}
		leagues, err := json.Marshal(evt.Leagues)
		if err != nil {
			return res, fmt.Errorf("encoding leagues: %w", err)
		}

		// xmax = 0 distinguishes a fresh insert from a conflict update.
		var inserted bool
		err = p.db.QueryRowContext(ctx, `
			INSERT INTO events (natural_key, sport, date, title, participants, location, leagues, watch_link, scraped_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (natural_key) DO UPDATE SET
				participants = EXCLUDED.participants,
				location = EXCLUDED.location,
				leagues = EXCLUDED.leagues,
				watch_link = EXCLUDED.watch_link,
				scraped_at = EXCLUDED.scraped_at
			RETURNING id, (xmax = 0)`,
			evt.NaturalKey(), evt.Sport, evt.Date.UTC(), evt.Title,
			string(participants), evt.Location, string(leagues), evt.WatchLink, scrapedAt,
		).Scan(&evt.ID, &inserted)
		if err != nil {
			return res, fmt.Errorf("upserting event %q: %w", evt.Title, err)
		}

		if inserted {
			res.Inserted++
			res.New = append(res.New, evt)
		} else {
			res.Updated++
		}
	}
	return res, nil
}

const eventColumns = `id, sport, date, title, participants, location, leagues, watch_link, scraped_at, created_at`

func (p *Postgres) QueryEvents(ctx context.Context, f Filter) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	var args []interface{}

	if f.Sport != "" {
		args = append(args, f.Sport)
		query += fmt.Sprintf(" AND sport = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From.UTC())
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To.UTC())
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	args = append(args, f.limit())
	query += fmt.Sprintf(" ORDER BY date ASC, title ASC LIMIT $%d", len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (p *Postgres) EventsForDay(ctx context.Context, day time.Time, sport string) ([]*event.Event, error) {
	start, end := dayBounds(day)
	return p.QueryEvents(ctx, Filter{Sport: sport, From: start, To: end.Add(-time.Microsecond), Limit: MaxLimit})
}

func (p *Postgres) GetEvent(ctx context.Context, id int64) (*event.Event, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	evt, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading event %d: %w", id, err)
	}
	return evt, nil
}

func (p *Postgres) UnsyncedEvents(ctx context.Context) ([]*event.Event, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE NOT synced_to_calendar ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying unsynced events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (p *Postgres) MarkSynced(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE events SET synced_to_calendar = TRUE WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("marking events synced: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertOdds(ctx context.Context, records []*odds.Odds) (UpsertResult, error) {
	var res UpsertResult

	for _, o := range records {
		quotes, err := json.Marshal(o.Quotes)
		if err != nil {
			return res, fmt.Errorf("encoding quotes: %w", err)
		}

		var eventID sql.NullInt64
		if o.EventID != nil {
			eventID = sql.NullInt64{Int64: *o.EventID, Valid: true}
		}

		var inserted bool
		err = p.db.QueryRowContext(ctx, `
			INSERT INTO betting_odds (natural_key, event_id, sport_key, home_team, away_team, commence_time, quotes, fetched_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (natural_key) DO UPDATE SET
				event_id = EXCLUDED.event_id,
				quotes = EXCLUDED.quotes,
				fetched_at = EXCLUDED.fetched_at
			RETURNING id, (xmax = 0)`,
			o.NaturalKey(), eventID, o.SportKey, o.HomeTeam, o.AwayTeam,
			o.CommenceTime.UTC(), string(quotes), o.FetchedAt.UTC(),
		).Scan(&o.ID, &inserted)
		if err != nil {
			return res, fmt.Errorf("upserting odds for %s vs %s: %w", o.HomeTeam, o.AwayTeam, err)
		}

		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

func (p *Postgres) OddsForEvent(ctx context.Context, eventID int64) (*odds.Odds, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, event_id, sport_key, home_team, away_team, commence_time, quotes, fetched_at
		FROM betting_odds WHERE event_id = $1
		ORDER BY fetched_at DESC LIMIT 1`, eventID)

	o, err := scanOdds(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading odds for event %d: %w", eventID, err)
	}
	return o, nil
}

func (p *Postgres) MatchEventForOdds(ctx context.Context, o *odds.Odds) (*event.Event, error) {
	// Substring containment in both directions does not translate to a
	// useful SQL predicate, so candidates are scanned in ID order.
	rows, err := p.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying match candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		evt, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		if eventMatchesOdds(evt, o) {
			return evt, nil
		}
	}
	return nil, rows.Err()
}

func (p *Postgres) AddSubscription(ctx context.Context, sub Subscription) (string, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO webhook_subscriptions (id, name, url, enabled)
		VALUES ($1,$2,$3,$4)`,
		sub.ID, sub.Name, sub.URL, sub.Enabled)
	if err != nil {
		return "", fmt.Errorf("adding subscription %q: %w", sub.Name, err)
	}
	return sub.ID, nil
}

func (p *Postgres) Subscriptions(ctx context.Context, enabledOnly bool) ([]Subscription, error) {
	query := `SELECT id, name, url, enabled FROM webhook_subscriptions`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY name ASC`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.URL, &sub.Enabled); err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (p *Postgres) RemoveSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM webhook_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("removing subscription: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*event.Event, error) {
	var evt event.Event
	var participants, leagues string
	err := row.Scan(&evt.ID, &evt.Sport, &evt.Date, &evt.Title,
		&participants, &evt.Location, &leagues, &evt.WatchLink,
		&evt.ScrapedAt, &evt.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(participants), &evt.Participants); err != nil {
		return nil, fmt.Errorf("decoding participants: %w", err)
	}
	if err := json.Unmarshal([]byte(leagues), &evt.Leagues); err != nil {
		return nil, fmt.Errorf("decoding leagues: %w", err)
	}
	evt.Date = evt.Date.UTC()
	return &evt, nil
}

func scanEventRow(rows *sql.Rows) (*event.Event, error) {
	evt, err := scanEvent(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	return evt, nil
}

func scanEvents(rows *sql.Rows) ([]*event.Event, error) {
	var out []*event.Event
	for rows.Next() {
		evt, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func scanOdds(row rowScanner) (*odds.Odds, error) {
	var o odds.Odds
	var eventID sql.NullInt64
	var quotes string
	err := row.Scan(&o.ID, &eventID, &o.SportKey, &o.HomeTeam, &o.AwayTeam,
		&o.CommenceTime, &quotes, &o.FetchedAt)
	if err != nil {
		return nil, err
	}
	if eventID.Valid {
		o.EventID = &eventID.Int64
	}
	if err := json.Unmarshal([]byte(quotes), &o.Quotes); err != nil {
		return nil, fmt.Errorf("decoding quotes: %w", err)
	}
	o.CommenceTime = o.CommenceTime.UTC()
	// Best odds are derived state; recompute so they can never go stale
	// relative to the stored quotes.
	o.Best = odds.BestFromQuotes(o.Quotes)
	return &o, nil
}
