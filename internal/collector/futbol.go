package collector

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/fetch"
)

const (
	futbolScheduleURL = "https://www.espn.com/soccer/schedule/_/date/%s"

	// How far ahead the regular collection window looks, and how many
	// pages a single run fetches before stopping.
	futbolWindowDays = 30
	futbolMaxPages   = 7
)

// Futbol collects soccer schedules from ESPN's per-date schedule pages.
// Unlike the single-page sports, one run walks a window of daily pages
// and merges them, which is also what lets it backfill arbitrary months.
type Futbol struct {
	client   *fetch.Client
	log      *zap.SugaredLogger
	urlFmt   string
	window   int
	maxPages int
	now      func() time.Time
}

// NewFutbol creates the soccer collector.
func NewFutbol(client *fetch.Client, log *zap.SugaredLogger) *Futbol {
	return &Futbol{
		client:   client,
		log:      log,
		urlFmt:   futbolScheduleURL,
		window:   futbolWindowDays,
		maxPages: futbolMaxPages,
		now:      time.Now,
	}
}

func (f *Futbol) Sport() string { return "futbol" }

// Collect walks the daily schedule pages starting today and stops after
// maxPages successful fetches.
func (f *Futbol) Collect(ctx context.Context) ([]*event.Event, error) {
	today := f.now().UTC()
	days := make([]time.Time, 0, f.window)
	for i := 0; i < f.window; i++ {
		days = append(days, today.AddDate(0, 0, i))
	}
	return f.collectDays(ctx, days, f.maxPages)
}

// Backfill fetches every daily page of the given month.
func (f *Futbol) Backfill(ctx context.Context, year int, month time.Month) ([]*event.Event, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := make([]time.Time, 0, 31)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return f.collectDays(ctx, days, len(days))
}

func (f *Futbol) collectDays(ctx context.Context, days []time.Time, maxPages int) ([]*event.Event, error) {
	var events []*event.Event
	fetched := 0

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if fetched >= maxPages {
			break
		}

		url := fmt.Sprintf(f.urlFmt, day.Format("20060102"))
		body, err := f.client.Get(ctx, url)
		if err != nil {
			f.log.Debugw("soccer schedule page unavailable", "url", url, "error", err)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			f.log.Debugw("soccer schedule page unparseable", "url", url, "error", err)
			continue
		}

		fetched++
		events = append(events, f.parseSchedulePage(doc, day)...)
	}

	if fetched == 0 {
		f.log.Warnw("no soccer schedule pages were reachable")
		return []*event.Event{}, nil
	}

	events = dedupe(events)
	f.log.Infow("collected soccer schedule", "pages", fetched, "events", len(events))
	return events, nil
}

// parseSchedulePage extracts matches from one ESPN daily schedule page.
// Matches are grouped into one table per competition, with the
// competition name in the table title.
func (f *Futbol) parseSchedulePage(doc *goquery.Document, day time.Time) []*event.Event {
	var events []*event.Event

	doc.Find("div.ResponsiveTable").Each(func(_ int, table *goquery.Selection) {
		league := strings.TrimSpace(table.Find(".Table__Title").First().Text())
		if league == "" {
			league = "International Football"
		}

		table.Find("tr.Table__TR").Each(func(_ int, row *goquery.Selection) {
			var teams []string
			row.Find("a[href*='/soccer/team/']").Each(func(_ int, link *goquery.Selection) {
				name := strings.TrimSpace(link.Text())
				if name == "" {
					return
				}
				for _, seen := range teams {
					if seen == name {
						return
					}
				}
				teams = append(teams, name)
			})
			if len(teams) != 2 {
				return
			}

			date := event.CombineTime(day, extractClock(row.Text()))
			venue := strings.TrimSpace(row.Find("td[class*='venue']").First().Text())

			evt, err := event.New("futbol", date, matchTitle(teams[0], teams[1]), teams, venue, []string{league})
			if err != nil {
				f.log.Debugw("dropping soccer row", "error", err)
				return
			}
			events = append(events, evt)
		})
	})

	return events
}
