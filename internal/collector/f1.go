package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/fetch"
)

// F1 collects the race calendar, preferring the Wikipedia season article
// and falling back to the official site.
type F1 struct {
	client  *fetch.Client
	log     *zap.SugaredLogger
	sources []source
	now     func() time.Time
}

// NewF1 creates the Formula 1 collector for the current season.
func NewF1(client *fetch.Client, log *zap.SugaredLogger) *F1 {
	f := &F1{client: client, log: log, now: time.Now}
	year := f.now().UTC().Year()
	f.sources = []source{
		{
			name:  "wikipedia",
			url:   fmt.Sprintf("https://en.wikipedia.org/wiki/%d_Formula_One_World_Championship", year),
			parse: f.parseWikipedia,
		},
		{
			name:  "formula1.com",
			url:   fmt.Sprintf("https://www.formula1.com/en/racing/%d.html", year),
			parse: f.parseOfficial,
		},
	}
	return f
}

func (f *F1) Sport() string { return "f1" }

func (f *F1) Collect(ctx context.Context) ([]*event.Event, error) {
	return collectFirst(ctx, f.client, f.log, f.Sport(), f.sources)
}

// parseWikipedia walks the season article's calendar table. The table is
// identified by its headers so layout shuffles between seasons don't
// silently pick up an unrelated table.
func (f *F1) parseWikipedia(doc *goquery.Document) []*event.Event {
	var events []*event.Event
	ref := f.now().UTC()

	doc.Find("table.wikitable").Each(func(_ int, table *goquery.Selection) {
		var headers []string
		table.Find("th").Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, strings.ToLower(th.Text()))
		})
		headerText := strings.Join(headers, " ")
		if !strings.Contains(headerText, "grand prix") && !strings.Contains(headerText, "circuit") {
			return
		}

		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td, th")
			if cells.Length() < 3 {
				return
			}

			var raceName, circuit string
			var raceDate time.Time
			cells.Each(func(_ int, cell *goquery.Selection) {
				text := strings.TrimSpace(cell.Text())
				lower := strings.ToLower(text)
				switch {
				case raceName == "" && strings.Contains(lower, "grand prix"):
					raceName = text
				case circuit == "" && (strings.Contains(lower, "circuit") || strings.Contains(lower, "track") || strings.Contains(lower, "speedway")):
					circuit = text
				case raceDate.IsZero():
					if d := event.ParseDate(rangeEnd(text), ref); !d.IsZero() {
						raceDate = d
					}
				}
			})
			if raceName == "" || raceDate.IsZero() {
				return
			}

			evt, err := event.New("f1", raceStart(raceDate), f1Title(raceName),
				[]string{"F1 Drivers"}, circuit, []string{"Formula 1", "Grand Prix"})
			if err != nil {
				f.log.Debugw("dropping f1 row", "error", err)
				return
			}
			evt.WatchLink = fmt.Sprintf("https://www.formula1.com/en/racing/%d.html", raceDate.Year())
			events = append(events, evt)
		})
	})

	return events
}

func (f *F1) parseOfficial(doc *goquery.Document) []*event.Event {
	var events []*event.Event
	ref := f.now().UTC()

	doc.Find("[class*='event'], [class*='race']").Each(func(_ int, card *goquery.Selection) {
		raceName := strings.TrimSpace(card.Find("h1, h2, h3").First().Text())
		if raceName == "" {
			return
		}

		date := parseTimeElement(card, ref)
		if date.IsZero() {
			return
		}
		location := strings.TrimSpace(card.Find("[class*='circuit'], [class*='location']").First().Text())

		evt, err := event.New("f1", raceStart(date), f1Title(raceName),
			[]string{"F1 Drivers"}, location, []string{"Formula 1", "Grand Prix"})
		if err != nil {
			f.log.Debugw("dropping f1 card", "error", err)
			return
		}
		evt.WatchLink = fmt.Sprintf("https://www.formula1.com/en/racing/%d.html", date.Year())
		events = append(events, evt)
	})

	return events
}

func f1Title(raceName string) string {
	if strings.HasPrefix(raceName, "F1") {
		return raceName
	}
	return "F1 " + raceName
}

// raceStart defaults dateless times to the typical 14:00 lights-out.
func raceStart(d time.Time) time.Time {
	if d.Hour() == 0 && d.Minute() == 0 {
		return time.Date(d.Year(), d.Month(), d.Day(), 14, 0, 0, 0, time.UTC)
	}
	return d
}

// rangeEnd reduces "24–26 October 2025" style race weekends to the race
// day, the last date in the range.
func rangeEnd(text string) string {
	for _, sep := range []string{"–", "—"} {
		if i := strings.LastIndex(text, sep); i >= 0 {
			return strings.TrimSpace(text[i+len(sep):])
		}
	}
	return text
}
