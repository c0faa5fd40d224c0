package collector

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/fetch"
)

// NFL collects the football schedule, preferring ESPN and falling back
// to the league's own site.
type NFL struct {
	client  *fetch.Client
	log     *zap.SugaredLogger
	sources []source
	now     func() time.Time
}

// NewNFL creates the NFL collector.
func NewNFL(client *fetch.Client, log *zap.SugaredLogger) *NFL {
	n := &NFL{client: client, log: log, now: time.Now}
	n.sources = []source{
		{name: "espn", url: "https://www.espn.com/nfl/schedule", parse: n.parseESPN},
		{name: "nfl.com", url: "https://www.nfl.com/schedules/", parse: n.parseOfficial},
	}
	return n
}

func (n *NFL) Sport() string { return "nfl" }

func (n *NFL) Collect(ctx context.Context) ([]*event.Event, error) {
	return collectFirst(ctx, n.client, n.log, n.Sport(), n.sources)
}

// parseESPN reads ESPN's weekly schedule, which groups games into one
// table per day with the day in the table title.
func (n *NFL) parseESPN(doc *goquery.Document) []*event.Event {
	var events []*event.Event
	ref := n.now().UTC()

	doc.Find("div.ResponsiveTable").Each(func(_ int, table *goquery.Selection) {
		day := event.ParseDate(strings.TrimSpace(table.Find(".Table__Title").First().Text()), ref)
		if day.IsZero() {
			return
		}

		table.Find("tr.Table__TR").Each(func(_ int, row *goquery.Selection) {
			var teams []string
			row.Find("a[href*='/nfl/team/']").Each(func(_ int, link *goquery.Selection) {
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
			if len(teams) < 2 {
				return
			}
			teams = teams[:2]

			date := event.CombineTime(day, extractClock(row.Text()))
			venue := strings.TrimSpace(row.Find("td[class*='venue']").First().Text())

			evt, err := event.New("nfl", date, matchTitle(teams[0], teams[1]), teams, venue, []string{"NFL"})
			if err != nil {
				n.log.Debugw("dropping nfl row", "error", err)
				return
			}
			events = append(events, evt)
		})
	})

	return events
}

// parseOfficial reads nfl.com's schedule page, which renders each game
// as a matchup card.
func (n *NFL) parseOfficial(doc *goquery.Document) []*event.Event {
	var events []*event.Event
	ref := n.now().UTC()

	doc.Find("[class*='matchup'], [class*='game-card']").Each(func(_ int, card *goquery.Selection) {
		var teams []string
		card.Find("[class*='team-name'], [class*='team']").Each(func(_ int, elem *goquery.Selection) {
			name := strings.TrimSpace(elem.Text())
			if name == "" || len(name) < 2 {
				return
			}
			for _, seen := range teams {
				if seen == name {
					return
				}
			}
			teams = append(teams, name)
		})
		if len(teams) < 2 {
			return
		}
		teams = teams[:2]

		date := parseTimeElement(card, ref)
		venue := strings.TrimSpace(card.Find("[class*='venue'], [class*='stadium']").First().Text())

		evt, err := event.New("nfl", date, matchTitle(teams[0], teams[1]), teams, venue, []string{"NFL"})
		if err != nil {
			n.log.Debugw("dropping nfl card", "error", err)
			return
		}
		events = append(events, evt)
	})

	return events
}

// parseTimeElement reads a card's <time> element, preferring the
// machine-readable datetime attribute over the display text.
func parseTimeElement(card *goquery.Selection, ref time.Time) time.Time {
	elem := card.Find("time").First()
	if attr, ok := elem.Attr("datetime"); ok {
		if d := event.ParseDate(attr, ref); !d.IsZero() {
			return d
		}
	}
	if d := event.ParseDate(strings.TrimSpace(elem.Text()), ref); !d.IsZero() {
		return d
	}
	return event.ParseDate(strings.TrimSpace(card.Find("[class*='date']").First().Text()), ref)
}
