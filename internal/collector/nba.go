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

// NBA collects the basketball schedule, preferring the league site and
// falling back to ESPN.
type NBA struct {
	client  *fetch.Client
	log     *zap.SugaredLogger
	sources []source
	now     func() time.Time
}

// NewNBA creates the NBA collector.
func NewNBA(client *fetch.Client, log *zap.SugaredLogger) *NBA {
	n := &NBA{client: client, log: log, now: time.Now}
	n.sources = []source{
		{name: "nba.com", url: "https://www.nba.com/schedule", parse: n.parseOfficial},
		{name: "espn", url: "https://www.espn.com/nba/schedule", parse: n.parseESPN},
	}
	return n
}

func (n *NBA) Sport() string { return "nba" }

func (n *NBA) Collect(ctx context.Context) ([]*event.Event, error) {
	return collectFirst(ctx, n.client, n.log, n.Sport(), n.sources)
}

func (n *NBA) parseOfficial(doc *goquery.Document) []*event.Event {
	var events []*event.Event
	ref := n.now().UTC()

	doc.Find("[class*='ScheduleGame'], [class*='game-card']").Each(func(_ int, card *goquery.Selection) {
		var teams []string
		card.Find("[class*='team-name'], [class*='team']").Each(func(_ int, elem *goquery.Selection) {
			name := strings.TrimSpace(elem.Text())
			if len(name) < 2 {
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
		venue := strings.TrimSpace(card.Find("[class*='arena'], [class*='venue']").First().Text())

		evt, err := event.New("nba", date, matchTitle(teams[0], teams[1]), teams, venue, []string{"NBA"})
		if err != nil {
			n.log.Debugw("dropping nba card", "error", err)
			return
		}
		events = append(events, evt)
	})

	return events
}

// parseESPN reads ESPN's schedule layout, the same table structure the
// NFL parser handles.
func (n *NBA) parseESPN(doc *goquery.Document) []*event.Event {
	var events []*event.Event
	ref := n.now().UTC()

	doc.Find("div.ResponsiveTable").Each(func(_ int, table *goquery.Selection) {
		day := event.ParseDate(strings.TrimSpace(table.Find(".Table__Title").First().Text()), ref)
		if day.IsZero() {
			return
		}

		table.Find("tr.Table__TR").Each(func(_ int, row *goquery.Selection) {
			var teams []string
			row.Find("a[href*='/nba/team/']").Each(func(_ int, link *goquery.Selection) {
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
			evt, err := event.New("nba", date, matchTitle(teams[0], teams[1]), teams, "", []string{"NBA"})
			if err != nil {
				n.log.Debugw("dropping nba row", "error", err)
				return
			}
			events = append(events, evt)
		})
	})

	return events
}
