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

// MMA collects fight cards, trying the UFC site first and then two
// aggregator sites that also cover other promotions.
type MMA struct {
	client  *fetch.Client
	log     *zap.SugaredLogger
	sources []source
	now     func() time.Time
}

// NewMMA creates the MMA collector.
func NewMMA(client *fetch.Client, log *zap.SugaredLogger) *MMA {
	m := &MMA{client: client, log: log, now: time.Now}
	m.sources = []source{
		{name: "ufc.com", url: "https://www.ufc.com/events", parse: m.cards("[class*='c-card-event'], article")},
		{name: "mmafighting", url: "https://www.mmafighting.com/schedule", parse: m.cards("[class*='event'], article")},
		{name: "tapology", url: "https://www.tapology.com/fightcenter", parse: m.cards("[class*='fightcenter'], [class*='event'], li[class*='fight']")},
	}
	return m
}

func (m *MMA) Sport() string { return "mma" }

func (m *MMA) Collect(ctx context.Context) ([]*event.Event, error) {
	return collectFirst(ctx, m.client, m.log, m.Sport(), m.sources)
}

// cards builds a parser over the given card container selector. The
// three sources use the same card shape with different class names, so
// one parser covers them all.
func (m *MMA) cards(selector string) func(doc *goquery.Document) []*event.Event {
	return func(doc *goquery.Document) []*event.Event {
		var events []*event.Event
		ref := m.now().UTC()

		doc.Find(selector).Each(func(_ int, card *goquery.Selection) {
			title := strings.TrimSpace(card.Find("h1, h2, h3, h4").First().Text())
			if len(title) < 5 {
				return
			}

			var fighters []string
			if home, away, ok := splitVersus(m.mainEvent(card, title)); ok {
				fighters = []string{home, away}
			}

			date := parseTimeElement(card, ref)
			if date.IsZero() {
				return
			}

			venue := strings.TrimSpace(card.Find("[class*='venue'], [class*='location'], [class*='arena']").First().Text())
			leagues := []string{"MMA"}
			if strings.Contains(strings.ToLower(title), "ufc") {
				leagues = append(leagues, "UFC")
			}

			evt, err := event.New("mma", date, title, fighters, venue, leagues)
			if err != nil {
				m.log.Debugw("dropping mma card", "error", err)
				return
			}
			events = append(events, evt)
		})

		return events
	}
}

// mainEvent finds the headline bout. Some cards put the matchup in the
// title, others in a dedicated element.
func (m *MMA) mainEvent(card *goquery.Selection, title string) string {
	if _, _, ok := splitVersus(title); ok {
		return title
	}
	if headline := strings.TrimSpace(card.Find("[class*='headline'], [class*='main-event']").First().Text()); headline != "" {
		return headline
	}
	return title
}
