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

var titleFightMarkers = []string{"title", "championship", "belt", "wbc", "wba", "wbo", "ibf"}

// Boxing collects the fight schedule from BoxingScene.
type Boxing struct {
	client  *fetch.Client
	log     *zap.SugaredLogger
	sources []source
	now     func() time.Time
}

// NewBoxing creates the boxing collector.
func NewBoxing(client *fetch.Client, log *zap.SugaredLogger) *Boxing {
	b := &Boxing{client: client, log: log, now: time.Now}
	b.sources = []source{
		{name: "boxingscene", url: "https://www.boxingscene.com/schedule", parse: b.parseBoxingScene},
	}
	return b
}

func (b *Boxing) Sport() string { return "boxing" }

func (b *Boxing) Collect(ctx context.Context) ([]*event.Event, error) {
	return collectFirst(ctx, b.client, b.log, b.Sport(), b.sources)
}

func (b *Boxing) parseBoxingScene(doc *goquery.Document) []*event.Event {
	var events []*event.Event
	ref := b.now().UTC()

	doc.Find("article, [class*='event'], [class*='schedule-item']").Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(card.Find("h1, h2, h3, h4").First().Text())
		if title == "" {
			title = strings.TrimSpace(card.Find("a").First().Text())
		}
		if len(title) < 5 {
			return
		}

		var fighters []string
		if home, away, ok := splitVersus(title); ok {
			fighters = []string{home, away}
			title = matchTitle(home, away)
		}

		date := parseTimeElement(card, ref)
		if date.IsZero() {
			return
		}

		venue := strings.TrimSpace(card.Find("[class*='venue'], [class*='location']").First().Text())
		leagues := []string{"Professional Boxing"}
		lower := strings.ToLower(title)
		for _, marker := range titleFightMarkers {
			if strings.Contains(lower, marker) {
				leagues = append(leagues, "Title Fight")
				break
			}
		}

		evt, err := event.New("boxing", date, title, fighters, venue, leagues)
		if err != nil {
			b.log.Debugw("dropping boxing card", "error", err)
			return
		}
		events = append(events, evt)
	})

	return events
}
