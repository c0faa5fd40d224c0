package collector

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/fetch"
)

// source is one ranked schedule page: a URL plus the parser that knows
// its markup.
type source struct {
	name  string
	url   string
	parse func(doc *goquery.Document) []*event.Event
}

// collectFirst tries the sources in order and returns the events from
// the first one that fetches and parses into at least one event. When
// every source fails it returns an empty slice, not an error.
func collectFirst(ctx context.Context, client *fetch.Client, log *zap.SugaredLogger, sport string, sources []source) ([]*event.Event, error) {
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := client.Get(ctx, src.url)
		if err != nil {
			log.Warnw("source unavailable", "sport", sport, "source", src.name, "error", err)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			log.Warnw("source returned unparseable markup", "sport", sport, "source", src.name, "error", err)
			continue
		}

		events := dedupe(src.parse(doc))
		if len(events) == 0 {
			log.Warnw("source yielded no events", "sport", sport, "source", src.name)
			continue
		}

		log.Infow("collected schedule", "sport", sport, "source", src.name, "events", len(events))
		return events, nil
	}

	log.Warnw("no source was usable", "sport", sport)
	return []*event.Event{}, nil
}

// dedupe removes repeated records by natural key, keeping the first
// occurrence. Schedule pages often list the same game in more than one
// section.
func dedupe(events []*event.Event) []*event.Event {
	seen := make(map[string]bool, len(events))
	out := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		key := evt.NaturalKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, evt)
	}
	return out
}

var (
	clockPattern  = regexp.MustCompile(`\b(\d{1,2}:\d{2}(?:\s*[AP]M)?)`)
	versusPattern = regexp.MustCompile(`(?i)^(.+?)\s+(?:vs\.?|v\.?|versus)\s+(.+)$`)
)

// extractClock pulls the first clock-like token out of free text, for
// pages that mix the kickoff time into a larger cell.
func extractClock(text string) string {
	if m := clockPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// splitVersus splits "A vs B" style titles into the two participants.
func splitVersus(title string) (string, string, bool) {
	m := versusPattern.FindStringSubmatch(title)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

func matchTitle(home, away string) string {
	return fmt.Sprintf("%s vs %s", home, away)
}
