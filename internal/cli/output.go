package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/odds"
	"github.com/pfrederiksen/game-watcher/internal/service"
	"github.com/pfrederiksen/game-watcher/internal/storage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeJSONOrText emits v as JSON, or runs the text printer.
func writeJSONOrText(w io.Writer, v any, format OutputFormat, text func()) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, v)
	case FormatText:
		text()
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeCollectResults(w io.Writer, results []service.CollectResult, format OutputFormat) error {
	return writeJSONOrText(w, results, format, func() {
		var inserted, updated int
		for _, res := range results {
			fmt.Fprintf(w, "%-8s %3d collected, %3d new, %3d updated (%s)\n",
				strings.ToUpper(res.Sport), res.Collected, res.Inserted, res.Updated,
				res.Duration.Round(10*time.Millisecond))
			inserted += res.Inserted
			updated += res.Updated
		}
		if len(results) > 1 {
			fmt.Fprintf(w, "Total: %d new, %d updated\n", inserted, updated)
		}
	})
}

func writeEvents(w io.Writer, events []*event.Event, format OutputFormat) error {
	return writeJSONOrText(w, events, format, func() {
		if len(events) == 0 {
			fmt.Fprintln(w, "No events found.")
			return
		}
		for _, evt := range events {
			fmt.Fprintf(w, "[%d] %s %s: %s\n", evt.ID,
				evt.Date.Format("2006-01-02 15:04"), strings.ToUpper(evt.Sport), evt.Title)
			if evt.Location != "" {
				fmt.Fprintf(w, "      at %s\n", evt.Location)
			}
			if len(evt.Leagues) > 0 {
				fmt.Fprintf(w, "      %s\n", strings.Join(evt.Leagues, ", "))
			}
		}
		fmt.Fprintf(w, "%d event(s)\n", len(events))
	})
}

func writeOdds(w io.Writer, o *odds.Odds, format OutputFormat) error {
	return writeJSONOrText(w, o, format, func() {
		fmt.Fprintf(w, "%s vs %s (%s)\n", o.HomeTeam, o.AwayTeam,
			o.CommenceTime.Format("2006-01-02 15:04"))
		writeBestPrice(w, "Home", o.Best.Home)
		writeBestPrice(w, "Away", o.Best.Away)
		writeBestPrice(w, "Draw", o.Best.Draw)
		fmt.Fprintf(w, "%d bookmaker quote(s)\n", len(o.Quotes))
	})
}

func writeBestPrice(w io.Writer, label string, p odds.BestPrice) {
	if p.Price <= 0 {
		return
	}
	fmt.Fprintf(w, "  %s: %.2f @ %s (%.1f%%)\n", label, p.Price, p.Bookmaker, p.Probability)
}

func writeSubscriptions(w io.Writer, subs []storage.Subscription, format OutputFormat) error {
	return writeJSONOrText(w, subs, format, func() {
		if len(subs) == 0 {
			fmt.Fprintln(w, "No webhooks registered.")
			return
		}
		for _, sub := range subs {
			state := "enabled"
			if !sub.Enabled {
				state = "disabled"
			}
			fmt.Fprintf(w, "%s  %-20s %s (%s)\n", sub.ID, sub.Name, sub.URL, state)
		}
	})
}
