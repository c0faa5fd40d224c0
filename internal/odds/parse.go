package odds

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Wire shapes for The Odds API v4 /sports/{key}/odds response.
type apiEvent struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	CommenceTime string         `json:"commence_time"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Bookmakers   []apiBookmaker `json:"bookmakers"`
}

type apiBookmaker struct {
	Title   string      `json:"title"`
	Markets []apiMarket `json:"markets"`
}

type apiMarket struct {
	Key      string       `json:"key"`
	Outcomes []apiOutcome `json:"outcomes"`
}

type apiOutcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ParseOdds converts a raw API response into odds records. Records with
// missing teams or an unparseable commence time are dropped individually;
// only a malformed document fails the batch.
func ParseOdds(raw []byte) ([]*Odds, error) {
	var events []apiEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("decoding odds response: %w", err)
	}

	now := time.Now().UTC()
	out := make([]*Odds, 0, len(events))
	for _, ev := range events {
		if ev.HomeTeam == "" || ev.AwayTeam == "" {
			continue
		}
		commence, err := time.Parse(time.RFC3339, ev.CommenceTime)
		if err != nil {
			continue
		}

		o := &Odds{
			SportKey:     ev.SportKey,
			HomeTeam:     ev.HomeTeam,
			AwayTeam:     ev.AwayTeam,
			CommenceTime: commence.UTC(),
			Quotes:       quotesFrom(ev),
			FetchedAt:    now,
		}
		o.Best = BestFromQuotes(o.Quotes)
		out = append(out, o)
	}
	return out, nil
}

// quotesFrom flattens each bookmaker's head-to-head market into a Quote.
// Other market kinds (spreads, totals) are ignored.
func quotesFrom(ev apiEvent) []Quote {
	var quotes []Quote
	for _, bm := range ev.Bookmakers {
		for _, market := range bm.Markets {
			if market.Key != "h2h" {
				continue
			}
			q := Quote{Bookmaker: bm.Title}
			for _, outcome := range market.Outcomes {
				switch {
				case outcome.Name == ev.HomeTeam:
					q.Home = outcome.Price
				case outcome.Name == ev.AwayTeam:
					q.Away = outcome.Price
				case strings.EqualFold(outcome.Name, "draw"):
					q.Draw = outcome.Price
				}
			}
			if q.Home > 0 || q.Away > 0 || q.Draw > 0 {
				quotes = append(quotes, q)
			}
		}
	}
	return quotes
}
