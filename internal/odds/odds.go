// Package odds collects betting odds from The Odds API, aggregates the
// best available price per outcome across bookmakers, and defines the
// record the storage layer persists and cross-references against events.
package odds

import (
	"crypto/sha1"
	"fmt"
	"math"
	"strings"
	"time"
)

// SportKeys maps our sport names to The Odds API sport keys.
var SportKeys = map[string]string{
	"futbol": "soccer_epl",
	"nfl":    "americanfootball_nfl",
	"nba":    "basketball_nba",
	"mma":    "mma_mixed_martial_arts",
	"boxing": "boxing_boxing",
	"f1":     "motorsport_racing",
}

// Quote is one bookmaker's head-to-head prices for an event. Draw is 0
// when the market has no draw outcome.
type Quote struct {
	Bookmaker string  `json:"bookmaker"`
	Home      float64 `json:"home"`
	Away      float64 `json:"away"`
	Draw      float64 `json:"draw,omitempty"`
}

// BestPrice is the most favorable quoted price for one outcome.
type BestPrice struct {
	Price       float64 `json:"price"`
	Bookmaker   string  `json:"bookmaker,omitempty"`
	Probability float64 `json:"probability"` // implied, in percent
}

// BestOdds aggregates the best price per outcome.
type BestOdds struct {
	Home BestPrice `json:"home"`
	Away BestPrice `json:"away"`
	Draw BestPrice `json:"draw"`
}

// Odds is the persisted odds record for one event.
type Odds struct {
	ID           int64     `json:"id,omitempty"`
	EventID      *int64    `json:"event_id,omitempty"`
	SportKey     string    `json:"sport_key"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	CommenceTime time.Time `json:"commence_time"`
	Quotes       []Quote   `json:"quotes"`
	Best         BestOdds  `json:"best_odds"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// NaturalKey identifies the record across refresh cycles; a new collection
// of the same fixture overwrites rather than appends.
func (o *Odds) NaturalKey() string {
	h := sha1.New()
	h.Write([]byte(strings.Join([]string{
		o.SportKey,
		o.CommenceTime.UTC().Format(time.RFC3339),
		strings.ToLower(o.HomeTeam),
		strings.ToLower(o.AwayTeam),
	}, "|")))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// BestFromQuotes picks, per outcome, the numerically highest decimal price
// across all bookmaker quotes. Ties keep the first-seen bookmaker in
// source order. Implied probability is 100/price.
func BestFromQuotes(quotes []Quote) BestOdds {
	var best BestOdds
	for _, q := range quotes {
		consider(&best.Home, q.Home, q.Bookmaker)
		consider(&best.Away, q.Away, q.Bookmaker)
		consider(&best.Draw, q.Draw, q.Bookmaker)
	}
	return best
}

func consider(bp *BestPrice, price float64, bookmaker string) {
	if price <= bp.Price {
		return
	}
	bp.Price = price
	bp.Bookmaker = bookmaker
	bp.Probability = math.Round(10000/price) / 100
}
