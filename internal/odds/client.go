package odds

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pfrederiksen/game-watcher/internal/fetch"
)

const defaultBaseURL = "https://api.the-odds-api.com/v4"

// maxJitter is added on top of the configured request spacing so polling
// does not hit the API on an exact cadence.
const maxJitter = 500 * time.Millisecond

// ErrRateLimited is returned once the API's 429 responses have exhausted
// the retry budget. The caller skips that sport for the cycle.
var ErrRateLimited = errors.New("odds api rate limited")

// Client fetches odds from The Odds API. Requests are spaced out by a
// minimum delay plus jitter to protect the monthly request quota.
type Client struct {
	fetcher *fetch.Client
	log     *zap.SugaredLogger
	apiKey  string
	baseURL string
	delay   time.Duration

	mu   sync.Mutex
	last time.Time
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root. Tests use it to
// target a local server.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// NewClient creates a Client. delay is the minimum spacing between
// consecutive requests; zero disables throttling.
func NewClient(fetcher *fetch.Client, apiKey string, delay time.Duration, log *zap.SugaredLogger, opts ...ClientOption) *Client {
	c := &Client{
		fetcher: fetcher,
		log:     log,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		delay:   delay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// FetchSport fetches the raw odds document for one API sport key.
func (c *Client) FetchSport(ctx context.Context, sportKey string) ([]byte, error) {
	if !c.Enabled() {
		return nil, errors.New("odds api key not configured")
	}
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", "us,uk")
	params.Set("markets", "h2h")
	params.Set("oddsFormat", "decimal")
	params.Set("dateFormat", "iso")
	endpoint := fmt.Sprintf("%s/sports/%s/odds?%s", c.baseURL, sportKey, params.Encode())

	body, err := c.fetcher.Get(ctx, endpoint)
	if err != nil {
		var serr *fetch.StatusError
		if errors.As(err, &serr) && serr.Code == http.StatusTooManyRequests {
			return nil, fmt.Errorf("fetching %s odds: %w", sportKey, ErrRateLimited)
		}
		return nil, fmt.Errorf("fetching %s odds: %w", sportKey, err)
	}
	return body, nil
}

// throttle blocks until the minimum spacing since the previous request has
// elapsed, adding random jitter. It respects context cancellation.
func (c *Client) throttle(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}

	c.mu.Lock()
	wait := time.Duration(0)
	if !c.last.IsZero() {
		if since := time.Since(c.last); since < c.delay {
			wait = c.delay - since + time.Duration(rand.Int63n(int64(maxJitter)))
		}
	}
	c.last = time.Now().Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
