// Package fetch provides the outbound HTTP client shared by the sport
// collectors, the odds client, and the webhook dispatcher: per-request
// timeout, retry with exponential backoff, and optional rotating proxies.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	// UserAgent identifies this service to the scraped sources.
	UserAgent = "game-watcher/1.0 (github.com/pfrederiksen/game-watcher)"

	defaultTimeout = 15 * time.Second
	maxRetries     = 3
)

// StatusError is returned for a non-2xx response. Callers inspect Code to
// distinguish rate limiting (429) from other failures.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.Code, e.URL)
}

// Client performs GET requests with bounded retries. The zero value is not
// usable; construct with New.
type Client struct {
	http    *http.Client
	log     *zap.SugaredLogger
	headers map[string]string

	mu      sync.Mutex
	proxies []*url.URL
	next    int
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithProxies installs a rotating proxy list. Entries that fail to parse
// are dropped with a warning.
func WithProxies(proxyURLs []string) Option {
	return func(c *Client) {
		for _, raw := range proxyURLs {
			u, err := url.Parse(raw)
			if err != nil {
				c.log.Warnw("skipping unparseable proxy", "proxy", raw, "error", err)
				continue
			}
			c.proxies = append(c.proxies, u)
		}
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// New creates a Client.
func New(log *zap.SugaredLogger, opts ...Option) *Client {
	c := &Client{
		log:     log,
		headers: map[string]string{},
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	c.http = &http.Client{
		Timeout:   defaultTimeout,
		Transport: transport,
	}

	for _, opt := range opts {
		opt(c)
	}
	if len(c.proxies) > 0 {
		transport.Proxy = c.proxyFor
	}
	return c
}

// proxyFor hands the transport the next proxy in rotation. Each request
// advances the rotation so a bad exit does not pin every retry.
func (c *Client) proxyFor(*http.Request) (*url.URL, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.proxies[c.next%len(c.proxies)]
	c.next++
	return u, nil
}

// Get fetches url and returns the response body. Transport errors, 429 and
// 5xx responses are retried with exponential backoff (up to 3 attempts);
// other non-2xx responses fail immediately with a *StatusError.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", UserAgent)
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", rawURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			serr := &StatusError{Code: resp.StatusCode, URL: rawURL}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return serr
			}
			return backoff.Permanent(serr)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries-1), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return body, nil
}
