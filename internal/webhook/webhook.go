package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pfrederiksen/game-watcher/internal/event"
	"github.com/pfrederiksen/game-watcher/internal/fetch"
	"github.com/pfrederiksen/game-watcher/internal/storage"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultAttempts = 3
)

// successStatus reports whether an endpoint acknowledged the delivery.
func successStatus(code int) bool {
	switch code {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return true
	}
	return false
}

// Result records the outcome of delivering to a single endpoint.
type Result struct {
	Name       string `json:"webhook"`
	URL        string `json:"url"`
	Delivered  bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Attempts   int    `json:"attempts"`
	Error      string `json:"error,omitempty"`
}

// Report summarizes a fan-out to all configured endpoints.
type Report struct {
	EventsSent int      `json:"events_sent"`
	Delivered  int      `json:"webhooks_notified"`
	Failed     int      `json:"webhooks_failed"`
	Results    []Result `json:"results"`
}

type payload struct {
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Total     int            `json:"total,omitempty"`
	Events    []*event.Event `json:"events,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// Dispatcher posts event payloads to subscriber endpoints.
type Dispatcher struct {
	client   *http.Client
	log      *zap.SugaredLogger
	validate func(string) error
	attempts int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithURLValidator replaces the endpoint validation policy. Tests use it
// to allow loopback endpoints served by httptest.
func WithURLValidator(fn func(string) error) Option {
	return func(d *Dispatcher) { d.validate = fn }
}

// NewDispatcher creates a Dispatcher with the default 10s request timeout
// and 3 delivery attempts per endpoint.
func NewDispatcher(log *zap.SugaredLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:   &http.Client{Timeout: defaultTimeout},
		log:      log,
		validate: ValidateURL,
		attempts: defaultAttempts,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Validate applies the dispatcher's URL policy without sending anything.
func (d *Dispatcher) Validate(url string) error {
	return d.validate(url)
}

// Deliver fans the events out to every subscription. Each endpoint gets
// the full batch; one endpoint failing does not affect the others.
func (d *Dispatcher) Deliver(ctx context.Context, subs []storage.Subscription, events []*event.Event) Report {
	report := Report{EventsSent: len(events)}
	if len(events) == 0 || len(subs) == 0 {
		return report
	}

	body := payload{
		EventType: "new_events",
		Timestamp: time.Now().UTC(),
		Total:     len(events),
		Events:    events,
	}

	for _, sub := range subs {
		res := d.deliverOne(ctx, sub, body)
		if res.Delivered {
			report.Delivered++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, res)
	}
	return report
}

func (d *Dispatcher) deliverOne(ctx context.Context, sub storage.Subscription, body payload) Result {
	res := Result{Name: sub.Name, URL: sub.URL}

	if err := d.validate(sub.URL); err != nil {
		d.log.Warnw("webhook url rejected", "webhook", sub.Name, "error", err)
		res.Error = err.Error()
		return res
	}

	for attempt := 1; attempt <= d.attempts; attempt++ {
		res.Attempts = attempt
		code, err := d.post(ctx, sub.URL, body)
		if err == nil && successStatus(code) {
			d.log.Infow("webhook delivered", "webhook", sub.Name, "status", code, "attempt", attempt)
			res.Delivered = true
			res.StatusCode = code
			return res
		}
		if err != nil {
			d.log.Warnw("webhook delivery failed", "webhook", sub.Name, "attempt", attempt, "error", err)
			res.Error = err.Error()
		} else {
			d.log.Warnw("webhook rejected delivery", "webhook", sub.Name, "attempt", attempt, "status", code)
			res.StatusCode = code
			res.Error = fmt.Sprintf("HTTP %d", code)
		}
		if ctx.Err() != nil {
			res.Error = ctx.Err().Error()
			return res
		}
	}
	return res
}

// Test posts a connectivity check payload to url and reports the round
// trip time. The same URL policy applies as for real deliveries.
func (d *Dispatcher) Test(ctx context.Context, url string) (time.Duration, error) {
	if err := d.validate(url); err != nil {
		return 0, err
	}

	body := payload{
		EventType: "test",
		Timestamp: time.Now().UTC(),
		Message:   "webhook connectivity test from game-watcher",
	}

	start := time.Now()
	code, err := d.post(ctx, url, body)
	if err != nil {
		return 0, fmt.Errorf("testing webhook: %w", err)
	}
	if !successStatus(code) {
		return 0, fmt.Errorf("testing webhook: endpoint returned HTTP %d", code)
	}
	return time.Since(start), nil
}

func (d *Dispatcher) post(ctx context.Context, url string, body payload) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", fetch.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
