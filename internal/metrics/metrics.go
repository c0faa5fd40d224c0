// Package metrics exposes collection and delivery counters over a small
// HTTP server with /metrics and /healthz endpoints.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsCollected counts events parsed per sport, before storage.
	EventsCollected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gamewatcher_events_collected_total",
		Help: "Events parsed from schedule sources, per sport.",
	}, []string{"sport"})

	// EventsInserted counts new rows created by upserts, per sport.
	EventsInserted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gamewatcher_events_inserted_total",
		Help: "New events inserted into storage, per sport.",
	}, []string{"sport"})

	// CollectionErrors counts failed collection runs per sport.
	CollectionErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gamewatcher_collection_errors_total",
		Help: "Collection runs that ended in an error, per sport.",
	}, []string{"sport"})

	// OddsFetched counts odds records fetched from the odds API.
	OddsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamewatcher_odds_fetched_total",
		Help: "Odds records fetched from the odds API.",
	})

	// OddsMatched counts odds records linked to a stored event.
	OddsMatched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamewatcher_odds_matched_total",
		Help: "Odds records matched to a stored event.",
	})

	// WebhookDeliveries counts webhook delivery outcomes.
	WebhookDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gamewatcher_webhook_deliveries_total",
		Help: "Webhook delivery attempts by outcome.",
	}, []string{"outcome"})

	// CollectionDuration observes how long a per-sport collection takes.
	CollectionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gamewatcher_collection_duration_seconds",
		Help:    "Wall time of a per-sport collection run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"sport"})
)

// Register registers every collector with the default registry. Call it
// once from main.
func Register() {
	prometheus.MustRegister(
		EventsCollected,
		EventsInserted,
		CollectionErrors,
		OddsFetched,
		OddsMatched,
		WebhookDeliveries,
		CollectionDuration,
	)
}

// HealthFunc probes a dependency, typically the database.
type HealthFunc func(ctx context.Context) error

// StartServer runs a small HTTP server serving /metrics and /healthz in
// a background goroutine. The caller shuts it down with srv.Shutdown.
func StartServer(port string, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "unhealthy: %v", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
