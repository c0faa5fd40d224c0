// Package config loads the process configuration from the environment.
// A local .env file is honored when present; values are read once at
// startup and treated as read-only afterwards.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the core components consume.
type Config struct {
	// OddsAPIKey authenticates against The Odds API. Empty disables
	// betting odds collection.
	OddsAPIKey string

	// ProxyList is the optional set of rotating outbound proxies.
	ProxyList []string

	// BettingOddsInterval is how often the scheduler refreshes odds.
	BettingOddsInterval time.Duration

	// RateLimitDelay is the minimum spacing between consecutive requests
	// to the odds API.
	RateLimitDelay time.Duration

	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store.
	DatabaseURL string

	// HTTPTimeout bounds every outbound collector request.
	HTTPTimeout time.Duration

	// MetricsPort serves /metrics and /healthz when non-empty.
	MetricsPort string

	// LogLevel is the minimum zap level ("debug", "info", "warn", "error").
	LogLevel string
}

// Load reads configuration from .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load() // a missing .env file is fine

	return &Config{
		OddsAPIKey:          os.Getenv("ODDS_API_KEY"),
		ProxyList:           splitList(os.Getenv("PROXY_LIST")),
		BettingOddsInterval: time.Duration(envInt("BETTING_ODDS_INTERVAL", 30)) * time.Minute,
		RateLimitDelay:      time.Duration(envInt("API_RATE_LIMIT_DELAY", 2)) * time.Second,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		HTTPTimeout:         time.Duration(envInt("HTTP_TIMEOUT", 15)) * time.Second,
		MetricsPort:         os.Getenv("METRICS_PORT"),
		LogLevel:            os.Getenv("LOG_LEVEL"),
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
