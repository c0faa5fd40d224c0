package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ODDS_API_KEY", "PROXY_LIST", "BETTING_ODDS_INTERVAL",
		"API_RATE_LIMIT_DELAY", "DATABASE_URL", "HTTP_TIMEOUT",
		"METRICS_PORT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.BettingOddsInterval != 30*time.Minute {
		t.Errorf("BettingOddsInterval = %v, want 30m", cfg.BettingOddsInterval)
	}
	if cfg.RateLimitDelay != 2*time.Second {
		t.Errorf("RateLimitDelay = %v, want 2s", cfg.RateLimitDelay)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %v, want 15s", cfg.HTTPTimeout)
	}
	if cfg.OddsAPIKey != "" || cfg.DatabaseURL != "" || cfg.MetricsPort != "" {
		t.Errorf("expected empty string defaults, got %+v", cfg)
	}
	if cfg.ProxyList != nil {
		t.Errorf("ProxyList = %v, want nil", cfg.ProxyList)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ODDS_API_KEY", "test-key")
	t.Setenv("PROXY_LIST", "http://p1:8080, http://p2:8080 ,")
	t.Setenv("BETTING_ODDS_INTERVAL", "15")
	t.Setenv("API_RATE_LIMIT_DELAY", "5")
	t.Setenv("HTTP_TIMEOUT", "30")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.OddsAPIKey != "test-key" {
		t.Errorf("OddsAPIKey = %q", cfg.OddsAPIKey)
	}
	if len(cfg.ProxyList) != 2 || cfg.ProxyList[0] != "http://p1:8080" || cfg.ProxyList[1] != "http://p2:8080" {
		t.Errorf("ProxyList = %v", cfg.ProxyList)
	}
	if cfg.BettingOddsInterval != 15*time.Minute {
		t.Errorf("BettingOddsInterval = %v, want 15m", cfg.BettingOddsInterval)
	}
	if cfg.RateLimitDelay != 5*time.Second {
		t.Errorf("RateLimitDelay = %v, want 5s", cfg.RateLimitDelay)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestEnvIntRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"empty", "", 7},
		{"non-numeric", "abc", 7},
		{"negative", "-3", 7},
		{"zero", "0", 7},
		{"valid", "42", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_INT", tt.value)
			if got := envInt("TEST_ENV_INT", 7); got != tt.want {
				t.Errorf("envInt(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
