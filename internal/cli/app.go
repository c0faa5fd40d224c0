package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pfrederiksen/game-watcher/internal/collector"
	"github.com/pfrederiksen/game-watcher/internal/config"
	"github.com/pfrederiksen/game-watcher/internal/fetch"
	"github.com/pfrederiksen/game-watcher/internal/logger"
	"github.com/pfrederiksen/game-watcher/internal/odds"
	"github.com/pfrederiksen/game-watcher/internal/service"
	"github.com/pfrederiksen/game-watcher/internal/storage"
	"github.com/pfrederiksen/game-watcher/internal/webhook"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg   *config.Config
	log   *zap.SugaredLogger
	store storage.Store
	svc   *service.Service
}

// newApp loads configuration and assembles the pipeline. The caller
// must close the returned app.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	var store storage.Store
	if cfg.DatabaseURL != "" {
		store, err = storage.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
	} else {
		log.Warnw("DATABASE_URL not set, using in-memory storage; data will not survive this process")
		store = storage.NewMemory()
	}

	client := fetch.New(log,
		fetch.WithTimeout(cfg.HTTPTimeout),
		fetch.WithProxies(cfg.ProxyList),
	)

	oddsClient := odds.NewClient(client, cfg.OddsAPIKey, cfg.RateLimitDelay, log)
	hooks := webhook.NewDispatcher(log)
	registry := collector.Default(client, log)

	return &app{
		cfg:   cfg,
		log:   log,
		store: store,
		svc:   service.New(store, registry, oddsClient, hooks, log),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Errorw("closing store", "error", err)
	}
	_ = a.log.Sync()
}
