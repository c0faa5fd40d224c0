package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/game-watcher/internal/metrics"
)

const defaultCollectEvery = 6 * time.Hour

func newServeCmd() *cobra.Command {
	var collectEvery time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler: periodic collection, odds refresh, metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			metrics.Register()
			if port := a.cfg.MetricsPort; port != "" {
				srv := metrics.StartServer(port, a.store.Ping)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				a.log.Infow("metrics server started", "port", port)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// One full pass immediately so a fresh deployment has data
			// before the first tick.
			a.svc.CollectAll(ctx)
			if _, err := a.svc.CollectBettingOdds(ctx); err != nil {
				a.log.Warnw("betting odds disabled", "reason", err)
			}

			scheduler := cron.New()
			if _, err := scheduler.AddFunc("@every "+collectEvery.String(), func() {
				a.svc.CollectAll(ctx)
			}); err != nil {
				return err
			}
			if _, err := scheduler.AddFunc("@every "+a.cfg.BettingOddsInterval.String(), func() {
				if _, err := a.svc.CollectBettingOdds(ctx); err != nil {
					a.log.Warnw("odds cycle skipped", "reason", err)
				}
			}); err != nil {
				return err
			}

			scheduler.Start()
			a.log.Infow("scheduler running",
				"collect_every", collectEvery, "odds_every", a.cfg.BettingOddsInterval)

			<-ctx.Done()
			a.log.Infow("shutting down")

			stopCtx := scheduler.Stop()
			select {
			case <-stopCtx.Done():
			case <-time.After(30 * time.Second):
				a.log.Warnw("scheduler jobs did not finish before shutdown timeout")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&collectEvery, "collect-every", defaultCollectEvery, "Interval between full collection runs")
	return cmd
}
