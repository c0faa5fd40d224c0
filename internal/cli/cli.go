package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/game-watcher/internal/calendar"
	"github.com/pfrederiksen/game-watcher/internal/service"
	"github.com/pfrederiksen/game-watcher/internal/storage"
)

var flagFormat string

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game-watcher",
		Short: "Collect sports schedules and betting odds",
		Long: `game-watcher collects upcoming event schedules for several sports,
stores them with betting odds from The Odds API, and notifies webhook
subscribers about newly discovered events.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")

	cmd.AddCommand(
		newCollectCmd(),
		newBackfillCmd(),
		newQueryCmd(),
		newOddsCmd(),
		newWebhookCmd(),
		newServeCmd(),
	)
	return cmd
}

func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect [sport...]",
		Short: "Collect schedules for the given sports (default: all)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			var results []service.CollectResult
			if len(args) == 0 {
				results = a.svc.CollectAll(cmd.Context())
			} else {
				for _, sport := range args {
					res, err := a.svc.Collect(cmd.Context(), strings.ToLower(sport))
					if err != nil {
						return err
					}
					results = append(results, res)
				}
			}
			return writeCollectResults(os.Stdout, results, outputFormat())
		},
	}
}

func newBackfillCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "backfill <sport>",
		Short: "Collect a specific month's schedule for one sport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if month < 1 || month > 12 {
				return fmt.Errorf("invalid month: %d", month)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.svc.Backfill(cmd.Context(), strings.ToLower(args[0]), year, time.Month(month))
			if err != nil {
				return err
			}
			return writeCollectResults(os.Stdout, []service.CollectResult{res}, outputFormat())
		},
	}

	now := time.Now().UTC()
	cmd.Flags().IntVar(&year, "year", now.Year(), "Year to backfill")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "Month to backfill (1-12)")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var (
		sport    string
		from, to string
		limit    int
		asICS    bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List stored events",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := storage.Filter{Sport: strings.ToLower(sport), Limit: limit}

			var err error
			if filter.From, err = parseDayFlag(from); err != nil {
				return err
			}
			if filter.To, err = parseDayFlag(to); err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			events, err := a.svc.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if asICS {
				fmt.Fprint(os.Stdout, calendar.GenerateICS(events))
				return nil
			}
			return writeEvents(os.Stdout, events, outputFormat())
		},
	}

	cmd.Flags().StringVar(&sport, "sport", "", "Restrict to one sport")
	cmd.Flags().StringVar(&from, "from", "", "Earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Latest date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum events to return")
	cmd.Flags().BoolVar(&asICS, "ics", false, "Emit an iCalendar document instead")
	return cmd
}

func newOddsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "odds",
		Short: "Manage betting odds",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Fetch current odds and link them to stored events",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.svc.CollectBettingOdds(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSONOrText(os.Stdout, res, outputFormat(), func() {
				fmt.Printf("Odds: %d collected, %d matched to events, %d stored\n",
					res.Collected, res.Matched, res.Stored)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <event-id>",
		Short: "Show the stored odds for one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var eventID int64
			if _, err := fmt.Sscanf(args[0], "%d", &eventID); err != nil {
				return fmt.Errorf("invalid event id: %s", args[0])
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			o, err := a.svc.GetOddsForEvent(cmd.Context(), eventID)
			if err != nil {
				return err
			}
			return writeOdds(os.Stdout, o, outputFormat())
		},
	})

	return cmd
}

func newWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage webhook subscriptions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "register <name> <url>",
		Short: "Register a new webhook endpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			id, err := a.svc.RegisterWebhook(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Registered webhook %s (%s)\n", args[0], id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered webhooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			subs, err := a.svc.Webhooks(cmd.Context())
			if err != nil {
				return err
			}
			return writeSubscriptions(os.Stdout, subs, outputFormat())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a webhook subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.svc.RemoveWebhook(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Removed.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "test <url>",
		Short: "Send a connectivity test payload to a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			rtt, err := a.svc.TestWebhook(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("OK (%s)\n", rtt.Round(time.Millisecond))
			return nil
		},
	})

	var date, sport string
	trigger := &cobra.Command{
		Use:   "trigger",
		Short: "Re-deliver a day's events to every enabled webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDayFlag(date)
			if err != nil {
				return err
			}
			if day.IsZero() {
				day = time.Now().UTC()
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.svc.TriggerWebhooks(cmd.Context(), day, strings.ToLower(sport))
			if err != nil {
				return err
			}
			return writeJSONOrText(os.Stdout, report, outputFormat(), func() {
				fmt.Printf("Sent %d events: %d delivered, %d failed\n",
					report.EventsSent, report.Delivered, report.Failed)
			})
		},
	}
	trigger.Flags().StringVar(&date, "date", "", "Day to deliver (YYYY-MM-DD, default today)")
	trigger.Flags().StringVar(&sport, "sport", "", "Restrict to one sport")
	cmd.AddCommand(trigger)

	return cmd
}

func outputFormat() OutputFormat {
	return OutputFormat(strings.ToLower(flagFormat))
}

func parseDayFlag(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return day.UTC(), nil
}
