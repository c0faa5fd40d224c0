// Package cli implements the command-line interface for game-watcher.
//
// The cli package provides the Cobra-based CLI with subcommands for
// collecting schedules, backfilling months, querying stored events,
// refreshing betting odds, managing webhook subscriptions, and running
// the long-lived scheduler. It wires the config, storage, collector,
// odds, and webhook packages together; the command handlers themselves
// stay thin over the service layer.
package cli
