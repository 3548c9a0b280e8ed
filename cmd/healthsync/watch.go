// ABOUTME: CLI command that keeps observers registered and imports health store changes.
// ABOUTME: Runs until interrupted; each import is reported as it lands.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/sync"
)

var (
	watchCatchUp bool
	// watching is read from notifier goroutines.
	watching atomic.Bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Import health store changes as they happen",
	Long: `Register a change observer for every enabled, authorized domain and
import changes until interrupted.

Changes this device writes to the health store are not re-imported.
Set "log_file" in the config to keep a rotated log of every run.

EXAMPLES:

  healthsync watch                 # Catch up, then observe
  healthsync watch --catch-up=false`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return watch(ctx)
	},
}

func watch(ctx context.Context) error {
	watching.Store(true)
	defer watching.Store(false)

	if watchCatchUp {
		results, err := application.SyncAll(ctx, models.StrategyObserver, time.Time{})
		for _, r := range results {
			if r.Err != nil || r.Result.Changed() {
				printResult(r)
			}
		}
		if err != nil {
			application.Logger.Warn("catch-up sync failed", "err", err)
		}
	}

	if err := application.Observe(ctx); err != nil {
		return err
	}
	var observing []string
	for _, m := range application.All() {
		if m.Observer().Active() {
			observing = append(observing, string(m.Domain()))
		}
	}
	if len(observing) == 0 {
		color.Yellow("No domains to watch. Enable one with 'healthsync sync enable <domain>'.")
		return nil
	}
	color.Green("✓ Watching %v", observing)
	fmt.Println(color.New(color.Faint).Sprint("Press Ctrl-C to stop."))

	<-ctx.Done()
	fmt.Println()
	return nil
}

// notify reports imports while watching. One-shot commands print their own results.
func notify(d models.Domain, r sync.Result) {
	if watching.Load() {
		color.Cyan("↻ %s %s", padRight(string(d), 10), sync.StatusMessage(r, nil))
	}
}

func init() {
	watchCmd.Flags().BoolVar(&watchCatchUp, "catch-up", true, "run an incremental sync before observing")
	rootCmd.AddCommand(watchCmd)
}
