// ABOUTME: CLI commands for health store sync: run strategies, toggle domains, show status.
// ABOUTME: The cloud subcommands manage Charm replication of sync state.
package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthsync/internal/app"
	"github.com/harperreed/healthsync/internal/config"
	"github.com/harperreed/healthsync/internal/healthstore"
	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/sync"
)

var (
	syncHistorical bool
	syncReset      bool
	syncSince      string
	syncNoImport   bool
	syncRunsLimit  int
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Aliases: []string{"s"},
	Short:   "Sync entries with the health store",
	Long: `Sync entries with the platform health store.

Each domain syncs independently and only when enabled. Three strategies
are available:

  observer     (default) fetch what changed since the last sync
  historical   import everything in range, without deletion detection
  reset        re-fetch everything in range and drop imported entries
               that no longer exist in the health store

COMMANDS:

  run         Run a sync for one or all domains
  enable      Enable sync for a domain and import its history
  disable     Disable sync for a domain
  status      Show preferences, authorization, and recent runs
  cloud       Manage Charm replication of sync state`,
}

var syncRunCmd = &cobra.Command{
	Use:   "run [domain]",
	Short: "Run a sync",
	Long: `Run a sync for one domain, or every domain concurrently.

EXAMPLES:

  healthsync sync run                          # Incremental sync, all domains
  healthsync sync run weight                   # Incremental sync, weight only
  healthsync sync run sleep --historical       # Import sleep history
  healthsync sync run mood --reset --since 2026-07-01`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy := models.StrategyObserver
		switch {
		case syncHistorical && syncReset:
			return fmt.Errorf("--historical and --reset are mutually exclusive")
		case syncHistorical:
			strategy = models.StrategyHistorical
		case syncReset:
			strategy = models.StrategyReset
		}

		var since time.Time
		if syncSince != "" {
			t, err := parseTime(syncSince)
			if err != nil {
				return fmt.Errorf("invalid --since: %s", syncSince)
			}
			since = t
		}

		if len(args) == 1 {
			m, err := domainArg(args[0])
			if err != nil {
				return err
			}
			res, err := m.Run(cmd.Context(), strategy, since)
			printResult(app.DomainResult{Domain: m.Domain(), Result: res, Err: err})
			return err
		}

		results, err := application.SyncAll(cmd.Context(), strategy, since)
		for _, r := range results {
			printResult(r)
		}
		return err
	},
}

func printResult(r app.DomainResult) {
	name := padRight(string(r.Domain), 10)
	switch {
	case r.Err != nil:
		color.Red("✗ %s %v", name, r.Err)
		if isUnauthorized(r.Err) && cfg.GetPlatformKind() == config.PlatformJournal {
			fmt.Printf("  %s\n", color.New(color.Faint).Sprintf("grant access with 'healthsync platform grant %s'", r.Domain))
		}
	case r.Result.Skipped != "":
		fmt.Printf("%s %s\n", name, color.New(color.Faint).Sprintf("skipped (%s)", r.Result.Skipped))
	case r.Result.Changed():
		color.Green("✓ %s %s (+%d -%d)", name, sync.StatusMessage(r.Result, nil), r.Result.Added, r.Result.Removed)
	default:
		fmt.Printf("%s %s\n", name, sync.StatusMessage(r.Result, nil))
	}
}

var syncEnableCmd = &cobra.Command{
	Use:   "enable <domain>",
	Short: "Enable sync for a domain",
	Long: `Enable sync for a domain.

This requests health store authorization and starts listening for
changes. The first time a domain is enabled its history is imported
(the lookback window, or from --since); pass --no-import to skip.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := domainArg(args[0])
		if err != nil {
			return err
		}
		if err := m.SetSyncPreference(cmd.Context(), true); err != nil {
			return err
		}
		color.Green("✓ Sync enabled for %s", m.Domain())

		if m.Preference().InitialImportComplete {
			return nil
		}
		if syncNoImport {
			m.MarkInitialImportComplete()
			return nil
		}
		start := m.LookbackStart()
		if syncSince != "" {
			if start, err = parseTime(syncSince); err != nil {
				return fmt.Errorf("invalid --since: %s", syncSince)
			}
		}
		res, err := m.CompleteInitialImport(cmd.Context(), start)
		if err != nil {
			return fmt.Errorf("initial import failed: %w", err)
		}
		fmt.Printf("  Imported %d entries since %s\n", res.Added, start.Local().Format("2006-01-02"))
		return nil
	},
}

var syncDisableCmd = &cobra.Command{
	Use:   "disable <domain>",
	Short: "Disable sync for a domain",
	Long: `Disable sync for a domain. Local entries, including ones imported
from the health store, are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := domainArg(args[0])
		if err != nil {
			return err
		}
		if err := m.SetSyncPreference(cmd.Context(), false); err != nil {
			return err
		}
		color.Yellow("Sync disabled for %s", m.Domain())
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		faint := color.New(color.Faint)
		for _, m := range application.All() {
			pref := m.Preference()
			state := faint.Sprint("off")
			if pref.Enabled {
				state = color.GreenString("on")
			}
			auth := application.Store.AuthorizationStatus(m.Domain())
			imported := ""
			if pref.InitialImportComplete {
				imported = faint.Sprint(" imported")
			}
			fmt.Printf("%s %s %s%s\n", padRight(string(m.Domain()), 10), padRight(state, 3), authLabel(auth), imported)
		}

		runs, err := application.Repo.ListSyncRuns(nil, syncRunsLimit)
		if err != nil {
			return fmt.Errorf("failed to list sync runs: %w", err)
		}
		if len(runs) == 0 {
			return nil
		}
		fmt.Println()
		fmt.Println("Recent runs:")
		for _, r := range runs {
			outcome := fmt.Sprintf("+%d -%d of %d", r.Added, r.Removed, r.Fetched)
			if !r.Succeeded() {
				outcome = color.RedString(truncate(r.Error, 40))
			}
			fmt.Printf("  %s %s %s %s\n",
				faint.Sprint(r.StartedAt.Local().Format("2006-01-02 15:04")),
				padRight(string(r.Domain), 10),
				padRight(string(r.Strategy), 10),
				outcome)
		}
		return nil
	},
}

func authLabel(s healthstore.AuthStatus) string {
	switch s {
	case healthstore.AuthAuthorized:
		return color.GreenString(s.String())
	case healthstore.AuthDenied:
		return color.RedString(s.String())
	default:
		return color.YellowString(s.String())
	}
}

// isUnauthorized reports whether err came from a domain the store refuses.
func isUnauthorized(err error) bool {
	return errors.Is(err, healthstore.ErrNotAuthorized)
}

func init() {
	syncRunCmd.Flags().BoolVar(&syncHistorical, "historical", false, "import everything in range without deletion detection")
	syncRunCmd.Flags().BoolVar(&syncReset, "reset", false, "re-fetch everything in range and remove deleted imports")
	syncRunCmd.Flags().StringVar(&syncSince, "since", "", "start of the range (default: lookback window)")
	syncEnableCmd.Flags().StringVar(&syncSince, "since", "", "import history from this date")
	syncEnableCmd.Flags().BoolVar(&syncNoImport, "no-import", false, "skip the initial history import")
	syncStatusCmd.Flags().IntVarP(&syncRunsLimit, "limit", "n", 10, "number of recent runs to show")

	syncCmd.AddCommand(syncRunCmd)
	syncCmd.AddCommand(syncEnableCmd)
	syncCmd.AddCommand(syncDisableCmd)
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}
