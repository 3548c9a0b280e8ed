// ABOUTME: CLI command for copying sync state between storage backends.
// ABOUTME: Moves history, anchors, preferences, aggregates, and the run log.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthsync/internal/config"
	"github.com/harperreed/healthsync/internal/storage"
)

var (
	migrateFrom  string
	migrateTo    string
	migrateForce bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy sync state between storage backends",
	Long: `Copy all sync state from one storage backend to another.

BACKENDS:

  sqlite     <data_dir>/healthsync.db (default)
  badger     <data_dir>/badger
  postgres   database_url or DATABASE_URL
  charm      Charm KV, replicated across devices

The destination must be empty unless --force is given. Afterwards set
"backend" in the config to the destination.

EXAMPLES:

  healthsync migrate --from sqlite --to badger
  healthsync migrate --from sqlite --to charm`,
	Annotations: ownStorage,
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateFrom == migrateTo {
			return fmt.Errorf("--from and --to are both %q", migrateFrom)
		}
		if err := loadConfig(); err != nil {
			return err
		}

		src, err := cfg.OpenBackend(migrateFrom, nil)
		if err != nil {
			return fmt.Errorf("failed to open source %s: %w", migrateFrom, err)
		}
		defer src.Close()

		dst, err := cfg.OpenBackend(migrateTo, nil)
		if err != nil {
			return fmt.Errorf("failed to open destination %s: %w", migrateTo, err)
		}
		defer dst.Close()

		if !migrateForce {
			has, err := storage.HasData(dst)
			if err != nil {
				return fmt.Errorf("failed to inspect destination: %w", err)
			}
			if has {
				return fmt.Errorf("destination %s already has data (use --force to overwrite)", migrateTo)
			}
		}

		summary, err := storage.MigrateData(src, dst)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		color.Green("✓ Migrated %s → %s", migrateFrom, migrateTo)
		fmt.Printf("  Records: %d\n", summary.Records)
		fmt.Printf("  Sync runs: %d\n", summary.SyncRuns)
		if cfg.GetBackend() != migrateTo {
			fmt.Printf("\nSet \"backend\": %q in %s to use it.\n", migrateTo, config.GetConfigPath())
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFrom, "from", "sqlite", "source backend")
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "destination backend")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "overwrite a non-empty destination")
	_ = migrateCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(migrateCmd)
}
