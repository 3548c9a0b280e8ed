// ABOUTME: Root Cobra command for the healthsync CLI.
// ABOUTME: Opens the app (storage, platform, domain managers) via PersistentPre/PostRunE.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harperreed/healthsync/internal/app"
	"github.com/harperreed/healthsync/internal/config"
	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/tracker"
)

// skipApp marks commands that manage storage themselves.
const skipApp = "skip-app"

var (
	cfg         *config.Config
	application *app.App

	// appOptions lets tests inject a clock or stores.
	appOptions app.Options
)

var rootCmd = &cobra.Command{
	Use:   "healthsync",
	Short: "Track fasting, weight, water, sleep, and mood with two-way health store sync",
	Long: `healthsync keeps a local health log and syncs it both ways with the
platform health store.

WHAT IT TRACKS:

  fasting     fasting sessions with a goal (hours)
  weight      body weight (kg)
  hydration   water intake (ml), alias "water"
  sleep       sleep intervals with optional quality 1-5
  mood        mood and energy on a 1-10 scale

QUICK START:

  $ healthsync fast start --goal 16     # Begin a fast
  $ healthsync add weight 82.5          # Log your weight
  $ healthsync add water 500            # Log a glass of water
  $ healthsync list weight              # See recent weight entries
  $ healthsync stats                    # Aggregates for every domain

HEALTH STORE SYNC:

  $ healthsync sync enable weight       # Turn on sync and import history
  $ healthsync sync run                 # Pull changes for every domain
  $ healthsync sync run weight --reset  # Rebuild from the store, detecting deletions
  $ healthsync watch                    # Stay running and import changes as they land

CLOUD BACKUP:

  With backend "charm", sync state is stored in Charm KV and
  replicated across devices. See 'healthsync sync cloud'.

MCP INTEGRATION:

  Run 'healthsync mcp' to start the Model Context Protocol server.

  {
    "mcpServers": {
      "healthsync": { "command": "healthsync", "args": ["mcp"] }
    }
  }

CONFIGURATION:

  Settings live in ~/.config/healthsync/config.json. HEALTHSYNC_BACKEND,
  HEALTHSYNC_DATA_DIR, and DATABASE_URL override the file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" || skipsApp(cmd) {
			return nil
		}
		return openApp()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp()
	},
}

// Execute runs the root command and always releases the app.
func Execute() error {
	err := rootCmd.Execute()
	if cerr := closeApp(); err == nil {
		err = cerr
	}
	return err
}

func skipsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipApp] == "true" || c.Name() == "completion" {
			return true
		}
	}
	return false
}

func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.EnsureDeviceID() {
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}
	return nil
}

func openApp() error {
	if err := loadConfig(); err != nil {
		return err
	}
	opts := appOptions
	if opts.Notifier == nil {
		opts.Notifier = notify
	}
	a, err := app.New(cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to open healthsync: %w", err)
	}
	application = a
	return nil
}

func closeApp() error {
	if application == nil {
		return nil
	}
	err := application.Close()
	application = nil
	return err
}

// domainArg resolves a domain argument to its manager.
func domainArg(s string) (tracker.Domain, error) {
	d, err := models.ParseDomain(s)
	if err != nil {
		return nil, err
	}
	return application.Get(d)
}
