// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs a stdio MCP server over the domain managers, observing the health store meanwhile.
package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/healthsync/internal/mcp"
)

var mcpObserve bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.
The server communicates via stdin/stdout.

CONFIGURATION:

  {
    "mcpServers": {
      "healthsync": {
        "command": "healthsync",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  start_fast, stop_fast, cancel_fast     Fasting state machine
  add_weight, add_water                  Point entries
  add_sleep, add_mood                    Sleep intervals, mood and energy
  list_entries, delete_entry             History for one domain
  sync_domain, set_sync                  Run a sync strategy, toggle sync
  get_stats                              Aggregates and the active fast

AVAILABLE RESOURCES:

  health://summary    All aggregates and the active fast
  health://today      Today's entries across domains
  health://sync       Sync preferences and recent runs

While the server runs, enabled domains keep importing health store changes
unless --observe=false.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(application.Set, application.Repo, application.Clock)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if mcpObserve {
			if err := application.Observe(ctx); err != nil {
				application.Logger.Warn("observers not started", "err", err)
			}
		}
		return server.Serve(ctx)
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpObserve, "observe", true, "import health store changes while serving")
	rootCmd.AddCommand(mcpCmd)
}
