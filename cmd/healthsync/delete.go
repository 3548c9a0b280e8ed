// ABOUTME: CLI command for deleting an entry from one domain.
// ABOUTME: Supports full IDs and unique prefixes; removes the health store copy too.
package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthsync/internal/sync"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <domain> <id>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete an entry",
	Long: `Delete an entry by its ID or ID prefix.

The ID prefix is shown in the first column of 'healthsync list' output.
When sync is enabled for the domain, the matching health store sample is
deleted as well.

EXAMPLES:

  healthsync delete weight abc12345
  healthsync rm water abc1          # Short prefix (if unique)`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := domainArg(args[0])
		if err != nil {
			return err
		}

		e, err := m.Remove(cmd.Context(), args[1])
		if e == nil {
			if errors.Is(err, sync.ErrEntryNotFound) {
				return fmt.Errorf("%s entry not found: %s", m.Domain(), args[1])
			}
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		color.Yellow("✗ Deleted %s", m.Domain())
		fmt.Printf("  %s %s\n",
			color.New(color.Faint).Sprint(e.Base().ID.String()[:8]),
			describe(e))
		warnPlatform(err)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
