// ABOUTME: CLI command for exporting every domain's history and the sync log.
// ABOUTME: Supports JSON and YAML.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export health data",
	Long: `Export every domain's history, sync preferences, aggregates, and the
sync run log.

FORMATS:

  json       Full JSON export (suitable for backup)
  yaml       YAML export (human-readable)

EXAMPLES:

  healthsync export json                  # Export all data as JSON
  healthsync export json -o backup.json   # Save to file
  healthsync export yaml`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml"},
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, m := range application.All() {
			m.Refresh()
		}
		export, err := application.Export(application.Repo, application.Clock.Now())
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		data, err := export.Encode(args[0])
		if err != nil {
			return err
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported to %s", exportOutput)
		} else {
			fmt.Println(string(data))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}
