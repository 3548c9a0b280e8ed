// ABOUTME: CLI command for listing one domain's history.
// ABOUTME: Shows the short ID, time, value, and whether the entry came from the health store.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthsync/internal/models"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:     "list <domain>",
	Aliases: []string{"ls", "l"},
	Short:   "List entries for a domain",
	Long: `List recent entries for one domain, newest first.

OUTPUT FORMAT:

  Each line shows: ID  TIMESTAMP  VALUE  SOURCE

  The ID is an 8-character prefix you can use with 'healthsync delete'.
  Entries imported from the health store are marked "external".

DOMAINS:

  fasting, weight, hydration (or water), sleep, mood

EXAMPLES:

  healthsync list weight          # Last 20 weight entries
  healthsync list water -n 50     # Last 50 hydration entries`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := domainArg(args[0])
		if err != nil {
			return err
		}

		entries := m.List()
		if len(entries) == 0 {
			fmt.Println("No entries found.")
			return nil
		}
		if listLimit > 0 && len(entries) > listLimit {
			entries = entries[:listLimit]
		}

		faint := color.New(color.Faint)
		for _, e := range entries {
			source := ""
			if !e.Base().IsManual() {
				source = faint.Sprint(" external")
			}
			fmt.Printf("%s %s %s%s\n",
				faint.Sprint(e.Base().ID.String()[:8]),
				faint.Sprint(e.Timestamp().Local().Format("2006-01-02 15:04")),
				padRight(describe(e), 28),
				source)
		}

		return nil
	},
}

// describe renders an entry's value for a one-line listing.
func describe(e models.Entry) string {
	switch v := e.(type) {
	case *models.FastingSession:
		if v.End == nil {
			return fmt.Sprintf("active, goal %.0fh", v.GoalHours)
		}
		return fmt.Sprintf("%s of %.0fh", formatDuration(v.End.Sub(v.Start)), v.GoalHours)
	case *models.WeightEntry:
		return fmt.Sprintf("%.1f kg", v.Kilograms)
	case *models.HydrationEntry:
		return fmt.Sprintf("%.0f ml", v.Milliliters)
	case *models.SleepEntry:
		s := formatDuration(v.Duration())
		if v.Quality > 0 {
			s += fmt.Sprintf(" quality %d", v.Quality)
		}
		return s
	case *models.MoodEntry:
		s := fmt.Sprintf("mood %d energy %d", v.Mood, v.Energy)
		if v.Notes != nil && *v.Notes != "" {
			s += " (" + truncate(*v.Notes, 30) + ")"
		}
		return s
	default:
		return ""
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "max number of results")
	rootCmd.AddCommand(listCmd)
}
