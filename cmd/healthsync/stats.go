// ABOUTME: CLI command showing the fasting state and every domain's aggregates.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthsync/internal/aggregate"
	"github.com/harperreed/healthsync/internal/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregates for every domain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sum := application.Summarize(application.Clock.Now())
		bold := color.New(color.Bold)
		faint := color.New(color.Faint)

		if sum.Fasting.Session != nil {
			fmt.Printf("%s fasting for %s\n\n", bold.Sprint("Active fast:"), sum.Fasting.Elapsed)
		}

		for _, d := range models.AllDomains {
			ds := sum.Domains[d]
			state := faint.Sprint("sync off")
			if ds.Preference.Enabled {
				state = color.GreenString("sync on")
			}
			fmt.Printf("%s %s\n", bold.Sprint(padRight(string(d), 10)), state)
			for _, line := range statLines(d, ds.Aggregate) {
				fmt.Printf("  %s\n", line)
			}
		}
		return nil
	},
}

func statLines(d models.Domain, s aggregate.Snapshot) []string {
	lines := []string{fmt.Sprintf("entries: %d", s.Count)}
	switch d {
	case models.DomainFasting:
		lines = append(lines, fmt.Sprintf("completed: %d, average %.1fh", s.Completed, s.Average))
	case models.DomainWeight:
		if s.Latest != nil {
			lines = append(lines, fmt.Sprintf("latest: %.1f kg", *s.Latest))
		}
		if s.WindowCount > 0 {
			lines = append(lines, fmt.Sprintf("7-day average: %.1f kg (%d entries)", s.Average, s.WindowCount))
		}
	case models.DomainHydration:
		lines = append(lines, fmt.Sprintf("today: %.0f ml", s.Today))
	case models.DomainSleep:
		if s.WindowCount > 0 {
			lines = append(lines, fmt.Sprintf("7-day average: %.1fh", s.Average))
		}
		if s.SecondaryAverage > 0 {
			lines = append(lines, fmt.Sprintf("quality: %.1f", s.SecondaryAverage))
		}
	case models.DomainMood:
		if s.WindowCount > 0 {
			lines = append(lines, fmt.Sprintf("7-day mood %.1f, energy %.1f", s.Average, s.SecondaryAverage))
		}
	}
	if s.Streak != nil {
		lines = append(lines, fmt.Sprintf("streak: %d days (longest %d)", s.Streak.Current, s.Streak.Longest))
	}
	return lines
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
