// ABOUTME: CLI commands for adding manual weight, water, sleep, and mood entries.
// ABOUTME: Entries are written through to the health store when the domain syncs.
package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/sync"
)

var (
	addAt      string
	addNotes   string
	addQuality int
)

var addCmd = &cobra.Command{
	Use:     "add",
	Aliases: []string{"a"},
	Short:   "Add a health entry",
	Long: `Add a manual health entry.

Entries that collide with one already recorded (same value at nearly the
same time) are rejected. When sync is enabled for the domain the entry is
also written to the health store.

EXAMPLES:

  healthsync add weight 82.5
  healthsync add weight 82.1 --at "2026-08-01 07:00"
  healthsync add water 500
  healthsync add sleep "2026-08-01 23:00" "2026-08-02 07:00" --quality 4
  healthsync add mood 7 6 --notes "Good day"`,
}

var addWeightCmd = &cobra.Command{
	Use:   "weight <kg>",
	Short: "Log body weight in kilograms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kg, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid weight: %s", args[0])
		}
		at, err := addTime()
		if err != nil {
			return err
		}
		e := models.NewWeightEntry(at, kg)
		return reportAdd(application.Weight.AddManual(cmd.Context(), e), e, fmt.Sprintf("%.1f kg", kg))
	},
}

var addWaterCmd = &cobra.Command{
	Use:     "water <ml>",
	Aliases: []string{"hydration"},
	Short:   "Log water intake in milliliters",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ml, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %s", args[0])
		}
		at, err := addTime()
		if err != nil {
			return err
		}
		e := models.NewHydrationEntry(at, ml)
		return reportAdd(application.Hydration.AddManual(cmd.Context(), e), e, fmt.Sprintf("%.0f ml", ml))
	},
}

var addSleepCmd = &cobra.Command{
	Use:   "sleep <start> <end>",
	Short: "Log a sleep interval",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseTime(args[0])
		if err != nil {
			return fmt.Errorf("invalid start: %s", args[0])
		}
		end, err := parseTime(args[1])
		if err != nil {
			return fmt.Errorf("invalid end: %s", args[1])
		}
		e := models.NewSleepEntry(start, end)
		if addQuality > 0 {
			e.WithQuality(addQuality)
		}
		return reportAdd(application.Sleep.AddManual(cmd.Context(), e), e, formatDuration(e.Duration()))
	},
}

var addMoodCmd = &cobra.Command{
	Use:   "mood <mood> <energy>",
	Short: "Log mood and energy (1-10)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mood, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid mood: %s", args[0])
		}
		energy, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid energy: %s", args[1])
		}
		at, err := addTime()
		if err != nil {
			return err
		}
		e := models.NewMoodEntry(at, mood, energy)
		if addNotes != "" {
			e.WithNotes(addNotes)
		}
		return reportAdd(application.Mood.AddManual(cmd.Context(), e), e, fmt.Sprintf("mood %d energy %d", mood, energy))
	},
}

func addTime() (time.Time, error) {
	if addAt == "" {
		return application.Clock.Now(), nil
	}
	t, err := parseTime(addAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp: %s", addAt)
	}
	return t, nil
}

func reportAdd(err error, e models.Entry, detail string) error {
	if err != nil && !errors.Is(err, sync.ErrPlatform) {
		return fmt.Errorf("failed to add entry: %w", err)
	}
	color.Green("✓ Added %s", detail)
	fmt.Printf("  %s %s\n",
		color.New(color.Faint).Sprint(e.Base().ID.String()[:8]),
		e.Timestamp().Local().Format("2006-01-02 15:04"))
	warnPlatform(err)
	return nil
}

// parseTime accepts the CLI's date formats. Zone-less values are local time.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.ParseInLocation(f, s, time.Local); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func init() {
	addCmd.PersistentFlags().StringVar(&addAt, "at", "", "timestamp (default: now)")
	addCmd.PersistentFlags().StringVar(&addNotes, "notes", "", "notes (mood only, kept locally)")
	addSleepCmd.Flags().IntVarP(&addQuality, "quality", "q", 0, "sleep quality 1-5")

	addCmd.AddCommand(addWeightCmd)
	addCmd.AddCommand(addWaterCmd)
	addCmd.AddCommand(addSleepCmd)
	addCmd.AddCommand(addMoodCmd)
	rootCmd.AddCommand(addCmd)
}
