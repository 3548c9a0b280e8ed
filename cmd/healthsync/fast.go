// ABOUTME: CLI commands for the fasting state machine.
// ABOUTME: Start, stop, cancel, and show the active fast.
package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthsync/internal/sync"
	"github.com/harperreed/healthsync/internal/tracker"
)

var fastGoal float64

var fastCmd = &cobra.Command{
	Use:     "fast",
	Aliases: []string{"f"},
	Short:   "Track fasting sessions",
	Long: `Track fasting sessions.

A fast is either idle or active. Stopping a fast records it and, when
fasting sync is enabled, writes it to the health store. Cancelling drops
the session without recording it anywhere.

EXAMPLES:

  healthsync fast start             # Start with the configured goal (default 16h)
  healthsync fast start --goal 18   # Start an 18 hour fast
  healthsync fast status            # Elapsed time and goal
  healthsync fast stop              # Finish and record the fast
  healthsync fast cancel            # Abandon the fast`,
}

var fastStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a fast",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := application.Fasting.Start(cmd.Context(), fastGoal)
		if err != nil {
			return err
		}
		color.Green("✓ Fast started")
		fmt.Printf("  %s %s goal %.0fh\n",
			color.New(color.Faint).Sprint(s.ID.String()[:8]),
			s.Start.Local().Format("2006-01-02 15:04"),
			s.GoalHours)
		return nil
	},
}

var fastStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Finish the active fast",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := application.Fasting.Stop(cmd.Context())
		if s == nil {
			return err
		}
		color.Green("✓ Fast recorded")
		fmt.Printf("  %s %s of %.0fh goal\n",
			color.New(color.Faint).Sprint(s.ID.String()[:8]),
			formatDuration(s.Duration(application.Clock.Now())),
			s.GoalHours)
		if s.MetGoal() {
			color.Green("  Goal met")
		}
		warnPlatform(err)
		return nil
	},
}

var fastCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Abandon the active fast without recording it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := application.Fasting.Cancel()
		if err != nil {
			return err
		}
		color.Yellow("✗ Fast cancelled")
		fmt.Printf("  %s started %s\n",
			color.New(color.Faint).Sprint(s.ID.String()[:8]),
			s.Start.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

var fastStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the fasting state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, s := application.Fasting.State()
		if state != tracker.Active {
			fmt.Println("No fast in progress.")
			return nil
		}
		elapsed := s.Duration(application.Clock.Now())
		goal := time.Duration(s.GoalHours * float64(time.Hour))
		fmt.Printf("Fasting for %s (goal %.0fh)\n", formatDuration(elapsed), s.GoalHours)
		if elapsed >= goal {
			color.Green("  Goal reached")
		} else {
			fmt.Printf("  %s to go\n", formatDuration(goal-elapsed))
		}
		return nil
	},
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

// warnPlatform reports a failed health store update; the local change stands.
func warnPlatform(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, sync.ErrPlatform) {
		color.Yellow("⚠ Saved locally but the health store update failed: %v", err)
		return
	}
	color.Red("✗ %v", err)
}

func init() {
	fastStartCmd.Flags().Float64Var(&fastGoal, "goal", 0, "goal in hours (default from config)")

	fastCmd.AddCommand(fastStartCmd)
	fastCmd.AddCommand(fastStopCmd)
	fastCmd.AddCommand(fastCancelCmd)
	fastCmd.AddCommand(fastStatusCmd)
	rootCmd.AddCommand(fastCmd)
}
