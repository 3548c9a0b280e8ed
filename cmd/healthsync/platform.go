// ABOUTME: CLI commands that drive the journal health store directly.
// ABOUTME: Simulates other apps writing samples and the user granting or revoking access.
package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthsync/internal/healthstore"
	"github.com/harperreed/healthsync/internal/models"
)

var (
	platformAt        string
	platformEnd       string
	platformSecondary float64
	platformSource    string
)

var platformCmd = &cobra.Command{
	Use:   "platform",
	Short: "Inspect and modify the journal health store",
	Long: `Inspect and modify the journal health store as another app would.

The journal is the file-backed health store used when the platform kind is
"journal" (the default). Changes made here are picked up by 'healthsync
watch' or the next 'healthsync sync run'.

VALUES BY DOMAIN:

  fasting     goal hours (interval; --end required)
  weight      kilograms
  hydration   milliliters
  sleep       hours asleep (interval; --secondary quality 1-5)
  mood        mood 1-10 (--secondary energy 1-10)

EXAMPLES:

  healthsync platform grant weight
  healthsync platform add weight 81.4 --at "2026-08-01 07:00"
  healthsync platform add sleep 7.5 --at "2026-08-01 23:00" --end "2026-08-02 06:30"
  healthsync platform list weight
  healthsync platform delete weight 01J...
  healthsync platform revoke mood`,
}

var platformListCmd = &cobra.Command{
	Use:   "list <domain>",
	Short: "List live samples",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, d, err := journalArg(args[0])
		if err != nil {
			return err
		}
		items, err := j.Items(d)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No samples found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, it := range items {
			when := it.Start.Local().Format("2006-01-02 15:04")
			if !it.End.IsZero() {
				when += " → " + it.End.Local().Format("2006-01-02 15:04")
			}
			value := strconv.FormatFloat(it.Value, 'f', -1, 64)
			if it.Secondary != 0 {
				value += "/" + strconv.FormatFloat(it.Secondary, 'f', -1, 64)
			}
			fmt.Printf("%s %s %s %s\n",
				faint.Sprint(it.Identifier),
				faint.Sprint(when),
				padRight(value, 10),
				faint.Sprint(it.SourceName))
		}
		return nil
	},
}

var platformAddCmd = &cobra.Command{
	Use:   "add <domain> <value>",
	Short: "Write a sample as another app",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, d, err := journalArg(args[0])
		if err != nil {
			return err
		}
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid value: %s", args[1])
		}

		item := healthstore.Item{Domain: d, Value: value, Secondary: platformSecondary, SourceName: platformSource}
		item.Start = application.Clock.Now()
		if platformAt != "" {
			if item.Start, err = parseTime(platformAt); err != nil {
				return fmt.Errorf("invalid --at: %s", platformAt)
			}
		}
		if platformEnd != "" {
			if item.End, err = parseTime(platformEnd); err != nil {
				return fmt.Errorf("invalid --end: %s", platformEnd)
			}
		}
		if isInterval(d) && item.End.IsZero() {
			if d == models.DomainFasting {
				return fmt.Errorf("fasting samples need --end")
			}
			item.End = item.Start.Add(time.Duration(value * float64(time.Hour)))
		}

		id, err := j.Write(cmd.Context(), item)
		if err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
		color.Green("✓ Wrote %s sample", d)
		fmt.Printf("  %s\n", color.New(color.Faint).Sprint(id))
		return nil
	},
}

var platformDeleteCmd = &cobra.Command{
	Use:     "delete <domain> <identifier>",
	Aliases: []string{"rm"},
	Short:   "Delete a sample",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, d, err := journalArg(args[0])
		if err != nil {
			return err
		}
		if err := j.DeleteByIdentifier(cmd.Context(), d, args[1]); err != nil {
			return fmt.Errorf("failed to delete sample: %w", err)
		}
		color.Yellow("✗ Deleted %s sample %s", d, args[1])
		return nil
	},
}

var platformGrantCmd = &cobra.Command{
	Use:   "grant <domain|all>",
	Short: "Authorize access to a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAuth(args[0], healthstore.AuthAuthorized)
	},
}

var platformRevokeCmd = &cobra.Command{
	Use:   "revoke <domain|all>",
	Short: "Deny access to a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAuth(args[0], healthstore.AuthDenied)
	},
}

func setAuth(arg string, status healthstore.AuthStatus) error {
	j, err := journal()
	if err != nil {
		return err
	}
	domains := models.AllDomains
	if arg != "all" {
		d, err := models.ParseDomain(arg)
		if err != nil {
			return err
		}
		domains = []models.Domain{d}
	}
	for _, d := range domains {
		if err := j.SetAuthorization(d, status); err != nil {
			return fmt.Errorf("failed to update %s: %w", d, err)
		}
		fmt.Printf("%s %s\n", padRight(string(d), 10), authLabel(status))
	}
	return nil
}

func journal() (*healthstore.Journal, error) {
	j, ok := application.Store.(*healthstore.Journal)
	if !ok {
		return nil, fmt.Errorf("platform commands need the journal platform (configured: %s)", cfg.GetPlatformKind())
	}
	return j, nil
}

func journalArg(domain string) (*healthstore.Journal, models.Domain, error) {
	d, err := models.ParseDomain(domain)
	if err != nil {
		return nil, "", err
	}
	j, err := journal()
	return j, d, err
}

func isInterval(d models.Domain) bool {
	return d == models.DomainFasting || d == models.DomainSleep
}

func init() {
	platformAddCmd.Flags().StringVar(&platformAt, "at", "", "sample start (default: now)")
	platformAddCmd.Flags().StringVar(&platformEnd, "end", "", "sample end for interval domains (sleep default: start + value hours)")
	platformAddCmd.Flags().Float64Var(&platformSecondary, "secondary", 0, "sleep quality or mood energy")
	platformAddCmd.Flags().StringVar(&platformSource, "source", "platform-cli", "source app name")

	platformCmd.AddCommand(platformListCmd)
	platformCmd.AddCommand(platformAddCmd)
	platformCmd.AddCommand(platformDeleteCmd)
	platformCmd.AddCommand(platformGrantCmd)
	platformCmd.AddCommand(platformRevokeCmd)
	rootCmd.AddCommand(platformCmd)
}
