// ABOUTME: CLI commands for Charm cloud replication of sync state.
// ABOUTME: Supports link, unlink, status, repair, reset, and wipe operations.
package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/charmbracelet/charm/kv"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthsync/internal/charm"
	"github.com/harperreed/healthsync/internal/config"
)

// kvName is the Charm KV database holding sync state.
const kvName = "healthsync"

var ownStorage = map[string]string{skipApp: "true"}

var cloudCmd = &cobra.Command{
	Use:   "cloud",
	Short: "Replicate sync state across devices with Charm",
	Long: `Replicate sync state (history, anchors, preferences, and the run log)
across devices using Charm Cloud. Requires "backend": "charm" in the config
or HEALTHSYNC_BACKEND=charm.

Your data is E2E encrypted with your SSH key before upload.

COMMANDS:

  link        Link this device to your Charm account
  unlink      Disconnect this device from Charm
  status      Show account info and local state
  repair      Repair database corruption (checkpoints WAL, removes SHM, vacuums)
  reset       Reset local state and restore from cloud (destructive)
  wipe        Delete cloud and local state (destructive)`,
}

var cloudLinkCmd = &cobra.Command{
	Use:         "link",
	Short:       "Link this device to Charm",
	Annotations: ownStorage,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runCharm("link"); err != nil {
			return fmt.Errorf("failed to link: %w\n\nMake sure 'charm' CLI is installed: go install github.com/charmbracelet/charm@latest", err)
		}

		color.Green("\n✓ Device linked to Charm")
		if err := loadConfig(); err != nil {
			return err
		}
		if cfg.GetBackend() != config.BackendCharm {
			color.Yellow("⚠ Backend is %q; set \"backend\": \"charm\" to replicate sync state.", cfg.GetBackend())
			return nil
		}

		client, err := charm.InitClient(cfg.CharmHost, nil)
		if err != nil {
			color.Yellow("⚠ Initial sync failed: %v", err)
			return nil
		}
		defer client.Close()
		if err := client.Sync(); err != nil {
			color.Yellow("⚠ Initial sync failed: %v", err)
		} else {
			color.Green("✓ Initial sync complete")
		}
		return nil
	},
}

var cloudUnlinkCmd = &cobra.Command{
	Use:         "unlink",
	Short:       "Disconnect from Charm",
	Long:        `Disconnect this device from Charm. Local sync state is preserved.`,
	Annotations: ownStorage,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runCharm("unlink"); err != nil {
			return fmt.Errorf("failed to unlink: %w", err)
		}
		color.Green("✓ Device unlinked from Charm")
		fmt.Println("Your local health data is preserved.")
		return nil
	},
}

var cloudStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Charm account and replication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ok := application.Repo.(*charm.Client)
		if !ok {
			color.Yellow("Cloud replication is off (backend %q)", cfg.GetBackend())
			fmt.Println("\nSet \"backend\": \"charm\" in the config to enable it.")
			return nil
		}

		id, err := client.ID()
		if err != nil {
			color.Yellow("Not linked to Charm")
			fmt.Println("\nRun 'healthsync sync cloud link' to connect to Charm.")
			return nil
		}

		host := cfg.CharmHost
		if host == "" {
			host = "charm.2389.dev"
		}
		fmt.Println("Charm ID:", id)
		fmt.Println("Server:", host)
		if client.IsReadOnly() {
			color.Yellow("Read-only: another process holds the database")
		}
		fmt.Println()

		runs, _ := client.ListSyncRuns(nil, 0)
		color.Green("✓ Connected to Charm")
		for _, m := range application.All() {
			fmt.Printf("  %s %d entries\n", padRight(string(m.Domain()), 10), len(m.List()))
		}
		fmt.Printf("  Sync runs: %d\n", len(runs))
		return nil
	},
}

var cloudWipeCmd = &cobra.Command{
	Use:         "wipe",
	Short:       "Delete all cloud and local sync state",
	Annotations: ownStorage,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("This will PERMANENTLY DELETE all cloud backups and local sync state.")
		fmt.Print("Type 'wipe' to confirm: ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "wipe" {
			fmt.Println("Canceled.")
			return nil
		}

		result, err := kv.Wipe(kvName)
		if err != nil {
			return fmt.Errorf("wipe failed: %w", err)
		}

		color.Green("✓ Data wiped successfully")
		fmt.Printf("  Cloud backups deleted: %d\n", result.CloudBackupsDeleted)
		fmt.Printf("  Local files deleted: %d\n", result.LocalFilesDeleted)
		return nil
	},
}

var cloudRepairCmd = &cobra.Command{
	Use:         "repair",
	Short:       "Repair database corruption",
	Annotations: ownStorage,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		fmt.Println("Repairing healthsync database...")
		result, err := kv.Repair(kvName, force)

		if result.WalCheckpointed {
			color.Green("  ✓ WAL checkpointed")
		}
		if result.ShmRemoved {
			color.Green("  ✓ SHM file removed")
		}
		if result.IntegrityOK {
			color.Green("  ✓ Integrity check passed")
		} else {
			color.Red("  ✗ Integrity check failed")
		}
		if result.Vacuumed {
			color.Green("  ✓ Database vacuumed")
		}

		if err != nil {
			if !force {
				color.Yellow("\nRun with --force to attempt recovery.")
			}
			return fmt.Errorf("repair failed: %w", err)
		}

		color.Green("\n✓ Repair complete")
		return nil
	},
}

var cloudResetCmd = &cobra.Command{
	Use:         "reset",
	Short:       "Reset local sync state and restore from cloud",
	Annotations: ownStorage,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("This will DELETE all local sync state and restore from cloud.")
		fmt.Print("Continue? [y/N]: ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "y" && confirm != "Y" {
			fmt.Println("Canceled.")
			return nil
		}

		if err := kv.Reset(kvName); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}

		color.Green("✓ Local sync state reset and restored from cloud")
		return nil
	},
}

func runCharm(arg string) error {
	c := exec.Command("charm", arg)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

func init() {
	cloudRepairCmd.Flags().Bool("force", false, "Attempt recovery even if integrity checks fail")

	cloudCmd.AddCommand(cloudLinkCmd)
	cloudCmd.AddCommand(cloudUnlinkCmd)
	cloudCmd.AddCommand(cloudStatusCmd)
	cloudCmd.AddCommand(cloudRepairCmd)
	cloudCmd.AddCommand(cloudResetCmd)
	cloudCmd.AddCommand(cloudWipeCmd)
	syncCmd.AddCommand(cloudCmd)
}
