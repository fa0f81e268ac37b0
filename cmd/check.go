package cmd

import (
	"fmt"

	"github.com/mhoffs/syncdecl/internal/config"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the declared configuration without touching the daemon",
	Long: `Check loads the declared configuration file, resolves folder device
references against the declared devices, and reports what a reconcile
run would submit. The daemon is not contacted.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: OK\n", path)
	fmt.Fprintf(out, "daemon: %s\n", cfg.Daemon.APIAddress)
	fmt.Fprintf(out, "settings keys: %d\n", len(cfg.Settings))

	devices := cfg.DeviceList()
	fmt.Fprintf(out, "devices: %d (override: %v)\n", len(devices), cfg.OverrideDevices)
	for _, dev := range devices {
		fmt.Fprintf(out, "  %v  %v\n", dev["deviceID"], dev["addresses"])
	}

	folders := cfg.FolderList()
	fmt.Fprintf(out, "folders: %d (override: %v)\n", len(folders), cfg.OverrideFolders)
	for _, folder := range folders {
		fmt.Fprintf(out, "  %v  %v", folder["id"], folder["path"])
		if refs, ok := folder["devices"].([]any); ok {
			fmt.Fprintf(out, "  shared with %d device(s)", len(refs))
		}
		fmt.Fprintln(out)
	}
	return nil
}
