package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/mhoffs/syncdecl/internal/config"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running daemon's identity and restart state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return err
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}

	version, err := client.Version(ctx)
	if err != nil {
		return err
	}
	status, err := client.Status(ctx)
	if err != nil {
		return err
	}
	restartRequired, err := client.RestartRequired(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "daemon:           %s (%s/%s)\n", version.Version, version.OS, version.Arch)
	fmt.Fprintf(out, "device id:        %s\n", status.MyID)
	fmt.Fprintf(out, "uptime:           %s\n", units.HumanDuration(time.Duration(status.Uptime)*time.Second))
	fmt.Fprintf(out, "restart required: %v\n", restartRequired)
	return nil
}
