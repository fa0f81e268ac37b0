package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mhoffs/syncdecl/internal/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile continuously as the declared configuration changes",
	Long: `Watch runs an initial reconciliation and then re-runs whenever the
declared configuration file changes on disk. With --interval, it also
re-runs periodically to catch drift introduced through the daemon's
own UI.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("interval", 0, "Also reconcile on this interval (0 disables)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	interval, _ := cmd.Flags().GetDuration("interval")
	path := configPath(cmd)

	slog.Info("watching declared configuration", "config", path, "interval", interval)
	watcher := watch.New(path, interval, func(ctx context.Context) error {
		return reconcileOnce(ctx, path)
	})
	return watcher.Run(ctx)
}
