package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mhoffs/syncdecl/internal/config"
	"github.com/mhoffs/syncdecl/internal/history"
	"github.com/mhoffs/syncdecl/internal/notify"
	"github.com/mhoffs/syncdecl/internal/reconcile"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Apply the declared configuration to the running daemon",
	Long: `Reconcile fetches the daemon's live configuration, merges the declared
settings, devices, and folders over it, submits the result, and triggers
a daemon restart if the API reports one is required.

The run is one-shot: exit code 0 means the merged configuration was
applied (and a restart triggered if needed), non-zero means the run
failed after retries.`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
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

	return reconcileOnce(ctx, configPath(cmd))
}

// reconcileOnce loads the declared config and performs a full reconciliation
// pass, recording the outcome in the run history and notifying any
// configured channels. Shared by the reconcile and watch commands.
func reconcileOnce(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}

	started := time.Now()
	result, runErr := reconcile.New(client).Run(ctx, reconcileInput(cfg))

	recordRun(ctx, cfg, started, result, runErr)
	notifyRun(ctx, cfg, result, runErr)

	return runErr
}

func reconcileInput(cfg *config.File) reconcile.Input {
	return reconcile.Input{
		Settings:        cfg.Settings,
		Devices:         cfg.DeviceList(),
		Folders:         cfg.FolderList(),
		OverrideDevices: cfg.OverrideDevices,
		OverrideFolders: cfg.OverrideFolders,
	}
}

// recordRun appends the outcome to the run history, when configured. History
// only observes runs: failures to record are logged, never fatal.
func recordRun(ctx context.Context, cfg *config.File, started time.Time, result *reconcile.Result, runErr error) {
	if cfg.History.Database == "" {
		return
	}

	store, err := history.Open(ctx, cfg.History.Database)
	if err != nil {
		slog.Warn("run history unavailable", "error", err)
		return
	}
	defer store.Close()

	run := &history.Run{
		ID:         history.NewRunID(),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Outcome:    history.OutcomeApplied,
	}
	if result != nil {
		run.Devices = result.Devices
		run.Folders = result.Folders
		run.RestartTriggered = result.RestartTriggered
	}
	if runErr != nil {
		run.Outcome = history.OutcomeFailed
		run.Error = runErr.Error()
	}

	if err := store.Record(ctx, run); err != nil {
		slog.Warn("recording run failed", "error", err)
	}
}

func notifyRun(ctx context.Context, cfg *config.File, result *reconcile.Result, runErr error) {
	channels := cfg.Notify.Channels()
	if len(channels) == 0 {
		return
	}

	outcome := &notify.Outcome{Err: runErr}
	if result != nil {
		outcome.Devices = result.Devices
		outcome.Folders = result.Folders
		outcome.RestartTriggered = result.RestartTriggered
	}
	notify.Broadcast(ctx, channels, notify.FormatOutcome(outcome))
}
