package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mhoffs/syncdecl/internal/api"
	"github.com/mhoffs/syncdecl/internal/apikey"
	"github.com/mhoffs/syncdecl/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X github.com/mhoffs/syncdecl/cmd.Version=..."
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "syncdecl",
	Short: "Declarative configuration manager for a sync daemon",
	Long: `Syncdecl reconciles a running file synchronization daemon's live
configuration with a declared configuration file, via the daemon's
REST control API.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Declared configuration file (or SYNCDECL_CONFIG env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	levelName, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return fmt.Errorf("invalid log level %q", levelName)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
	return nil
}

// configPath resolves the declared config file path from flag, environment,
// or the system default.
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("SYNCDECL_CONFIG")
	}
	if path == "" {
		path = "/etc/syncdecl/config.toml"
	}
	return path
}

// newClient acquires the API key and builds a control API client. When the
// key is not declared explicitly it is extracted from the daemon's own
// config file, waiting out the daemon's first-startup race.
func newClient(ctx context.Context, cfg *config.File) (*api.Client, error) {
	key := cfg.Daemon.APIKey
	if key == "" {
		var err error
		key, err = apikey.Wait(ctx, cfg.Daemon.ConfigFile, cfg.Daemon.KeyWaitTimeout.Std(), apikey.DefaultPollInterval)
		if err != nil {
			return nil, fmt.Errorf("acquire api key: %w", err)
		}
	}

	return api.NewClient(cfg.Daemon.APIAddress, key, api.Options{
		Retries:    cfg.Daemon.Retries,
		RetryDelay: cfg.Daemon.RetryDelay.Std(),
	}), nil
}
