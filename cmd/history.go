package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mhoffs/syncdecl/internal/config"
	"github.com/mhoffs/syncdecl/internal/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent reconciliation runs",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return err
	}
	if cfg.History.Database == "" {
		return fmt.Errorf("run history is not configured (set history.database)")
	}

	limit, _ := cmd.Flags().GetInt("limit")

	store, err := history.Open(ctx, cfg.History.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tOUTCOME\tDEVICES\tFOLDERS\tRESTART\tTOOK\tERROR")
	for _, run := range runs {
		restart := ""
		if run.RestartTriggered {
			restart = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			humanize.Time(run.StartedAt),
			run.Outcome,
			run.Devices,
			run.Folders,
			restart,
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
			run.Error,
		)
	}
	return w.Flush()
}
