package reconcile

import (
	"context"
	"fmt"
	"log/slog"
)

// API is the subset of the control API a reconciliation run needs.
type API interface {
	Config(ctx context.Context) (map[string]any, error)
	SetConfig(ctx context.Context, cfg map[string]any) error
	RestartRequired(ctx context.Context) (bool, error)
	Restart(ctx context.Context) error
}

// Result describes a completed reconciliation run.
type Result struct {
	Devices          int
	Folders          int
	RestartTriggered bool
}

// Reconciler runs the fetch-merge-submit sequence against a daemon.
type Reconciler struct {
	api API
}

// New creates a Reconciler using the given control API.
func New(api API) *Reconciler {
	return &Reconciler{api: api}
}

// Run performs one reconciliation pass: fetch the live configuration, merge
// the declared intent over it, submit the result, and trigger a restart if
// the daemon reports one is required.
//
// There is no rollback. If submission fails partway through retries, the
// daemon keeps whatever its last successful write was. A failure after a
// successful submit (restart check or restart trigger) leaves the daemon
// running with the new configuration but the old process state; the error
// text says so.
func (r *Reconciler) Run(ctx context.Context, in Input) (*Result, error) {
	live, err := r.api.Config(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch live config: %w", err)
	}

	merged := Merge(live, in)
	result := &Result{
		Devices: len(listValue(merged["devices"])),
		Folders: len(listValue(merged["folders"])),
	}

	if err := r.api.SetConfig(ctx, merged); err != nil {
		return nil, fmt.Errorf("submit merged config: %w", err)
	}
	slog.Info("configuration submitted",
		"devices", result.Devices,
		"folders", result.Folders,
	)

	required, err := r.api.RestartRequired(ctx)
	if err != nil {
		return nil, fmt.Errorf("config applied, but restart check failed: %w", err)
	}
	if required {
		if err := r.api.Restart(ctx); err != nil {
			return nil, fmt.Errorf("config applied, but restart failed: %w", err)
		}
		result.RestartTriggered = true
		slog.Info("daemon restart triggered")
	}

	return result, nil
}
