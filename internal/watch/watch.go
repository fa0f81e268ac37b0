// Package watch re-runs reconciliation when the declared configuration file
// changes on disk, and optionally on a fixed interval.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Editors replace config files rather than writing in place, so several
// events arrive per save. Changes are coalesced over this window.
const debounceDelay = 500 * time.Millisecond

// Runner performs one reconciliation pass.
type Runner func(ctx context.Context) error

// Watcher triggers a Runner on config file changes and interval ticks.
type Watcher struct {
	configPath string
	interval   time.Duration // 0 disables periodic runs
	run        Runner
}

// New creates a watcher for the given declared config file.
func New(configPath string, interval time.Duration, run Runner) *Watcher {
	return &Watcher{
		configPath: configPath,
		interval:   interval,
		run:        run,
	}
}

// Run performs an initial pass and then blocks, re-running on changes until
// the context is canceled. Failed passes are logged and do not stop the
// loop; the next trigger retries.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	// Watch the directory containing the file (more reliable for writes).
	if err := fsw.Add(filepath.Dir(w.configPath)); err != nil {
		return err
	}
	filename := filepath.Base(w.configPath)

	w.runOnce(ctx, "startup")

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce.Reset(debounceDelay)
			}

		case <-debounce.C:
			w.runOnce(ctx, "config change")

		case <-tick:
			w.runOnce(ctx, "interval")

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context, trigger string) {
	slog.Info("reconciliation triggered", "trigger", trigger)
	if err := w.run(ctx); err != nil {
		slog.Error("reconciliation failed", "trigger", trigger, "error", err)
	}
}
