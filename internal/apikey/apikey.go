// Package apikey extracts the control API key from the daemon's own config
// file on disk.
//
// On first startup the daemon generates its config file, including the API
// key, some time after the process launches. Waiting for the file is a local
// startup race, not a transport problem, so it gets its own error kind and a
// generous but bounded timeout.
package apikey

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// DefaultPollInterval is how often the config file is re-checked while
// waiting for the daemon to create it.
const DefaultPollInterval = time.Second

// ErrWaitTimeout reports that the daemon never produced a readable config
// file within the wait window. Distinct from transport failures: the daemon
// was likely never started at all.
var ErrWaitTimeout = errors.New("timed out waiting for daemon config file")

type daemonConfig struct {
	XMLName xml.Name `xml:"configuration"`
	GUI     struct {
		APIKey string `xml:"apikey"`
	} `xml:"gui"`
}

// FromFile reads the API key from the daemon's config file.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read daemon config: %w", err)
	}

	var cfg daemonConfig
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("parse daemon config: %w", err)
	}
	if cfg.GUI.APIKey == "" {
		return "", fmt.Errorf("daemon config %s has no api key", path)
	}
	return cfg.GUI.APIKey, nil
}

// Wait polls for the daemon's config file until the API key can be read,
// the timeout elapses, or the context is canceled. A missing or not yet
// fully written file is retried; only the deadline makes it fatal. A zero
// interval means DefaultPollInterval.
func Wait(ctx context.Context, path string, timeout, interval time.Duration) (string, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		key, err := FromFile(path)
		if err == nil {
			return key, nil
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: %s (last error: %v)", ErrWaitTimeout, path, err)
		}
		slog.Debug("daemon config file not ready", "path", path, "error", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}
