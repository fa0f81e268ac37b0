// Package config loads and validates the declared configuration file.
//
// The file describes the desired state for a running sync daemon: free-form
// global settings, devices keyed by a local symbolic name, and folders keyed
// the same way. Folder device references given as symbolic names are resolved
// to stable device IDs here, before reconciliation ever talks to the daemon.
package config

import (
	"fmt"
	"time"

	"github.com/mhoffs/syncdecl/internal/notify"
)

// Default daemon connection settings.
const (
	DefaultAPIAddress     = "http://127.0.0.1:8384"
	DefaultKeyWaitTimeout = 10 * time.Minute
	DefaultRetries        = 60
	DefaultRetryDelay     = time.Second
)

// File is the parsed declared configuration.
type File struct {
	Daemon Daemon `toml:"daemon" yaml:"daemon"`

	// When true the declared device/folder lists replace the live lists
	// entirely. When false, declared entries are prepended to whatever the
	// daemon already has.
	OverrideDevices bool `toml:"override_devices" yaml:"override_devices"`
	OverrideFolders bool `toml:"override_folders" yaml:"override_folders"`

	// Settings is deep-merged over the daemon's live configuration.
	// Keys not mentioned here are left untouched.
	Settings map[string]any `toml:"settings" yaml:"settings"`

	Devices map[string]*Device `toml:"devices" yaml:"devices"`
	Folders map[string]*Folder `toml:"folders" yaml:"folders"`

	History History       `toml:"history" yaml:"history"`
	Notify  NotifyTargets `toml:"notify" yaml:"notify"`
}

// Daemon holds connection settings for the daemon's control API.
type Daemon struct {
	APIAddress string `toml:"api_address" yaml:"api_address"`

	// ConfigFile is the daemon's own config file, read to extract the API
	// key. Ignored when APIKey is set explicitly.
	ConfigFile string `toml:"config_file" yaml:"config_file"`
	APIKey     string `toml:"api_key" yaml:"api_key"`

	// KeyWaitTimeout bounds how long to wait for the daemon to write its
	// config file on first startup.
	KeyWaitTimeout Duration `toml:"key_wait_timeout" yaml:"key_wait_timeout"`

	// Retries and RetryDelay tune the API transport retry loop. The default
	// policy is many attempts with a short delay, to ride out a daemon that
	// is still starting up.
	Retries    int      `toml:"retries" yaml:"retries"`
	RetryDelay Duration `toml:"retry_delay" yaml:"retry_delay"`
}

// Device is a declared peer device. The symbolic name used as the map key is
// local to this file and is not sent to the daemon; the ID is the durable
// cross-system identity.
type Device struct {
	Name string `toml:"-" yaml:"-"`

	ID                string         `toml:"id" yaml:"id"`
	Addresses         []string       `toml:"addresses" yaml:"addresses"`
	Introducer        bool           `toml:"introducer" yaml:"introducer"`
	AutoAcceptFolders bool           `toml:"auto_accept_folders" yaml:"auto_accept_folders"`
	Extra             map[string]any `toml:"extra" yaml:"extra"`
}

// Folder is a declared shared folder. Devices entries are either symbolic
// device names (strings) or inline structured references passed through to
// the daemon unchanged.
type Folder struct {
	Name string `toml:"-" yaml:"-"`

	ID          string         `toml:"id" yaml:"id"`
	Label       string         `toml:"label" yaml:"label"`
	Path        string         `toml:"path" yaml:"path"`
	Enable      *bool          `toml:"enable" yaml:"enable"`
	Devices     []any          `toml:"devices" yaml:"devices"`
	MinDiskFree string         `toml:"min_disk_free" yaml:"min_disk_free"`
	Extra       map[string]any `toml:"extra" yaml:"extra"`
}

// Enabled reports whether the folder should be part of the declared list.
func (f *Folder) Enabled() bool {
	return f.Enable == nil || *f.Enable
}

// History configures the local reconciliation run log.
type History struct {
	// Database is the SQLite file path. Empty disables history recording.
	Database string `toml:"database" yaml:"database"`
}

// NotifyTargets configures optional run-outcome notifications.
type NotifyTargets struct {
	Ntfy     *notify.NtfyConfig     `toml:"ntfy" yaml:"ntfy"`
	Pushover *notify.PushoverConfig `toml:"pushover" yaml:"pushover"`
}

// Channels builds the configured notification channels.
func (n NotifyTargets) Channels() []notify.Channel {
	var channels []notify.Channel
	if n.Ntfy != nil {
		channels = append(channels, notify.NewNtfyChannel(*n.Ntfy))
	}
	if n.Pushover != nil {
		channels = append(channels, notify.NewPushoverChannel(*n.Pushover))
	}
	return channels
}

// Duration is a time.Duration that unmarshals from strings like "30s" or
// "10m" in both TOML and YAML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (f *File) applyDefaults() {
	if f.Daemon.APIAddress == "" {
		f.Daemon.APIAddress = DefaultAPIAddress
	}
	if f.Daemon.KeyWaitTimeout == 0 {
		f.Daemon.KeyWaitTimeout = Duration(DefaultKeyWaitTimeout)
	}
	if f.Daemon.Retries == 0 {
		f.Daemon.Retries = DefaultRetries
	}
	if f.Daemon.RetryDelay == 0 {
		f.Daemon.RetryDelay = Duration(DefaultRetryDelay)
	}

	for name, dev := range f.Devices {
		dev.Name = name
		if len(dev.Addresses) == 0 {
			dev.Addresses = []string{"dynamic"}
		}
	}
	for name, folder := range f.Folders {
		folder.Name = name
		if folder.ID == "" {
			folder.ID = name
		}
		if folder.Label == "" {
			folder.Label = name
		}
	}
}

// Validate checks the declared configuration for errors that must be caught
// before a reconciliation run: missing device IDs, unresolvable folder
// device references, duplicate folder IDs, unparsable sizes.
func (f *File) Validate() error {
	if f.Daemon.APIKey == "" && f.Daemon.ConfigFile == "" {
		return fmt.Errorf("daemon: either api_key or config_file is required")
	}

	for _, dev := range sortedDevices(f.Devices) {
		if dev.ID == "" {
			return fmt.Errorf("device %q: missing id", dev.Name)
		}
	}

	seen := make(map[string]string)
	for _, folder := range sortedFolders(f.Folders) {
		if !folder.Enabled() {
			continue
		}
		if folder.Path == "" {
			return fmt.Errorf("folder %q: missing path", folder.Name)
		}
		if prev, ok := seen[folder.ID]; ok {
			return fmt.Errorf("folder %q: id %q already used by folder %q", folder.Name, folder.ID, prev)
		}
		seen[folder.ID] = folder.Name

		if folder.MinDiskFree != "" {
			if _, err := sizeObject(folder.MinDiskFree); err != nil {
				return fmt.Errorf("folder %q: min_disk_free: %w", folder.Name, err)
			}
		}
		for _, ref := range folder.Devices {
			name, ok := ref.(string)
			if !ok {
				continue
			}
			if _, known := f.Devices[name]; !known {
				return fmt.Errorf("folder %q: unknown device %q", folder.Name, name)
			}
		}
	}
	return nil
}
