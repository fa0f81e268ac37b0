package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const tomlConfig = `
override_devices = true
override_folders = true

[daemon]
config_file = "/var/lib/syncd/config.xml"
key_wait_timeout = "30s"

[settings.options]
maxSendKbps = 500

[devices.bigbox]
id = "ABC123"
addresses = ["tcp://1.2.3.4:51820"]

[devices.laptop]
id = "DEF456"
introducer = true

[folders.docs]
path = "/srv/docs"
devices = ["bigbox"]
`

const yamlConfig = `
daemon:
  config_file: /var/lib/syncd/config.xml
  key_wait_timeout: 30s

override_devices: true
override_folders: true

settings:
  options:
    maxSendKbps: 500

devices:
  bigbox:
    id: ABC123
    addresses: ["tcp://1.2.3.4:51820"]
  laptop:
    id: DEF456
    introducer: true

folders:
  docs:
    path: /srv/docs
    devices: [bigbox]
`

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "config.toml", tomlConfig},
		{"yaml", "config.yaml", yamlConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			if cfg.Daemon.APIAddress != DefaultAPIAddress {
				t.Errorf("api address = %q, want default %q", cfg.Daemon.APIAddress, DefaultAPIAddress)
			}
			if cfg.Daemon.KeyWaitTimeout.Std() != 30*time.Second {
				t.Errorf("key wait timeout = %v, want 30s", cfg.Daemon.KeyWaitTimeout)
			}
			if cfg.Daemon.Retries != DefaultRetries {
				t.Errorf("retries = %d, want default %d", cfg.Daemon.Retries, DefaultRetries)
			}
			if !cfg.OverrideDevices || !cfg.OverrideFolders {
				t.Error("override flags not parsed")
			}

			options, ok := cfg.Settings["options"].(map[string]any)
			if !ok {
				t.Fatalf("settings.options = %T, want map", cfg.Settings["options"])
			}
			if _, ok := options["maxSendKbps"]; !ok {
				t.Error("settings.options.maxSendKbps missing")
			}

			laptop := cfg.Devices["laptop"]
			if laptop == nil || !laptop.Introducer {
				t.Errorf("laptop device = %+v, want introducer", laptop)
			}
			if !reflect.DeepEqual(laptop.Addresses, []string{"dynamic"}) {
				t.Errorf("laptop addresses = %v, want default [dynamic]", laptop.Addresses)
			}
		})
	}
}

func TestDeviceListOrderAndShape(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.toml", tomlConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	devices := cfg.DeviceList()
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}

	// Sorted by symbolic name: bigbox, laptop. The name itself is not
	// emitted.
	if devices[0]["deviceID"] != "ABC123" || devices[1]["deviceID"] != "DEF456" {
		t.Errorf("device order = %v, %v", devices[0]["deviceID"], devices[1]["deviceID"])
	}
	for _, dev := range devices {
		if _, ok := dev["name"]; ok {
			t.Errorf("device %v emits the symbolic name", dev["deviceID"])
		}
	}
	if !reflect.DeepEqual(devices[0]["addresses"], []any{"tcp://1.2.3.4:51820"}) {
		t.Errorf("bigbox addresses = %v", devices[0]["addresses"])
	}
	if devices[1]["introducer"] != true {
		t.Error("laptop introducer flag lost")
	}
}

func TestFolderListResolvesDeviceNames(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.toml", tomlConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	folders := cfg.FolderList()
	if len(folders) != 1 {
		t.Fatalf("got %d folders, want 1", len(folders))
	}

	docs := folders[0]
	if docs["id"] != "docs" || docs["label"] != "docs" {
		t.Errorf("folder id/label = %v/%v, want docs/docs (defaulted from name)", docs["id"], docs["label"])
	}

	want := []any{map[string]any{"deviceId": "ABC123"}}
	if !reflect.DeepEqual(docs["devices"], want) {
		t.Errorf("folder devices = %v, want %v", docs["devices"], want)
	}
}

func TestFolderListPassesStructuredRefsThrough(t *testing.T) {
	cfg := &File{
		Daemon:  Daemon{APIKey: "k"},
		Devices: map[string]*Device{"bigbox": {ID: "ABC123"}},
		Folders: map[string]*Folder{
			"docs": {
				Path: "/srv/docs",
				Devices: []any{
					"bigbox",
					map[string]any{"deviceId": "XYZ789", "introducedBy": "ABC123"},
				},
			},
		},
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	refs := cfg.FolderList()[0]["devices"].([]any)
	want := []any{
		map[string]any{"deviceId": "ABC123"},
		map[string]any{"deviceId": "XYZ789", "introducedBy": "ABC123"},
	}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("folder devices = %v, want %v", refs, want)
	}
}

func TestFolderListSkipsDisabled(t *testing.T) {
	disabled := false
	cfg := &File{
		Daemon: Daemon{APIKey: "k"},
		Folders: map[string]*Folder{
			"docs":  {Path: "/srv/docs"},
			"music": {Path: "/srv/music", Enable: &disabled},
		},
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	folders := cfg.FolderList()
	if len(folders) != 1 || folders[0]["id"] != "docs" {
		t.Errorf("folders = %v, want only docs", folders)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*File)
		wantErr string
	}{
		{
			name:    "no credential source",
			mutate:  func(f *File) { f.Daemon = Daemon{} },
			wantErr: "api_key or config_file",
		},
		{
			name:    "device without id",
			mutate:  func(f *File) { f.Devices["bigbox"].ID = "" },
			wantErr: "missing id",
		},
		{
			name:    "folder without path",
			mutate:  func(f *File) { f.Folders["docs"].Path = "" },
			wantErr: "missing path",
		},
		{
			name:    "unknown device reference",
			mutate:  func(f *File) { f.Folders["docs"].Devices = []any{"nas"} },
			wantErr: `unknown device "nas"`,
		},
		{
			name: "duplicate folder id",
			mutate: func(f *File) {
				f.Folders["mirror"] = &Folder{Name: "mirror", ID: "docs", Label: "mirror", Path: "/srv/mirror"}
			},
			wantErr: "already used",
		},
		{
			name:    "bad min_disk_free",
			mutate:  func(f *File) { f.Folders["docs"].MinDiskFree = "lots" },
			wantErr: "min_disk_free",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &File{
				Daemon:  Daemon{APIKey: "k"},
				Devices: map[string]*Device{"bigbox": {ID: "ABC123"}},
				Folders: map[string]*Folder{"docs": {Path: "/srv/docs", Devices: []any{"bigbox"}}},
			}
			cfg.applyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := Load(writeConfig(t, "config.json", "{}"))
	if err == nil || !strings.Contains(err.Error(), "unsupported config format") {
		t.Errorf("error = %v, want unsupported format", err)
	}
}

func TestSizeObject(t *testing.T) {
	tests := []struct {
		in    string
		value float64
		unit  string
	}{
		{"5%", 5, "%"},
		{"2.5 %", 2.5, "%"},
		{"10GB", 10, "GB"},
		{"512kb", 512, "kB"},
		{"1536MB", 1.5, "GB"},
		{"0", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			size, err := sizeObject(tt.in)
			if err != nil {
				t.Fatalf("sizeObject(%q) failed: %v", tt.in, err)
			}
			if size["value"] != tt.value || size["unit"] != tt.unit {
				t.Errorf("sizeObject(%q) = %v, want {%v %s}", tt.in, size, tt.value, tt.unit)
			}
		})
	}

	if _, err := sizeObject("many bytes"); err == nil {
		t.Error("expected error for unparsable size")
	}
}
