package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads, parses, defaults, and validates a declared configuration file.
// The format is chosen by extension: .toml, .yaml, or .yml.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var f File
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .toml, .yaml, or .yml)", ext)
	}

	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// DeviceList returns the declared devices as daemon config objects, ordered
// by symbolic name so repeated runs emit identical output. The symbolic name
// itself is not emitted; the stable device ID identifies the entry.
func (f *File) DeviceList() []map[string]any {
	devices := make([]map[string]any, 0, len(f.Devices))
	for _, dev := range sortedDevices(f.Devices) {
		entry := map[string]any{
			"deviceID":          dev.ID,
			"addresses":         toAnySlice(dev.Addresses),
			"introducer":        dev.Introducer,
			"autoAcceptFolders": dev.AutoAcceptFolders,
		}
		for k, v := range dev.Extra {
			entry[k] = v
		}
		devices = append(devices, entry)
	}
	return devices
}

// FolderList returns the enabled declared folders as daemon config objects,
// ordered by symbolic name. Device references given as symbolic names are
// resolved to {"deviceId": <id>}; structured references pass through
// unchanged.
func (f *File) FolderList() []map[string]any {
	folders := make([]map[string]any, 0, len(f.Folders))
	for _, folder := range sortedFolders(f.Folders) {
		if !folder.Enabled() {
			continue
		}
		entry := map[string]any{
			"id":    folder.ID,
			"label": folder.Label,
			"path":  folder.Path,
		}
		if len(folder.Devices) > 0 {
			refs := make([]any, 0, len(folder.Devices))
			for _, ref := range folder.Devices {
				if name, ok := ref.(string); ok {
					refs = append(refs, map[string]any{"deviceId": f.Devices[name].ID})
					continue
				}
				refs = append(refs, ref)
			}
			entry["devices"] = refs
		}
		if folder.MinDiskFree != "" {
			// Validated at load time, cannot fail here.
			size, _ := sizeObject(folder.MinDiskFree)
			entry["minDiskFree"] = size
		}
		for k, v := range folder.Extra {
			entry[k] = v
		}
		folders = append(folders, entry)
	}
	return folders
}

func sortedDevices(devices map[string]*Device) []*Device {
	out := make([]*Device, 0, len(devices))
	for _, dev := range devices {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedFolders(folders map[string]*Folder) []*Folder {
	out := make([]*Folder, 0, len(folders))
	for _, folder := range folders {
		out = append(out, folder)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// sizeObject converts a human-readable size ("10GB", "512 mb", "5%") into
// the daemon's {value, unit} form.
func sizeObject(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "%") {
		value, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid percentage %q", s)
		}
		return map[string]any{"value": value, "unit": "%"}, nil
	}

	bytes, err := units.RAMInBytes(s)
	if err != nil {
		return nil, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if bytes == 0 {
		return map[string]any{"value": float64(0), "unit": ""}, nil
	}

	scale := []struct {
		n    int64
		unit string
	}{
		{units.TiB, "TB"},
		{units.GiB, "GB"},
		{units.MiB, "MB"},
		{units.KiB, "kB"},
	}
	for _, u := range scale {
		if bytes >= u.n {
			return map[string]any{"value": float64(bytes) / float64(u.n), "unit": u.unit}, nil
		}
	}
	return map[string]any{"value": float64(bytes) / float64(units.KiB), "unit": "kB"}, nil
}
