package reconcile

import (
	"reflect"
	"testing"
)

func TestMergeSettingsFieldLevel(t *testing.T) {
	live := map[string]any{
		"options": map[string]any{
			"maxSendKbps": 0,
			"maxRecvKbps": 10,
		},
		"gui": map[string]any{
			"theme": "dark",
		},
	}
	in := Input{
		Settings: map[string]any{
			"options": map[string]any{
				"maxSendKbps": 500,
			},
		},
	}

	merged := Merge(live, in)

	options := merged["options"].(map[string]any)
	if options["maxSendKbps"] != 500 {
		t.Errorf("maxSendKbps = %v, want 500", options["maxSendKbps"])
	}
	if options["maxRecvKbps"] != 10 {
		t.Errorf("maxRecvKbps = %v, want 10 (preserved from live)", options["maxRecvKbps"])
	}
	gui := merged["gui"].(map[string]any)
	if gui["theme"] != "dark" {
		t.Errorf("gui.theme = %v, want dark (preserved from live)", gui["theme"])
	}
}

func TestMergeBandwidthScenario(t *testing.T) {
	live := map[string]any{
		"options": map[string]any{"maxSendKbps": 0},
		"devices": []any{},
		"folders": []any{},
	}
	in := Input{
		Settings:        map[string]any{"options": map[string]any{"maxSendKbps": 500}},
		OverrideDevices: true,
		OverrideFolders: true,
	}

	merged := Merge(live, in)

	if got := merged["options"].(map[string]any)["maxSendKbps"]; got != 500 {
		t.Errorf("options.maxSendKbps = %v, want 500", got)
	}
	if got := merged["devices"].([]any); len(got) != 0 {
		t.Errorf("devices = %v, want empty", got)
	}
	if got := merged["folders"].([]any); len(got) != 0 {
		t.Errorf("folders = %v, want empty", got)
	}
}

func TestMergeDeviceListPolicy(t *testing.T) {
	liveDevices := []any{
		map[string]any{"deviceID": "LIVE1"},
		map[string]any{"deviceID": "ABC123"},
	}
	declared := []map[string]any{
		{"deviceID": "ABC123", "introducer": true},
		{"deviceID": "DEF456"},
	}

	tests := []struct {
		name     string
		declared []map[string]any
		override bool
		want     []any
	}{
		{
			name:     "override replaces the live list",
			declared: declared,
			override: true,
			want: []any{
				map[string]any{"deviceID": "ABC123", "introducer": true},
				map[string]any{"deviceID": "DEF456"},
			},
		},
		{
			name:     "no override prepends declared without dedup",
			declared: declared,
			override: false,
			want: []any{
				map[string]any{"deviceID": "ABC123", "introducer": true},
				map[string]any{"deviceID": "DEF456"},
				map[string]any{"deviceID": "LIVE1"},
				map[string]any{"deviceID": "ABC123"},
			},
		},
		{
			name:     "empty declared keeps live with override",
			declared: nil,
			override: true,
			want:     liveDevices,
		},
		{
			name:     "empty declared keeps live without override",
			declared: nil,
			override: false,
			want:     liveDevices,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := map[string]any{"devices": liveDevices, "folders": []any{}}
			merged := Merge(live, Input{
				Devices:         tt.declared,
				OverrideDevices: tt.override,
			})
			if got := merged["devices"]; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("devices = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeFolderListPolicy(t *testing.T) {
	liveFolders := []any{
		map[string]any{"id": "music", "path": "/srv/music"},
	}
	declared := []map[string]any{
		{"id": "docs", "path": "/srv/docs", "devices": []any{map[string]any{"deviceId": "ABC123"}}},
	}

	live := map[string]any{"devices": []any{}, "folders": liveFolders}

	replaced := Merge(live, Input{Folders: declared, OverrideFolders: true})
	if got := replaced["folders"].([]any); len(got) != 1 || got[0].(map[string]any)["id"] != "docs" {
		t.Errorf("override folders = %v, want exactly the declared folder", got)
	}

	appended := Merge(live, Input{Folders: declared, OverrideFolders: false})
	got := appended["folders"].([]any)
	if len(got) != 2 {
		t.Fatalf("appended folders = %v, want declared followed by live", got)
	}
	if got[0].(map[string]any)["id"] != "docs" || got[1].(map[string]any)["id"] != "music" {
		t.Errorf("appended folder order = %v, want [docs music]", got)
	}
}

func TestMergeDoesNotMutateLive(t *testing.T) {
	live := map[string]any{
		"options": map[string]any{"maxSendKbps": 0},
		"devices": []any{map[string]any{"deviceID": "LIVE1"}},
		"folders": []any{},
	}
	snapshot := copyMap(live)

	Merge(live, Input{
		Settings: map[string]any{"options": map[string]any{"maxSendKbps": 500}},
		Devices:  []map[string]any{{"deviceID": "NEW1"}},
	})

	if !reflect.DeepEqual(live, snapshot) {
		t.Errorf("live config mutated by merge: %v", live)
	}
}

func TestMergeIdempotent(t *testing.T) {
	live := map[string]any{
		"options": map[string]any{"urAccepted": -1, "maxSendKbps": 100},
		"devices": []any{map[string]any{"deviceID": "LIVE1"}},
		"folders": []any{map[string]any{"id": "music"}},
	}
	in := Input{
		Settings:        map[string]any{"options": map[string]any{"maxSendKbps": 500}},
		Devices:         []map[string]any{{"deviceID": "ABC123"}},
		Folders:         []map[string]any{{"id": "docs"}},
		OverrideDevices: true,
		OverrideFolders: true,
	}

	first := Merge(live, in)
	second := Merge(live, in)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same inputs produced different merges:\n%v\n%v", first, second)
	}

	// With overrides, applying the merge output as the new live state is a
	// fixed point.
	again := Merge(first, in)
	if !reflect.DeepEqual(first, again) {
		t.Errorf("merge is not a fixed point under overrides:\n%v\n%v", first, again)
	}
}
