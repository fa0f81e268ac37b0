// Package reconcile brings a running daemon's live configuration into
// alignment with declared intent.
package reconcile

// Input is the declared intent for one reconciliation run. Device and folder
// entries are already resolved daemon config objects, in declaration order.
type Input struct {
	Settings map[string]any
	Devices  []map[string]any
	Folders  []map[string]any

	OverrideDevices bool
	OverrideFolders bool
}

// Merge computes the configuration to submit: the live configuration with
// declared settings deep-merged over it, and the device/folder lists replaced
// or prepended according to the override flags. The live document is never
// mutated; reconciling the same inputs twice yields the same output.
func Merge(live map[string]any, in Input) map[string]any {
	merged := deepMerge(live, in.Settings)
	merged["devices"] = mergeList(listValue(live["devices"]), in.Devices, in.OverrideDevices)
	merged["folders"] = mergeList(listValue(live["folders"]), in.Folders, in.OverrideFolders)
	return merged
}

// mergeList applies the declared-list policy:
//
//   - nothing declared: the live list is kept as-is, override or not
//   - declared with override: exactly the declared list, declaration order
//   - declared without override: declared entries followed by the live list,
//     with no deduplication by id
func mergeList(live []any, declared []map[string]any, override bool) []any {
	if len(declared) == 0 {
		return copyList(live)
	}

	result := make([]any, 0, len(declared)+len(live))
	for _, entry := range declared {
		result = append(result, copyMap(entry))
	}
	if override {
		return result
	}
	return append(result, copyList(live)...)
}

// deepMerge overlays declared values onto base, field by field. Nested maps
// merge recursively; scalars and arrays are replaced wholesale by the
// declared value. Fields not mentioned in the overlay are preserved.
func deepMerge(base, overlay map[string]any) map[string]any {
	result := copyMap(base)
	for key, overlayVal := range overlay {
		if overlayMap, ok := overlayVal.(map[string]any); ok {
			if baseMap, ok := result[key].(map[string]any); ok {
				result[key] = deepMerge(baseMap, overlayMap)
				continue
			}
		}
		result[key] = copyValue(overlayVal)
	}
	return result
}

func listValue(v any) []any {
	list, _ := v.([]any)
	return list
}

func copyMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = copyValue(v)
	}
	return result
}

func copyList(s []any) []any {
	result := make([]any, len(s))
	for i, v := range s {
		result[i] = copyValue(v)
	}
	return result
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		return copyList(val)
	default:
		return val
	}
}
