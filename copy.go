// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

// cloneConfigMap makes a deep copy of a raw config map.
// Only the shapes produced by the format decoders are walked
// (nested maps and slices), anything else is copied by value.
// The result is never nil.
func cloneConfigMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = cloneValue(value)
	}

	return dst
}

func cloneValue(value any) any {
	switch val := value.(type) {
	case map[string]any:
		return cloneConfigMap(val)
	case map[any]any: // yaml
		dst := make(map[any]any, len(val))
		for k, v := range val {
			dst[k] = cloneValue(v)
		}

		return dst
	case []any:
		dst := make([]any, len(val))
		for i, v := range val {
			dst[i] = cloneValue(v)
		}

		return dst
	case []string:
		return append([]string(nil), val...)
	case []int:
		return append([]int(nil), val...)
	}

	return value
}

// cloneSnapshot copies a resolved snapshot.
// A nil snapshot is returned as an empty map, callers never get nil.
func cloneSnapshot(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for key, value := range src {
		dst[key] = value
	}

	return dst
}
