package history

import (
	"fmt"
	"strings"
)

// normalizeValues flattens the loosely typed values payload into a list
// of mapping records. A single mapping becomes a one-element list,
// non-mapping elements of a list are dropped, and any other shape
// yields nil.
func normalizeValues(values any) []map[string]any {
	switch v := values.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		records := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				records = append(records, m)
			}
		}
		return records
	default:
		return nil
	}
}

// firstPresent returns the value of the first key that exists in the
// mapping, regardless of that value's type.
func firstPresent(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// flattenContent stringifies the content field of a raw message
// candidate: lists are joined with spaces, mappings and scalars are
// rendered with their default formatting.
func flattenContent(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			s := fmt.Sprintf("%v", item)
			if s == "" {
				continue
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
