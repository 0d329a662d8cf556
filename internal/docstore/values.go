package docstore

import (
	"encoding/json"
	"reflect"
	"strings"
)

// normalize converts arbitrary Go values into the JSON value space
// (map[string]any, []any, string, float64, bool, nil) and deep-copies them.
func normalize(v any) any {
	switch v.(type) {
	case nil, string, float64, bool:
		return v
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := normalize(m).(map[string]any)
	return out
}

// lookup resolves a dotted field path.
func lookup(data map[string]any, id, field string) (any, bool) {
	if field == FieldID {
		return id, true
	}
	var current any = data
	for _, part := range strings.Split(field, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// compare orders two values of the same JSON kind. ok is false when the
// kinds differ and the values are not comparable.
func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func matches(id string, data map[string]any, f Filter) bool {
	value, ok := lookup(data, id, f.Field)
	if !ok {
		return false
	}
	want := normalize(f.Value)
	switch f.Op {
	case OpEq:
		return equal(value, want)
	case OpGte:
		c, ok := compare(value, want)
		return ok && c >= 0
	case OpLte:
		c, ok := compare(value, want)
		return ok && c <= 0
	case OpIn:
		candidates, _ := want.([]any)
		for _, candidate := range candidates {
			if equal(value, candidate) {
				return true
			}
		}
		return false
	case OpArrayContains:
		items, ok := value.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if equal(item, want) {
				return true
			}
		}
		return false
	}
	return false
}

// MergeFields deep-merges src into dst. Nested maps merge key by key; every
// other value replaces the destination value.
func MergeFields(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for key, value := range src {
		nested, isMap := value.(map[string]any)
		existing, hasMap := dst[key].(map[string]any)
		if isMap && hasMap {
			dst[key] = MergeFields(existing, nested)
			continue
		}
		dst[key] = value
	}
	return dst
}

// project keeps only the selected top-level fields.
func project(data map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return data
	}
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		if value, ok := data[field]; ok {
			out[field] = value
		}
	}
	return out
}
