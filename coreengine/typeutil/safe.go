// Package typeutil provides safe type assertion helpers for untrusted
// decoded data, chiefly inference-service responses parsed from JSON.
// All helpers use the comma-ok idiom; nothing here panics.
package typeutil

// SafeMapStringAny safely asserts value to map[string]any.
func SafeMapStringAny(value any) (map[string]any, bool) {
	if value == nil {
		return nil, false
	}
	m, ok := value.(map[string]any)
	return m, ok
}

// SafeString safely asserts value to string.
func SafeString(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// SafeStringDefault returns the string if assertion succeeds, otherwise the
// default value.
func SafeStringDefault(value any, defaultVal string) string {
	if s, ok := SafeString(value); ok {
		return s
	}
	return defaultVal
}

// SafeFloat64 safely asserts value to float64. Also handles integer types,
// common when a model emits whole numbers.
func SafeFloat64(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}

// SafeStringSlice safely asserts value to []string. Also handles []any
// containing strings, the usual shape after JSON unmarshaling.
func SafeStringSlice(value any) ([]string, bool) {
	if value == nil {
		return nil, false
	}
	if s, ok := value.([]string); ok {
		return s, true
	}
	if anySlice, ok := value.([]any); ok {
		result := make([]string, 0, len(anySlice))
		for _, item := range anySlice {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			result = append(result, str)
		}
		return result, true
	}
	return nil, false
}

// SafeFloat64Map coerces a decoded JSON object into a numeric parameter map.
// Non-numeric values are skipped rather than failing the whole map.
func SafeFloat64Map(value any) (map[string]float64, bool) {
	m, ok := SafeMapStringAny(value)
	if !ok {
		return nil, false
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if f, ok := SafeFloat64(v); ok {
			out[k] = f
		}
	}
	return out, true
}
