package schema

import (
	"encoding/json"
	"math"
)

// AsNumber converts a response value to a number. Strings are not numbers.
func AsNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return AsNumber(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return AsNumber(f)
	default:
		return 0, false
	}
}

// AsString returns the value when it is a string.
func AsString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsStringSlice returns the string entries of a checkbox value. Non-string
// entries are dropped; ok is false when v is not a list at all.
func AsStringSlice(v interface{}) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// int64Price converts a decoded JSON price into minor units. Fractional,
// negative and non-numeric values are rejected.
func int64Price(v interface{}) (int64, bool) {
	if v == nil {
		return 0, true
	}
	f, ok := AsNumber(v)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
