// Package params decodes loosely-typed parameter maps, as arriving from JSON
// request bodies or YAML files, into the concrete values strategy and
// indicator constructors expect.
package params

import "fmt"

// Int reads an integer parameter, falling back to def when the key is
// absent. JSON numbers decode as float64; whole-valued floats are accepted.
func Int(m map[string]any, key string, def int) (int, error) {
	v, ok := m[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("parameter %q: %v is not an integer", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected integer, got %T", key, v)
	}
}

// Float reads a floating-point parameter, falling back to def when the key
// is absent.
func Float(m map[string]any, key string, def float64) (float64, error) {
	v, ok := m[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("parameter %q: expected number, got %T", key, v)
	}
}

// Unknown returns an error naming the first key in m that is not in allowed,
// or nil when every key is recognised.
func Unknown(m map[string]any, allowed ...string) error {
	for key := range m {
		found := false
		for _, a := range allowed {
			if key == a {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown parameter %q", key)
		}
	}
	return nil
}
