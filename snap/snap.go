package snap

// IsObject reports whether v is a plain string-keyed object and returns it.
func IsObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// Clone makes a structural copy of a snapshot. Containers are copied
// recursively, leaves are shared (they are immutable plain values).
func Clone(v any) any {
	switch x := v.(type) {
	case map[string]any:
		res := make(map[string]any, len(x))
		for k, xv := range x {
			res[k] = Clone(xv)
		}
		return res
	case []any:
		res := make([]any, len(x))
		for i, xv := range x {
			res[i] = Clone(xv)
		}
		return res
	default:
		return v
	}
}

// Equal compares two snapshots structurally. Numeric leaves compare by value
// regardless of Go representation, so an int64 5 equals a float64 5 as it
// would after a JSON round trip.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ae := range av {
			be, ok := bv[k]
			if !ok || !Equal(ae, be) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}
