package snap

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MarshalJSON encodes a snapshot as JSON.
func MarshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// UnmarshalJSON decodes JSON into snapshot form.
func UnmarshalJSON(d []byte) (any, error) {
	var v any
	if err := json.Unmarshal(d, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// MarshalYAML encodes a snapshot as YAML.
func MarshalYAML(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// UnmarshalYAML decodes YAML into snapshot form. Mappings with non-string
// keys are rejected, snapshots are string keyed by definition.
func UnmarshalYAML(d []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(d, &v); err != nil {
		return nil, err
	}
	return normalize(v)
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		for k, xv := range x {
			nv, err := normalize(xv)
			if err != nil {
				return nil, err
			}
			x[k] = nv
		}
		return x, nil
	case map[any]any:
		res := make(map[string]any, len(x))
		for k, xv := range x {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v in mapping", k)
			}
			nv, err := normalize(xv)
			if err != nil {
				return nil, err
			}
			res[ks] = nv
		}
		return res, nil
	case []any:
		for i, xv := range x {
			nv, err := normalize(xv)
			if err != nil {
				return nil, err
			}
			x[i] = nv
		}
		return x, nil
	case uint64:
		return int64(x), nil
	}
	return v, nil
}
