package patch

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
)

// rfc6902Op is the interop form of a patch: oldValue is informational and is
// stripped before handing the ops to a standard applier.
type rfc6902Op struct {
	Op    Op              `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Apply replays patches against a plain snapshot the way an independent
// replica would: encode, apply RFC 6902 ops, decode. The input snapshot is
// not modified.
func Apply(doc any, patches []Patch) (any, error) {
	d, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	ops := make([]rfc6902Op, 0, len(patches))
	for _, p := range patches {
		op := rfc6902Op{Op: p.Op, Path: "/" + p.Path}
		if p.Op != OpRemove {
			vd, err := json.Marshal(p.Value)
			if err != nil {
				return nil, err
			}
			op.Value = vd
		}
		ops = append(ops, op)
	}
	opsData, err := json.Marshal(ops)
	if err != nil {
		return nil, err
	}
	decoded, err := jsonpatch.DecodePatch(opsData)
	if err != nil {
		return nil, err
	}
	out, err := decoded.Apply(d)
	if err != nil {
		return nil, fmt.Errorf("applying %d patches: %w", len(patches), err)
	}
	var res any
	if err := json.Unmarshal(out, &res); err != nil {
		return nil, err
	}
	return res, nil
}
