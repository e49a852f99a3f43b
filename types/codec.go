package types

import (
	"maps"
	"slices"

	"github.com/statetree/go-statetree/debug"
	"github.com/statetree/go-statetree/patch"
	"github.com/statetree/go-statetree/snap"
)

// Snapshot exports the collection as a plain object: every child's own
// current snapshot under its stored key.
func (m *MapInstance) Snapshot() any {
	m.node.MustBeAlive()
	res := make(map[string]any, len(m.entries))
	for k, child := range m.entries {
		res[k] = child.Snapshot()
	}
	return res
}

// ApplySnapshot replaces the collection's content from an incoming plain
// object. The whole snapshot is type checked up front and rejected
// atomically when invalid. Application is a set-reconciling diff, not
// clear-then-repopulate: keys present on both sides keep their identity and,
// where the element type can reconcile, their live child instance.
func (m *MapInstance) ApplySnapshot(v any) error {
	m.node.MustBeAlive()
	if err := validationFailure(m.typ, m.typ.Validate(v, "")); err != nil {
		return err
	}
	obj, _ := snap.IsObject(v)
	if debug.Snapshot() {
		debug.Logf("%s applying snapshot with %d keys over %d entries\n",
			m.typ.Describe(), len(obj), len(m.entries))
	}
	seen := make(map[string]bool, len(m.entries))
	for k := range m.entries {
		seen[k] = false
	}
	for _, k := range slices.Sorted(maps.Keys(obj)) {
		kind := editInsert
		if _, ok := m.entries[k]; ok {
			kind = editUpdate
		}
		if err := m.propose(edit{kind: kind, key: k, raw: obj[k]}, true); err != nil {
			return err
		}
		seen[k] = true
	}
	for _, k := range slices.Sorted(maps.Keys(seen)) {
		if seen[k] {
			continue
		}
		if err := m.propose(edit{kind: editDelete, key: k}, true); err != nil {
			return err
		}
	}
	return nil
}

// ApplyPatch replays one foreign patch. A patch addressed at this
// collection goes through the interceptor like any local edit; a deeper
// path is routed into the child container it descends through.
func (m *MapInstance) ApplyPatch(p patch.Patch) error {
	m.node.MustBeAlive()
	key, rest := p.Split()
	if rest != "" {
		child, ok := m.entries[key]
		if !ok {
			return invalidf("patch path %q: no entry at %q", p.Path, key)
		}
		sub, ok := child.(Container)
		if !ok {
			return invalidf("patch path %q descends below leaf %q", p.Path, key)
		}
		p.Path = rest
		return sub.ApplyPatch(p)
	}
	switch p.Op {
	case patch.OpAdd, patch.OpReplace:
		return m.Set(key, p.Value)
	case patch.OpRemove:
		_, err := m.Delete(key)
		return err
	}
	return invalidf("unknown patch op %q", p.Op)
}
