package types

import (
	"fmt"
	"maps"
	"slices"

	"github.com/statetree/go-statetree/debug"
	"github.com/statetree/go-statetree/snap"
	"github.com/statetree/go-statetree/tree"
)

// MapOf declares a keyed collection type whose children all satisfy elem.
// Whether the collection stores its children under their own identity is not
// declared up front: the type decides once, on the first child it ever sees,
// and the decision then binds every instance of the declared type.
func MapOf(elem Type) *MapType {
	return &MapType{elem: elem}
}

type identifierMode int8

const (
	modeUnknown identifierMode = iota
	modeIdentified
	modeUnidentified
)

// MapType describes a string-keyed collection of elem values. The mode and
// identifier attribute fields are lazily and permanently decided; see
// identity.go.
type MapType struct {
	elem      Type
	mode      identifierMode
	identAttr string
}

func (t *MapType) Describe() string {
	return fmt.Sprintf("map<string, %s>", t.elem.Describe())
}

// Elem returns the declared element type.
func (t *MapType) Elem() Type {
	return t.elem
}

func (t *MapType) Default() any {
	return map[string]any{}
}

func (t *MapType) Validate(v any, path string) []*ValidationError {
	obj, ok := snap.IsObject(v)
	if !ok {
		return []*ValidationError{{
			Path:    path,
			Message: fmt.Sprintf("expected a plain object, got %v", describeValue(v)),
		}}
	}
	var errs []*ValidationError
	for _, k := range slices.Sorted(maps.Keys(obj)) {
		errs = append(errs, t.elem.Validate(obj[k], joinPath(path, k))...)
	}
	return errs
}

func (t *MapType) Instantiate(parent *tree.Node, subpath string, v any) (Instance, error) {
	if v == nil {
		v = t.Default()
	}
	if err := validationFailure(t, t.Validate(v, "")); err != nil {
		return nil, err
	}
	obj, _ := snap.IsObject(v)
	m := &MapInstance{
		typ:     t,
		node:    parent.NewChild(subpath),
		entries: map[string]Instance{},
	}
	// initial population is part of construction, nothing observes it
	for _, k := range slices.Sorted(maps.Keys(obj)) {
		if err := m.propose(edit{kind: editInsert, key: k, raw: obj[k]}, false); err != nil {
			m.node.Dispose()
			return nil, err
		}
	}
	if debug.Lifecycle() {
		debug.Logf("instantiated %s at %q with %d entries\n", t.Describe(), m.node.Path(), m.Len())
	}
	return m, nil
}

func (t *MapType) Reconcile(current Instance, v any) (Instance, error) {
	if inst, ok := v.(Instance); ok {
		if inst == current {
			return current, nil
		}
		if inst.Type() != t {
			return nil, fmt.Errorf("%w: cannot reconcile %s with instance of %s",
				ErrTypeMismatch, t.Describe(), inst.Type().Describe())
		}
		return inst, nil
	}
	if mi, ok := current.(*MapInstance); ok && mi.typ == t {
		if err := mi.ApplySnapshot(v); err != nil {
			return nil, err
		}
		return mi, nil
	}
	return t.Instantiate(current.Node().Parent(), current.Node().Subpath(), v)
}

// MapInstance is one live keyed collection. All mutation goes through the
// interceptor in intercept.go; nothing else writes entries.
type MapInstance struct {
	typ     *MapType
	node    *tree.Node
	entries map[string]Instance
}

func (m *MapInstance) Type() Type {
	return m.typ
}

func (m *MapInstance) Node() *tree.Node {
	return m.node
}

// Get returns the live child stored under key.
func (m *MapInstance) Get(key string) (Instance, bool) {
	m.node.MustBeAlive()
	child, ok := m.entries[key]
	return child, ok
}

// Child is Get under the Container protocol.
func (m *MapInstance) Child(key string) (Instance, bool) {
	return m.Get(key)
}

// Has reports whether key is present.
func (m *MapInstance) Has(key string) bool {
	m.node.MustBeAlive()
	_, ok := m.entries[key]
	return ok
}

// Len returns the number of entries.
func (m *MapInstance) Len() int {
	m.node.MustBeAlive()
	return len(m.entries)
}

// Keys returns the present keys in sorted order. Key order carries no
// semantic meaning; sorting just makes iteration reproducible.
func (m *MapInstance) Keys() []string {
	m.node.MustBeAlive()
	return slices.Sorted(maps.Keys(m.entries))
}

// Set inserts or updates the entry at key with a raw value: either a plain
// snapshot or an already-live instance of the element type.
func (m *MapInstance) Set(key string, raw any) error {
	m.node.MustBeAlive()
	kind := editInsert
	if _, ok := m.entries[key]; ok {
		kind = editUpdate
	}
	return m.propose(edit{kind: kind, key: key, raw: raw}, true)
}

// Delete removes the entry at key, disposing the child. It reports whether
// an entry was present.
func (m *MapInstance) Delete(key string) (bool, error) {
	m.node.MustBeAlive()
	if _, ok := m.entries[key]; !ok {
		if m.node.Protected() {
			return false, fmt.Errorf("%w: cannot delete %q", ErrNotWritable, key)
		}
		return false, nil
	}
	if err := m.propose(edit{kind: editDelete, key: key}, true); err != nil {
		return false, err
	}
	return true, nil
}

// Put inserts a structured value under the key inferred from its own
// identifying attribute. The value may be a plain object or an already-live
// instance; scalars and empty values are rejected.
//
// When the collection's mode is still undecided, Put materializes the value
// first in order to discover its identity, and only then resolves the key;
// later inserts go key-first through the already-resolved mode.
func (m *MapInstance) Put(raw any) (Instance, error) {
	m.node.MustBeAlive()
	if raw == nil {
		return nil, invalidf("put of empty value")
	}
	if inst, ok := raw.(Identifiable); ok {
		key, ok := inst.IdentityValue()
		if !ok {
			return nil, fmt.Errorf("%w: put value has no identifier", ErrMissingIdentifier)
		}
		if err := m.Set(key, inst); err != nil {
			return nil, err
		}
		return m.entries[key], nil
	}
	if _, ok := snap.IsObject(raw); !ok {
		return nil, invalidf("put of non-structured value %v", describeValue(raw))
	}
	switch m.typ.mode {
	case modeUnidentified:
		return nil, fmt.Errorf("%w: collection stores unidentified values, use Set", ErrMissingIdentifier)
	case modeUnknown:
		// eagerly materialize to learn the identity, then insert under it
		child, err := m.materialize("", raw)
		if err != nil {
			return nil, err
		}
		idf, ok := child.(Identifiable)
		if !ok || idf.IdentifierAttribute() == "" {
			child.Dispose()
			return nil, fmt.Errorf("%w: put value has no identifier", ErrMissingIdentifier)
		}
		key, ok := idf.IdentityValue()
		if !ok {
			child.Dispose()
			return nil, fmt.Errorf("%w: put value has no identifier", ErrMissingIdentifier)
		}
		child.Node().Rebind(key)
		if err := m.Set(key, child); err != nil {
			child.Dispose()
			return nil, err
		}
		return m.entries[key], nil
	}
	obj, _ := snap.IsObject(raw)
	key, ok := identString(obj[m.typ.identAttr])
	if !ok {
		return nil, fmt.Errorf("%w: put value has no %q", ErrMissingIdentifier, m.typ.identAttr)
	}
	if err := m.Set(key, raw); err != nil {
		return nil, err
	}
	return m.entries[key], nil
}

func (m *MapInstance) Dispose() {
	m.node.Dispose()
	m.entries = nil
}
