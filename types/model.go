package types

import (
	"fmt"

	"github.com/statetree/go-statetree/debug"
	"github.com/statetree/go-statetree/patch"
	"github.com/statetree/go-statetree/snap"
	"github.com/statetree/go-statetree/tree"
)

// Field declares one named model attribute.
type Field struct {
	Name string
	Type Type
}

// Model declares a record type. At most one field may be of type Identifier;
// that field becomes the model's identifying attribute. Declaring a second
// identifier is a programming error and panics.
func Model(name string, fields ...Field) *ModelType {
	m := &ModelType{name: name, fields: fields, index: map[string]Type{}}
	for _, f := range fields {
		if _, dup := m.index[f.Name]; dup {
			panic(fmt.Sprintf("model %s: duplicate field %q", name, f.Name))
		}
		m.index[f.Name] = f.Type
		if st, ok := f.Type.(*scalarType); ok && st.ident {
			if m.identAttr != "" {
				panic(fmt.Sprintf("model %s: identifier fields %q and %q", name, m.identAttr, f.Name))
			}
			m.identAttr = f.Name
		}
	}
	return m
}

// ModelType describes a record with a fixed field set.
type ModelType struct {
	name      string
	fields    []Field
	index     map[string]Type
	identAttr string
}

func (m *ModelType) Describe() string {
	return m.name
}

// IdentifierAttribute returns the declared identifying attribute name, ""
// when the model has none.
func (m *ModelType) IdentifierAttribute() string {
	return m.identAttr
}

// Default returns a snapshot with every field at its own default. A model
// with an identifier has no default: identity cannot be invented.
func (m *ModelType) Default() any {
	if m.identAttr != "" {
		return nil
	}
	res := make(map[string]any, len(m.fields))
	for _, f := range m.fields {
		res[f.Name] = f.Type.Default()
	}
	return res
}

func (m *ModelType) Validate(v any, path string) []*ValidationError {
	obj, ok := snap.IsObject(v)
	if !ok {
		return []*ValidationError{{
			Path:    path,
			Message: fmt.Sprintf("expected %s object, got %v", m.name, describeValue(v)),
		}}
	}
	var errs []*ValidationError
	for _, f := range m.fields {
		sub := joinPath(path, f.Name)
		fv, ok := obj[f.Name]
		if !ok {
			errs = append(errs, &ValidationError{Path: sub, Message: "missing field"})
			continue
		}
		errs = append(errs, f.Type.Validate(fv, sub)...)
	}
	for k := range obj {
		if _, ok := m.index[k]; !ok {
			errs = append(errs, &ValidationError{Path: joinPath(path, k), Message: "unknown field"})
		}
	}
	return errs
}

func (m *ModelType) Instantiate(parent *tree.Node, subpath string, v any) (Instance, error) {
	if v == nil {
		v = m.Default()
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s requires an initial snapshot", ErrMissingIdentifier, m.name)
	}
	if err := validationFailure(m, m.Validate(v, "")); err != nil {
		return nil, err
	}
	obj, _ := snap.IsObject(v)
	mi := &ModelInstance{
		typ:    m,
		node:   parent.NewChild(subpath),
		fields: make(map[string]Instance, len(m.fields)),
	}
	for _, f := range m.fields {
		child, err := f.Type.Instantiate(mi.node, f.Name, obj[f.Name])
		if err != nil {
			mi.node.Dispose()
			return nil, err
		}
		mi.fields[f.Name] = child
	}
	if debug.Lifecycle() {
		debug.Logf("instantiated %s at %q\n", m.name, mi.node.Path())
	}
	return mi, nil
}

func (m *ModelType) Reconcile(current Instance, v any) (Instance, error) {
	if inst, ok := v.(Instance); ok {
		if inst == current {
			return current, nil
		}
		if inst.Type() != m {
			return nil, fmt.Errorf("%w: cannot reconcile %s with instance of %s",
				ErrTypeMismatch, m.name, inst.Type().Describe())
		}
		return inst, nil
	}
	mi, ok := current.(*ModelInstance)
	if !ok || mi.typ != m {
		return m.Instantiate(current.Node().Parent(), current.Node().Subpath(), v)
	}
	if err := validationFailure(m, m.Validate(v, "")); err != nil {
		return nil, err
	}
	obj, _ := snap.IsObject(v)
	if m.identAttr != "" {
		cur, _ := mi.IdentityValue()
		next, _ := identString(obj[m.identAttr])
		if cur != next {
			return nil, fmt.Errorf("%w: %s identifier %q cannot become %q",
				ErrIdentityMisplacement, m.name, cur, next)
		}
	}
	// reuse in place; the caller's own replace emission covers the change
	if err := mi.applySnapshot(obj, false); err != nil {
		return nil, err
	}
	return mi, nil
}

// ModelInstance is one live record.
type ModelInstance struct {
	typ    *ModelType
	node   *tree.Node
	fields map[string]Instance
}

func (mi *ModelInstance) Type() Type {
	return mi.typ
}

func (mi *ModelInstance) Node() *tree.Node {
	return mi.node
}

func (mi *ModelInstance) Snapshot() any {
	mi.node.MustBeAlive()
	res := make(map[string]any, len(mi.fields))
	for name, child := range mi.fields {
		res[name] = child.Snapshot()
	}
	return res
}

func (mi *ModelInstance) Dispose() {
	mi.node.Dispose()
}

// IdentifierAttribute returns the model's declared identifying attribute.
func (mi *ModelInstance) IdentifierAttribute() string {
	return mi.typ.identAttr
}

// IdentityValue returns the current identity in string form.
func (mi *ModelInstance) IdentityValue() (string, bool) {
	if mi.typ.identAttr == "" {
		return "", false
	}
	return identString(mi.fields[mi.typ.identAttr].Snapshot())
}

// Get returns the current plain value of one field.
func (mi *ModelInstance) Get(name string) (any, error) {
	mi.node.MustBeAlive()
	child, ok := mi.fields[name]
	if !ok {
		return nil, invalidf("%s has no field %q", mi.typ.name, name)
	}
	return child.Snapshot(), nil
}

// Set updates one field, emitting a replace patch at the field's path. The
// identifying attribute is immutable after construction.
func (mi *ModelInstance) Set(name string, v any) error {
	return mi.set(name, v, true)
}

func (mi *ModelInstance) set(name string, v any, emit bool) error {
	mi.node.MustBeAlive()
	if mi.node.Protected() {
		return fmt.Errorf("%w: cannot set %s.%s", ErrNotWritable, mi.typ.name, name)
	}
	ft, ok := mi.index(name)
	if !ok {
		return invalidf("%s has no field %q", mi.typ.name, name)
	}
	if name == mi.typ.identAttr {
		cur, _ := mi.IdentityValue()
		next, vok := identString(v)
		if !vok || cur != next {
			return invalidf("%s identifier is immutable", mi.typ.name)
		}
		return nil
	}
	if err := validationFailure(ft, ft.Validate(v, "")); err != nil {
		return err
	}
	old := mi.fields[name]
	oldSnap := old.Snapshot()
	if snap.Equal(oldSnap, v) {
		return nil
	}
	next, err := ft.Reconcile(old, v)
	if err != nil {
		return err
	}
	if next != old {
		old.Dispose()
	}
	mi.fields[name] = next
	if emit {
		mi.node.Emit(patch.Patch{
			Op:       patch.OpReplace,
			Path:     patch.EscapeKey(name),
			Value:    next.Snapshot(),
			OldValue: oldSnap,
		})
	}
	return nil
}

func (mi *ModelInstance) index(name string) (Type, bool) {
	t, ok := mi.typ.index[name]
	return t, ok
}

func (mi *ModelInstance) applySnapshot(obj map[string]any, emit bool) error {
	for _, f := range mi.typ.fields {
		if err := mi.set(f.Name, obj[f.Name], emit); err != nil {
			return err
		}
	}
	return nil
}

// Child returns the live field instance stored under name.
func (mi *ModelInstance) Child(name string) (Instance, bool) {
	mi.node.MustBeAlive()
	child, ok := mi.fields[name]
	return child, ok
}

// ApplySnapshot replaces the whole record from a plain snapshot, field by
// field, emitting patches only for fields that actually change.
func (mi *ModelInstance) ApplySnapshot(v any) error {
	mi.node.MustBeAlive()
	if err := validationFailure(mi.typ, mi.typ.Validate(v, "")); err != nil {
		return err
	}
	obj, _ := snap.IsObject(v)
	return mi.applySnapshot(obj, true)
}

// ApplyPatch replays one foreign patch addressed at a field, routing deeper
// paths into the container field they descend through.
func (mi *ModelInstance) ApplyPatch(p patch.Patch) error {
	mi.node.MustBeAlive()
	key, rest := p.Split()
	if rest != "" {
		child, ok := mi.fields[key]
		if !ok {
			return invalidf("patch path %q: %s has no field %q", p.Path, mi.typ.name, key)
		}
		sub, ok := child.(Container)
		if !ok {
			return invalidf("patch path %q descends below leaf field %q of %s", p.Path, key, mi.typ.name)
		}
		p.Path = rest
		return sub.ApplyPatch(p)
	}
	switch p.Op {
	case patch.OpAdd, patch.OpReplace:
		return mi.Set(key, p.Value)
	case patch.OpRemove:
		return invalidf("cannot remove field %q of %s", key, mi.typ.name)
	}
	return invalidf("unknown patch op %q", p.Op)
}

func joinPath(prefix, key string) string {
	seg := patch.EscapeKey(key)
	if prefix == "" {
		return seg
	}
	return prefix + "/" + seg
}
