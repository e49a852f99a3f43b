package types

import (
	"fmt"

	"github.com/statetree/go-statetree/debug"
)

// materialize turns a raw insert value into a live child attached under the
// collection at key. Raw values are either plain snapshots, type-checked and
// instantiated through the element type, or already-live instances, which
// are adopted into place.
func (m *MapInstance) materialize(key string, raw any) (Instance, error) {
	if inst, ok := raw.(Instance); ok {
		return m.adopt(key, inst)
	}
	if err := validationFailure(m.typ.elem, m.typ.elem.Validate(raw, "")); err != nil {
		return nil, err
	}
	child, err := m.typ.elem.Instantiate(m.node, key, raw)
	if err != nil {
		return nil, err
	}
	if debug.Lifecycle() {
		debug.Logf("materialized %s at key %q\n", child.Type().Describe(), key)
	}
	return child, nil
}

// adopt takes ownership of an already-live instance.
func (m *MapInstance) adopt(key string, inst Instance) (Instance, error) {
	if inst.Type() != m.typ.elem {
		return nil, fmt.Errorf("%w: expected %s, got instance of %s",
			ErrTypeMismatch, m.typ.elem.Describe(), inst.Type().Describe())
	}
	if !inst.Node().Alive() {
		return nil, invalidf("cannot adopt a disposed instance")
	}
	if parent := inst.Node().Parent(); parent != m.node {
		return nil, invalidf("instance belongs to another tree position")
	}
	if sub := inst.Node().Subpath(); sub != "" && sub != key && m.entries[sub] == inst {
		return nil, invalidf("instance already stored at key %q", sub)
	}
	inst.Node().AttachTo(m.node, key)
	return inst, nil
}

// reconcileExisting folds an update's raw value into the existing child,
// reusing the live child in place when the element type can, and otherwise
// producing a replacement. The caller disposes the old child when a
// replacement comes back.
func (m *MapInstance) reconcileExisting(key string, existing Instance, raw any) (Instance, error) {
	child, err := m.typ.elem.Reconcile(existing, raw)
	if err != nil {
		return nil, err
	}
	if child != existing {
		if inst, ok := raw.(Instance); ok && inst == child {
			return m.adopt(key, inst)
		}
	}
	return child, nil
}
