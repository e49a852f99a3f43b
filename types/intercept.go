package types

import (
	"fmt"

	"github.com/statetree/go-statetree/debug"
	"github.com/statetree/go-statetree/snap"
)

type editKind int8

const (
	editInsert editKind = iota
	editUpdate
	editDelete
)

func (k editKind) String() string {
	switch k {
	case editInsert:
		return "insert"
	case editUpdate:
		return "update"
	case editDelete:
		return "delete"
	}
	return "unknown"
}

// edit is one proposed mutation of the collection.
type edit struct {
	kind editKind
	key  string
	raw  any
}

// propose is the single choke point every mutation passes through. It runs
// synchronously to completion: validate, materialize, commit, then emit.
// An abort at any stage before commit has no visible effect on the live
// container, its snapshot, or the identity state of already-present keys.
func (m *MapInstance) propose(e edit, emit bool) error {
	m.node.MustBeAlive()
	if debug.Intercept() {
		debug.Logf("%s proposed %s at key %q\n", m.typ.Describe(), e.kind, e.key)
	}
	if m.node.Protected() {
		return fmt.Errorf("%w: cannot %s %q", ErrNotWritable, e.kind, e.key)
	}
	switch e.kind {
	case editDelete:
		return m.commitDelete(e, emit)
	case editInsert:
		return m.commitInsert(e, emit)
	case editUpdate:
		return m.commitUpdate(e, emit)
	}
	return invalidf("unknown edit kind %d", e.kind)
}

func (m *MapInstance) commitInsert(e edit, emit bool) error {
	child, err := m.materialize(e.key, e.raw)
	if err != nil {
		return err
	}
	if err := m.typ.resolveIdentity(e.key, child); err != nil {
		child.Dispose()
		return err
	}
	m.entries[e.key] = child
	if emit {
		m.emitCommitted(committed{kind: editInsert, key: e.key, child: child})
	}
	return nil
}

func (m *MapInstance) commitUpdate(e edit, emit bool) error {
	existing := m.entries[e.key]

	// a raw value referentially identical to the stored one is a no-op:
	// no reconciliation, no disposal, no patch
	if inst, isInst := e.raw.(Instance); isInst {
		if inst == existing {
			return nil
		}
		// a live candidate's identity is checked before adoption can
		// displace the existing child's registration under the key
		if err := m.typ.resolveIdentity(e.key, inst); err != nil {
			return err
		}
	} else {
		if si, ok := existing.(*scalarInstance); ok && snap.Equal(si.value, e.raw) {
			return nil
		}
		if err := validationFailure(m.typ.elem, m.typ.elem.Validate(e.raw, "")); err != nil {
			return err
		}
		if obj, ok := snap.IsObject(e.raw); ok {
			if err := m.typ.precheckIdentity(e.key, obj); err != nil {
				return err
			}
		}
	}

	// captured before reconciliation can mutate the child in place
	oldSnap := existing.Snapshot()

	child, err := m.reconcileExisting(e.key, existing, e.raw)
	if err != nil {
		return err
	}
	if err := m.typ.resolveIdentity(e.key, child); err != nil {
		if child != existing {
			child.Dispose()
		}
		return err
	}
	m.entries[e.key] = child
	if child != existing {
		existing.Dispose()
	} else if snap.Equal(oldSnap, child.Snapshot()) {
		return nil
	}
	if emit {
		m.emitCommitted(committed{kind: editUpdate, key: e.key, child: child, oldSnap: oldSnap})
	}
	return nil
}

func (m *MapInstance) commitDelete(e edit, emit bool) error {
	existing := m.entries[e.key]
	// the outgoing snapshot is captured now; after disposal the child is
	// permanently unusable
	oldSnap := existing.Snapshot()
	delete(m.entries, e.key)
	existing.Dispose()
	if emit {
		m.emitCommitted(committed{kind: editDelete, key: e.key, oldSnap: oldSnap})
	}
	return nil
}
