package types

import (
	"github.com/statetree/go-statetree/patch"
)

// committed is an edit that has already been applied to the live container.
type committed struct {
	kind    editKind
	key     string
	child   Instance // nil for delete
	oldSnap any      // prior snapshot for update/delete
}

// emitCommitted translates an applied edit into a structural patch and
// forwards it to the owning tree node's patch channel. It runs strictly
// after commit: patches describe already-applied state, and for deletes the
// child is already disposed, so no observer can retain a live reference.
func (m *MapInstance) emitCommitted(c committed) {
	p := patch.Patch{Path: patch.EscapeKey(c.key)}
	switch c.kind {
	case editInsert:
		p.Op = patch.OpAdd
		p.Value = c.child.Snapshot()
	case editUpdate:
		p.Op = patch.OpReplace
		p.Value = c.child.Snapshot()
		p.OldValue = c.oldSnap
	case editDelete:
		p.Op = patch.OpRemove
		p.OldValue = c.oldSnap
	}
	m.node.Emit(p)
}
