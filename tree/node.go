// Package tree provides the host node abstraction shared by every live value
// in a state tree: parent/child attachment, stable paths, liveness, the
// write-protection gate and the patch channel patches bubble through.
package tree

import (
	"fmt"

	"github.com/statetree/go-statetree/debug"
	"github.com/statetree/go-statetree/patch"
)

// Node is the tree position of one live value. A node is created attached,
// lives at a fixed subpath under its parent (the parent may rebind it once,
// before any sibling can observe it), and dies permanently on Dispose.
type Node struct {
	parent   *Node
	subpath  string
	children map[string]*Node
	dead     bool

	// protection is only consulted at the root
	protected bool

	subs    map[int]func(patch.Patch)
	nextSub int
}

// NewRoot creates a detached root node.
func NewRoot() *Node {
	return &Node{}
}

// NewChild creates a live node attached under n. An empty subpath creates a
// provisionally attached node that must be rebound before use; this supports
// materializing a value before its storage key is known.
func (n *Node) NewChild(subpath string) *Node {
	child := &Node{parent: n, subpath: subpath}
	if subpath != "" {
		n.register(child)
	}
	return child
}

func (n *Node) register(child *Node) {
	if n.children == nil {
		n.children = map[string]*Node{}
	}
	n.children[child.subpath] = child
}

// Rebind moves n to a new subpath under its parent.
func (n *Node) Rebind(subpath string) {
	if n.parent == nil {
		panic("rebind on root")
	}
	if n.subpath != "" {
		delete(n.parent.children, n.subpath)
	}
	n.subpath = subpath
	n.parent.register(n)
}

// AttachTo moves n under a new parent at the given subpath.
func (n *Node) AttachTo(parent *Node, subpath string) {
	n.Detach()
	n.parent = parent
	n.subpath = subpath
	parent.register(n)
}

// Detach removes n from its parent without killing it. Used when ownership
// of a child transfers elsewhere.
func (n *Node) Detach() {
	if n.parent == nil {
		return
	}
	if n.subpath != "" && n.parent.children[n.subpath] == n {
		delete(n.parent.children, n.subpath)
	}
	n.parent = nil
}

// Dispose detaches n and marks it and every descendant permanently dead.
func (n *Node) Dispose() {
	n.Detach()
	n.kill()
}

func (n *Node) kill() {
	n.dead = true
	n.subs = nil
	for _, c := range n.children {
		c.kill()
	}
}

// Alive reports whether n is still part of a tree.
func (n *Node) Alive() bool {
	return !n.dead
}

// MustBeAlive panics when n has been disposed. Live values guard every
// access with it so that a retained reference to a removed child fails
// loudly instead of reading stale state.
func (n *Node) MustBeAlive() {
	if n.dead {
		panic(fmt.Sprintf("statetree: access to dead node at %q", n.subpath))
	}
}

// Subpath returns n's key under its parent, unescaped.
func (n *Node) Subpath() string {
	return n.subpath
}

// Parent returns n's parent, nil at the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Root walks to the tree root.
func (n *Node) Root() *Node {
	res := n
	for res.parent != nil {
		res = res.parent
	}
	return res
}

// Path returns the slash-joined escaped path from the root, "" at the root.
func (n *Node) Path() string {
	if n.parent == nil {
		return ""
	}
	prefix := n.parent.Path()
	seg := patch.EscapeKey(n.subpath)
	if prefix == "" {
		return seg
	}
	return prefix + "/" + seg
}

// Protect write-protects the whole tree. Only the root carries the flag.
func (n *Node) Protect() {
	n.Root().protected = true
}

// Unprotect clears write protection.
func (n *Node) Unprotect() {
	n.Root().protected = false
}

// Protected reports whether the tree currently rejects direct mutation.
func (n *Node) Protected() bool {
	return n.Root().protected
}

// Emit delivers p to subscribers at n, then bubbles it to the parent with
// n's subpath prefixed. Patches describe already-applied state; callers emit
// strictly after commit.
func (n *Node) Emit(p patch.Patch) {
	if debug.Patch() {
		debug.Logf("emit %s %q at %q\n", p.Op, p.Path, n.Path())
	}
	for _, f := range n.subs {
		f(p)
	}
	if n.parent != nil && n.subpath != "" {
		n.parent.Emit(p.Prefix(n.subpath))
	}
}

// OnPatch subscribes f to every patch passing through n and returns a
// cancel function.
func (n *Node) OnPatch(f func(patch.Patch)) func() {
	if n.subs == nil {
		n.subs = map[int]func(patch.Patch){}
	}
	id := n.nextSub
	n.nextSub++
	n.subs[id] = f
	return func() {
		delete(n.subs, id)
	}
}
