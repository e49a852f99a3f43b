// Package types implements the type descriptor protocol of a state tree and
// its concrete types: scalar leaves, identified record models, and the keyed
// collection Map. A type descriptor validates plain snapshots, materializes
// them into live tree-attached instances, and reconciles existing instances
// against new snapshots in place wherever identity can be preserved.
package types

import (
	"strconv"

	"github.com/statetree/go-statetree/patch"
	"github.com/statetree/go-statetree/tree"
)

// Type is the descriptor protocol every element type implements.
type Type interface {
	// Describe returns a human readable type name.
	Describe() string

	// Validate checks a plain snapshot, collecting one ValidationError per
	// offending sub-value. path locates v relative to the validation root.
	Validate(v any, path string) []*ValidationError

	// Instantiate materializes a plain snapshot into a live instance
	// attached at subpath under parent. A nil value instantiates the
	// type's default snapshot.
	Instantiate(parent *tree.Node, subpath string, v any) (Instance, error)

	// Reconcile folds a new raw value into an existing instance, reusing
	// it in place when structurally compatible and otherwise returning a
	// freshly instantiated replacement. The caller disposes the old
	// instance when a replacement is returned.
	Reconcile(current Instance, v any) (Instance, error)

	// Default returns the snapshot used for empty construction.
	Default() any
}

// Instance is one live, tree-attached value.
type Instance interface {
	Type() Type
	Node() *tree.Node

	// Snapshot returns the instance's current plain snapshot. It panics
	// when the instance is dead.
	Snapshot() any

	// Dispose marks the instance and all its descendants permanently
	// dead. A disposed instance must not be used again.
	Dispose()
}

// Identifiable is implemented by structured instances that carry their own
// identity: a designated attribute whose value names the key the instance
// must be stored under in an identified collection.
type Identifiable interface {
	Instance

	// IdentifierAttribute returns the declared identifying attribute
	// name, "" when the instance's type declares none.
	IdentifierAttribute() string

	// IdentityValue returns the current identity as a string.
	IdentityValue() (string, bool)
}

// Container is implemented by complex instances that hold children under
// string keys and can replay foreign patches and snapshots.
type Container interface {
	Instance
	Child(key string) (Instance, bool)
	ApplyPatch(p patch.Patch) error
	ApplySnapshot(v any) error
}

// identString normalizes an identifier value to its string form. Only
// strings and numbers can serve as identifiers.
func identString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'g', -1, 64), true
	}
	return "", false
}
