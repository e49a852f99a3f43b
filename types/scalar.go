package types

import (
	"fmt"

	"github.com/statetree/go-statetree/snap"
	"github.com/statetree/go-statetree/tree"
)

// Scalar leaf types. Scalar instances wrap a bare plain value minimally for
// storage; they have no independent identity of their own.
var (
	String  Type = &scalarType{name: "string", def: "", check: isString}
	Number  Type = &scalarType{name: "number", def: float64(0), check: isNumber}
	Boolean Type = &scalarType{name: "boolean", def: false, check: isBool}

	// Identifier is a string-or-number scalar that, used as a model
	// field, designates the model's identifying attribute. It has no
	// default: an identified value must always be born with its identity.
	Identifier Type = &scalarType{name: "identifier", ident: true, check: isIdent}

	// Frozen accepts any plain value and stores it as an opaque,
	// immutable leaf. Useful when the shape of the data is not declared.
	Frozen Type = &scalarType{name: "frozen", check: func(any) bool { return true }}
)

type scalarType struct {
	name  string
	ident bool
	def   any
	check func(any) bool
}

func (s *scalarType) Describe() string {
	return s.name
}

func (s *scalarType) Default() any {
	return s.def
}

func (s *scalarType) Validate(v any, path string) []*ValidationError {
	if !s.check(v) {
		return []*ValidationError{{
			Path:    path,
			Message: fmt.Sprintf("expected %s, got %v", s.name, describeValue(v)),
		}}
	}
	return nil
}

func (s *scalarType) Instantiate(parent *tree.Node, subpath string, v any) (Instance, error) {
	if v == nil {
		v = s.def
	}
	if err := validationFailure(s, s.Validate(v, "")); err != nil {
		return nil, err
	}
	return &scalarInstance{typ: s, node: parent.NewChild(subpath), value: v}, nil
}

func (s *scalarType) Reconcile(current Instance, v any) (Instance, error) {
	if inst, ok := v.(Instance); ok {
		if inst == current {
			return current, nil
		}
		if inst.Type() != s {
			return nil, fmt.Errorf("%w: cannot reconcile %s with instance of %s",
				ErrTypeMismatch, s.name, inst.Type().Describe())
		}
		return inst, nil
	}
	if si, ok := current.(*scalarInstance); ok && si.typ == s && snap.Equal(si.value, v) {
		return current, nil
	}
	if err := validationFailure(s, s.Validate(v, "")); err != nil {
		return nil, err
	}
	node := current.Node()
	return &scalarInstance{typ: s, node: node.Parent().NewChild(node.Subpath()), value: v}, nil
}

type scalarInstance struct {
	typ   *scalarType
	node  *tree.Node
	value any
}

func (s *scalarInstance) Type() Type {
	return s.typ
}

func (s *scalarInstance) Node() *tree.Node {
	return s.node
}

func (s *scalarInstance) Snapshot() any {
	s.node.MustBeAlive()
	return s.value
}

func (s *scalarInstance) Dispose() {
	s.node.Dispose()
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32, uint64:
		return true
	}
	return false
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isIdent(v any) bool {
	_, ok := identString(v)
	return ok
}

func describeValue(v any) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	}
	return fmt.Sprintf("%v (%T)", v, v)
}
