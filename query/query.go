// Package query compiles read-only expressions against plain snapshots.
// Queries never see live instances; they run on the serializable form, so a
// replica holding only snapshots can answer them identically.
package query

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/statetree/go-statetree/snap"
)

// Query is a compiled expression. The snapshot is bound as `root`; when the
// snapshot is an object its top-level keys are bound as variables too.
type Query struct {
	src string
	prg *vm.Program
}

// Compile builds a query from an expression source string.
func Compile(src string) (*Query, error) {
	prg, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compiling query %q: %w", src, err)
	}
	return &Query{src: src, prg: prg}, nil
}

func (q *Query) String() string {
	return q.src
}

// Run evaluates the query against a snapshot.
func (q *Query) Run(snapshot any) (any, error) {
	env := map[string]any{"root": snapshot}
	if obj, ok := snap.IsObject(snapshot); ok {
		for k, v := range obj {
			if k == "root" {
				continue
			}
			env[k] = v
		}
	}
	res, err := expr.Run(q.prg, env)
	if err != nil {
		return nil, fmt.Errorf("running query %q: %w", q.src, err)
	}
	return res, nil
}

// Run is a one-shot Compile followed by Run.
func Run(src string, snapshot any) (any, error) {
	q, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return q.Run(snapshot)
}
