package policy

import (
	"github.com/flowvet/flowvet/internal/graph"
	"github.com/flowvet/flowvet/internal/policy/eval"
)

// ExprObligation compiles an expr-language predicate into a pair
// obligation. The expression is validated here, once, and evaluated per
// matched pair with the snapshot's query helpers in scope.
func ExprObligation(src string) (PairObligation, error) {
	compiled, err := eval.Compile(src)
	if err != nil {
		return nil, err
	}
	return func(ctx graph.Context, a, b graph.Node) (bool, error) {
		return compiled.Eval(ctx, a, b)
	}, nil
}
