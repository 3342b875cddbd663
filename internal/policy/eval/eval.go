// Package eval compiles and runs obligation expressions. Obligations are
// expr-language predicates over a matched (Src, Dest) pair, with graph
// query helpers bound into the environment so a predicate can itself ask
// reachability questions ("the check affects whether the store happens").
package eval

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/flowvet/flowvet/internal/graph"
)

// Compiled is one validated obligation program, bindable to any snapshot.
type Compiled struct {
	src     string
	program *vm.Program
}

// Compile validates the expression against the obligation environment.
// Unknown identifiers and non-boolean results are rejected here, before
// any evaluation runs.
func Compile(src string) (*Compiled, error) {
	program, err := expr.Compile(src, expr.Env(declarations()), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid obligation %q: %w", src, err)
	}
	return &Compiled{src: src, program: program}, nil
}

func (c *Compiled) Source() string { return c.src }

// Eval runs the program for one matched pair against one snapshot.
func (c *Compiled) Eval(ctx graph.Context, src, dest graph.Node) (bool, error) {
	out, err := expr.Run(c.program, Env(ctx, src, dest))
	if err != nil {
		return false, fmt.Errorf("obligation %q: %w", c.src, err)
	}

	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("obligation %q must evaluate to bool (got %T)", c.src, out)
	}
	return b, nil
}

// declarations is the compile-time shape of the environment: same names
// and signatures as Env, with no snapshot bound.
func declarations() map[string]any {
	return map[string]any{
		"Src":  "",
		"Dest": "",

		"marked":         func(marker string) ([]string, error) { return nil, nil },
		"flows_to":       func(src, dest, kind string) (bool, error) { return false, nil },
		"ctrl_influence": func(src, dest string) bool { return false },
		"has_marker":     func(marker, node string) bool { return false },
		"influencees":    func(node, kind string) ([]string, error) { return nil, nil },
		"through":        func(src, dest, marker string) (bool, error) { return false, nil },
	}
}

// Env binds the helper functions to a snapshot and a matched pair. Nodes
// cross the expr boundary as plain strings.
func Env(ctx graph.Context, src, dest graph.Node) map[string]any {
	resolve := func(marker string) (graph.NodeSet, error) {
		if !ctx.MarkerDeclared(graph.Marker(marker)) {
			return nil, fmt.Errorf("unknown marker %q", marker)
		}
		return graph.MarkedNodes(ctx, graph.Marker(marker)), nil
	}

	return map[string]any{
		"Src":  string(src),
		"Dest": string(dest),

		"marked": func(marker string) ([]string, error) {
			nodes, err := resolve(marker)
			if err != nil {
				return nil, err
			}
			return nodeStrings(nodes), nil
		},
		"flows_to": func(src, dest, kind string) (bool, error) {
			k, err := graph.ParseEdgeKind(kind)
			if err != nil {
				return false, err
			}
			return graph.FlowsTo(ctx, graph.Node(src), graph.Node(dest), k), nil
		},
		"ctrl_influence": func(src, dest string) bool {
			return graph.HasCtrlInfluence(ctx, graph.Node(src), graph.Node(dest))
		},
		"has_marker": func(marker, node string) bool {
			return ctx.HasMarker(graph.Marker(marker), graph.Node(node))
		},
		"influencees": func(node, kind string) ([]string, error) {
			k, err := graph.ParseEdgeKind(kind)
			if err != nil {
				return nil, err
			}
			return nodeStrings(ctx.Influencees(graph.Node(node), k)), nil
		},
		"through": func(src, dest, marker string) (bool, error) {
			checkpoints, err := resolve(marker)
			if err != nil {
				return false, err
			}
			return graph.OnlyThrough(ctx, graph.Node(src), graph.Node(dest), checkpoints), nil
		},
	}
}

func nodeStrings(nodes graph.NodeSet) []string {
	out := make([]string, 0, nodes.Len())
	for _, n := range nodes.Sorted() {
		out = append(out, string(n))
	}
	return out
}
