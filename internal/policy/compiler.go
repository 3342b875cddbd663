package policy

import (
	"fmt"

	"github.com/flowvet/flowvet/internal/graph"
)

// Compiler turns a statement into an executable verification procedure
// with the semantics of its quantifier pair:
//
//	some/some  every source: every premise member satisfies the obligation.
//	some/all   every source: the obligation applies only when the premise
//	           equals the entire destination set; otherwise the source
//	           passes trivially.
//	all/some   pre-check that every source has a non-empty premise, then
//	           proceed as some/some.
//	all/all    pre-check that every source's premise equals the entire
//	           destination set, then proceed as some/some.
//
// "All" on the destination side means reaching every member of the full
// destination set, not just a non-empty share of it. "All" on the source
// side gates the whole statement on a reachability pre-check across every
// source before any obligation runs.
type Compiler struct{}

func NewCompiler() *Compiler { return &Compiler{} }

// Compiled is one ready-to-run verification procedure. It holds no graph
// state: the snapshot is supplied at verification time, so the same
// compiled statement can run against any number of snapshots.
type Compiled struct {
	stmt Statement
}

func (c *Compiler) Compile(stmt Statement) (*Compiled, error) {
	if stmt.name == "" {
		return nil, &MalformedStatementError{Reason: "zero-valued statement; use NewStatement"}
	}
	return &Compiled{stmt: stmt}, nil
}

// Statement returns the statement this procedure verifies.
func (c *Compiled) Statement() Statement { return c.stmt }

// Verify runs the procedure against one snapshot. A nil violation means
// the statement passed. The returned error is reserved for evaluation
// failures (unknown markers, obligation evaluation errors); a failing
// statement is a violation, not an error.
func (c *Compiled) Verify(ctx graph.Context) (*Violation, error) {
	stmt := c.stmt

	sources, err := Resolve(ctx, stmt.sourceMarker)
	if err != nil {
		return nil, fmt.Errorf("statement %q: resolving source: %w", stmt.name, err)
	}
	dests, err := Resolve(ctx, stmt.destMarker)
	if err != nil {
		return nil, fmt.Errorf("statement %q: resolving destination: %w", stmt.name, err)
	}

	// An empty source set never fails a statement: the some-source rows
	// have no source to fail and the all-source pre-checks are vacuous.
	ordered := sources.Sorted()

	// The premise of a source is the slice of the destination set it
	// influences. Computed once per source; deterministic over the
	// snapshot and independent of evaluation order.
	premises := make(map[graph.Node]graph.NodeSet, len(ordered))
	for _, a := range ordered {
		premises[a] = ctx.Influencees(a, stmt.edge).Intersect(dests)
	}

	// All-source pre-check. Must complete over every source before any
	// obligation is evaluated.
	if stmt.sourceQ == All {
		for _, a := range ordered {
			premise := premises[a]
			switch {
			case stmt.destQ == Some && premise.Len() == 0:
				return &Violation{
					Statement: stmt.name,
					Kind:      NoFlowFromSource,
					Source:    a,
					Detail: fmt.Sprintf("source %q reaches no %q node via %s flow",
						a, stmt.destMarker, stmt.edge),
				}, nil
			case stmt.destQ == All && !premise.Equal(dests):
				return &Violation{
					Statement: stmt.name,
					Kind:      NoFlowFromSource,
					Source:    a,
					Detail: fmt.Sprintf("source %q reaches only %s of the %q set %s via %s flow",
						a, premise, stmt.destMarker, dests, stmt.edge),
				}, nil
			}
		}
	}

	// Obligation phase. Enforcement only ever ranges over the premise of
	// a source; an all-destination statement skips sources whose premise
	// falls short of the full destination set (for some/all that source
	// passes trivially, for all/all the pre-check already ruled it out).
	for _, a := range ordered {
		premise := premises[a]
		if stmt.destQ == All && !premise.Equal(dests) {
			continue
		}

		v, err := c.oblige(ctx, a, premise)
		if err != nil {
			return nil, fmt.Errorf("statement %q: %w", stmt.name, err)
		}
		if v != nil {
			return v, nil
		}
	}

	return nil, nil
}

// oblige applies the obligation for one source over its premise,
// short-circuiting on the first violating pair.
func (c *Compiled) oblige(ctx graph.Context, src graph.Node, premise graph.NodeSet) (*Violation, error) {
	stmt := c.stmt

	switch o := stmt.obligation.(type) {
	case nil:
		return nil, nil

	case SetObligation:
		ok, err := o(ctx, src, premise.Clone())
		if err != nil {
			return nil, fmt.Errorf("obligation for source %q over set %s: %w", src, premise, err)
		}
		if !ok {
			return &Violation{
				Statement: stmt.name,
				Kind:      ObligationFailed,
				Source:    src,
				Detail:    fmt.Sprintf("obligation failed for source %q over matched set %s", src, premise),
			}, nil
		}
		return nil, nil

	case PairObligation:
		for _, b := range premise.Sorted() {
			ok, err := o(ctx, src, b)
			if err != nil {
				return nil, fmt.Errorf("obligation for pair (%q, %q): %w", src, b, err)
			}
			if !ok {
				return &Violation{
					Statement: stmt.name,
					Kind:      ObligationFailed,
					Source:    src,
					Dest:      b,
					Detail:    fmt.Sprintf("obligation failed for pair (%q, %q)", src, b),
				}, nil
			}
		}
		return nil, nil

	default:
		return nil, &MalformedStatementError{Statement: stmt.name, Reason: fmt.Sprintf("unsupported obligation shape %q", o.shape())}
	}
}
