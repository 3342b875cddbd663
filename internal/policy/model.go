package policy

import (
	"fmt"

	"github.com/flowvet/flowvet/internal/graph"
)

// Quantifier is attached independently to the source and destination side
// of a statement.
type Quantifier int

const (
	Some Quantifier = iota
	All
)

func (q Quantifier) String() string {
	switch q {
	case Some:
		return "some"
	case All:
		return "all"
	default:
		return fmt.Sprintf("Quantifier(%d)", int(q))
	}
}

func ParseQuantifier(s string) (Quantifier, error) {
	switch s {
	case "some":
		return Some, nil
	case "all":
		return All, nil
	default:
		return 0, fmt.Errorf("unknown quantifier %q (want some or all)", s)
	}
}

// Obligation is the predicate a matched pair, or the matched set as a
// whole, must satisfy. Obligations may query the graph context themselves.
type Obligation interface {
	shape() string
}

// PairObligation is evaluated once per matched (source, dest) pair. Legal
// for every quantifier combination.
type PairObligation func(ctx graph.Context, src, dest graph.Node) (bool, error)

func (PairObligation) shape() string { return "pair" }

// SetObligation is evaluated once per source over its whole matched
// destination set. Only legal when the destination quantifier is All, the
// one form whose premise is required to match the entire destination set.
type SetObligation func(ctx graph.Context, src graph.Node, matched graph.NodeSet) (bool, error)

func (SetObligation) shape() string { return "set" }

// Statement is one quantified flow assertion. Immutable once constructed;
// evaluation never mutates it.
type Statement struct {
	name         string
	sourceMarker graph.Marker
	destMarker   graph.Marker
	edge         graph.EdgeKind
	sourceQ      Quantifier
	destQ        Quantifier
	obligation   Obligation
}

// NewStatement validates shapes and builds an immutable statement. A nil
// obligation means "always satisfied" (pure reachability statements).
func NewStatement(name string, srcQ Quantifier, src graph.Marker, edge graph.EdgeKind, destQ Quantifier, dest graph.Marker, o Obligation) (Statement, error) {
	fail := func(reason string) (Statement, error) {
		return Statement{}, &MalformedStatementError{Statement: name, Reason: reason}
	}

	if name == "" {
		return fail("statement name is required")
	}
	if src == "" || dest == "" {
		return fail("source and destination markers are required")
	}
	if edge != graph.Data && edge != graph.Control {
		return fail(fmt.Sprintf("invalid edge kind %v", edge))
	}
	if srcQ != Some && srcQ != All {
		return fail(fmt.Sprintf("invalid source quantifier %v", srcQ))
	}
	if destQ != Some && destQ != All {
		return fail(fmt.Sprintf("invalid destination quantifier %v", destQ))
	}
	if _, isSet := o.(SetObligation); isSet && destQ != All {
		return fail("set-shaped obligation requires destination quantifier all")
	}

	return Statement{
		name:         name,
		sourceMarker: src,
		destMarker:   dest,
		edge:         edge,
		sourceQ:      srcQ,
		destQ:        destQ,
		obligation:   o,
	}, nil
}

func (s Statement) Name() string { return s.name }

// String renders the statement in the quantified grammar.
func (s Statement) String() string {
	connective := "flows to"
	if s.edge == graph.Control {
		connective = "has control flow influence on"
	}
	return fmt.Sprintf("%s %s %s %s %s", s.sourceQ, s.sourceMarker, connective, s.destQ, s.destMarker)
}
