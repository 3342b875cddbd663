// Package graph defines the labeled dependency graph a policy run verifies
// against: opaque nodes, semantic markers, typed influence edges, and the
// Context interface through which the policy layer queries a snapshot.
package graph

import "fmt"

// Node is an opaque identifier into the dependency graph. The policy layer
// only ever compares nodes and tests set membership.
type Node string

// Marker is a case-sensitive semantic label attached to nodes. Two markers
// are equal iff their text is equal.
type Marker string

// EdgeKind selects which influence relation a query traverses.
type EdgeKind int

const (
	Data EdgeKind = iota
	Control
)

func (k EdgeKind) String() string {
	switch k {
	case Data:
		return "data"
	case Control:
		return "control"
	default:
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
}

func ParseEdgeKind(s string) (EdgeKind, error) {
	switch s {
	case "data":
		return Data, nil
	case "control":
		return Control, nil
	default:
		return 0, fmt.Errorf("unknown edge kind %q (want data or control)", s)
	}
}

// Context is one immutable analysis snapshot. Influencees must be
// transitively closed; all methods are safe for concurrent readers.
type Context interface {
	// Scopes lists every controller/analysis unit in the snapshot.
	Scopes() []string

	// ScopeNodes returns the nodes belonging to one scope.
	ScopeNodes(scope string) NodeSet

	// HasMarker reports whether node n carries marker m.
	HasMarker(m Marker, n Node) bool

	// MarkerDeclared reports whether m was declared anywhere in the
	// snapshot, regardless of whether any node currently carries it.
	MarkerDeclared(m Marker) bool

	// Influencees returns every node reachable from n via the given edge
	// kind, transitively closed.
	Influencees(n Node, kind EdgeKind) NodeSet

	// InfluenceesExcluding is Influencees with the excluded nodes removed
	// from the graph before traversal. Used for checkpoint queries.
	InfluenceesExcluding(n Node, kind EdgeKind, excluded NodeSet) NodeSet
}

// MarkedNodes unions the marker's occupants over every scope of the
// snapshot. Declaration status is the caller's concern.
func MarkedNodes(ctx Context, m Marker) NodeSet {
	out := NodeSet{}
	for _, scope := range ctx.Scopes() {
		for n := range ctx.ScopeNodes(scope) {
			if ctx.HasMarker(m, n) {
				out.Add(n)
			}
		}
	}
	return out
}

// FlowsTo reports whether src influences dest along the given edge kind.
func FlowsTo(ctx Context, src, dest Node, kind EdgeKind) bool {
	return ctx.Influencees(src, kind).Contains(dest)
}

// HasCtrlInfluence reports whether src affects whether dest executes.
func HasCtrlInfluence(ctx Context, src, dest Node) bool {
	return ctx.Influencees(src, Control).Contains(dest)
}

// OnlyThrough reports whether every data flow from src to dest passes a
// checkpoint node: src must reach dest, and must no longer reach it once the
// checkpoints are cut out of the graph.
func OnlyThrough(ctx Context, src, dest Node, checkpoints NodeSet) bool {
	if !FlowsTo(ctx, src, dest, Data) {
		return false
	}
	if checkpoints.Contains(dest) {
		return true
	}
	return !ctx.InfluenceesExcluding(src, Data, checkpoints).Contains(dest)
}
