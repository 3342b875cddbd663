package policy

import "github.com/flowvet/flowvet/internal/graph"

// Resolve collects every node carrying the marker across all scopes of the
// snapshot and unions the results. A marker the snapshot never declared is
// an UnknownMarkerError; a declared marker with no occupants resolves to
// the empty set, which is a valid value.
func Resolve(ctx graph.Context, m graph.Marker) (graph.NodeSet, error) {
	if !ctx.MarkerDeclared(m) {
		return nil, &UnknownMarkerError{Marker: m}
	}

	return graph.MarkedNodes(ctx, m), nil
}
