package policy

import (
	"fmt"
	"strings"

	"github.com/flowvet/flowvet/internal/graph"
)

// MalformedStatementError reports a construction-time shape mismatch. It is
// fatal: a malformed statement never reaches evaluation.
type MalformedStatementError struct {
	Statement string
	Reason    string
}

func (e *MalformedStatementError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("malformed statement: %s", e.Reason)
	}
	return fmt.Sprintf("malformed statement %q: %s", e.Statement, e.Reason)
}

// UnknownMarkerError reports a marker the graph snapshot never declared.
// Resolution treats this as fatal rather than as an empty set; a declared
// marker with no current occupants resolves to the empty set instead.
type UnknownMarkerError struct {
	Marker graph.Marker
}

func (e *UnknownMarkerError) Error() string {
	return fmt.Sprintf("unknown marker %q: never declared in the graph snapshot", e.Marker)
}

// ViolationKind names the way a statement failed.
type ViolationKind string

const (
	// NoFlowFromSource: an All-source pre-check found a source whose
	// premise was empty (All/Some) or short of the full destination set
	// (All/All).
	NoFlowFromSource ViolationKind = "no_flow_from_source"

	// ObligationFailed: the obligation predicate returned false for a
	// matched pair or matched set.
	ObligationFailed ViolationKind = "obligation_failed"
)

// Violation locates one statement failure.
type Violation struct {
	Statement string        `json:"statement"`
	Kind      ViolationKind `json:"kind"`
	Source    graph.Node    `json:"source,omitempty"`
	Dest      graph.Node    `json:"dest,omitempty"`
	Detail    string        `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("statement %q: %s", v.Statement, v.Detail)
}

// PolicyViolationError aggregates the violations of one run.
type PolicyViolationError struct {
	Violations []Violation
}

func (e *PolicyViolationError) Error() string {
	if len(e.Violations) == 1 {
		return "policy violation: " + e.Violations[0].String()
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%d policy violations: %s", len(e.Violations), strings.Join(parts, "; "))
}
