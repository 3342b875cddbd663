package policy

import (
	"fmt"
	"strings"

	"github.com/flowvet/flowvet/internal/graph"
)

// ParsedStatement is the outcome of parsing one sentence of the quantified
// grammar:
//
//	[always] (some|all) MARKER flows to (some|all) MARKER
//	[always] (some|all) MARKER has control flow influence on (some|all) MARKER
//
// "flows to" selects data influence, "has control flow influence on"
// selects control influence. Keywords are lowercase; markers are taken
// verbatim and stay case-sensitive.
type ParsedStatement struct {
	SourceQuantifier Quantifier
	SourceMarker     graph.Marker
	Edge             graph.EdgeKind
	DestQuantifier   Quantifier
	DestMarker       graph.Marker
}

var keywords = map[string]struct{}{
	"some": {}, "all": {}, "flows": {}, "to": {},
	"has": {}, "control": {}, "flow": {}, "influence": {}, "on": {},
	"always": {}, "sometimes": {},
}

// ParseStatementText parses one sentence of the grammar.
func ParseStatementText(text string) (ParsedStatement, error) {
	var out ParsedStatement

	words := strings.Fields(text)
	pos := 0

	fail := func(format string, args ...any) (ParsedStatement, error) {
		return ParsedStatement{}, fmt.Errorf("statement %q: %s", text, fmt.Sprintf(format, args...))
	}
	peek := func() string {
		if pos < len(words) {
			return words[pos]
		}
		return ""
	}
	take := func() string {
		w := peek()
		if w != "" {
			pos++
		}
		return w
	}

	switch peek() {
	case "always":
		take()
	case "sometimes":
		return fail("scope %q is not supported (only always)", "sometimes")
	}

	quantifier := func(side string) (Quantifier, error) {
		q, err := ParseQuantifier(take())
		if err != nil {
			return 0, fmt.Errorf("%s quantifier: %w", side, err)
		}
		return q, nil
	}
	marker := func(side string) (graph.Marker, error) {
		w := take()
		if w == "" {
			return "", fmt.Errorf("missing %s marker", side)
		}
		if _, reserved := keywords[w]; reserved {
			return "", fmt.Errorf("%s marker must not be the keyword %q", side, w)
		}
		return graph.Marker(w), nil
	}
	expect := func(want ...string) error {
		for _, w := range want {
			if got := take(); got != w {
				return fmt.Errorf("expected %q, got %q", w, got)
			}
		}
		return nil
	}

	var err error
	if out.SourceQuantifier, err = quantifier("source"); err != nil {
		return fail("%v", err)
	}
	if out.SourceMarker, err = marker("source"); err != nil {
		return fail("%v", err)
	}

	switch peek() {
	case "flows":
		if err := expect("flows", "to"); err != nil {
			return fail("%v", err)
		}
		out.Edge = graph.Data
	case "has":
		if err := expect("has", "control", "flow", "influence", "on"); err != nil {
			return fail("%v", err)
		}
		out.Edge = graph.Control
	default:
		return fail("expected \"flows to\" or \"has control flow influence on\", got %q", peek())
	}

	if out.DestQuantifier, err = quantifier("destination"); err != nil {
		return fail("%v", err)
	}
	if out.DestMarker, err = marker("destination"); err != nil {
		return fail("%v", err)
	}

	if pos != len(words) {
		return fail("trailing input %q", strings.Join(words[pos:], " "))
	}

	return out, nil
}

// StatementFromText parses a sentence and constructs the statement with
// the given name and obligation.
func StatementFromText(name, text string, o Obligation) (Statement, error) {
	parsed, err := ParseStatementText(text)
	if err != nil {
		return Statement{}, &MalformedStatementError{Statement: name, Reason: err.Error()}
	}
	return NewStatement(name, parsed.SourceQuantifier, parsed.SourceMarker, parsed.Edge, parsed.DestQuantifier, parsed.DestMarker, o)
}
