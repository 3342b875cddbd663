// Package policyfile loads policy sets from their YAML form: named
// statements written in the quantified grammar, with optional expr
// obligations.
//
//	policies:
//	  - name: community_writes_checked
//	    statement: all community flows to some db_write
//	    obligation: |
//	      any(marked("delete_check"), flows_to(Src, #, "data") && ctrl_influence(#, Dest))
package policyfile

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flowvet/flowvet/internal/policy"
)

// Loader is the method-set form of Parse, for callers that take the
// loader as a dependency.
type Loader struct{}

func NewLoader() *Loader { return &Loader{} }

func (*Loader) Parse(data []byte) ([]policy.Statement, error) { return Parse(data) }

type File struct {
	Policies []Entry `yaml:"policies"`
}

type Entry struct {
	Name       string `yaml:"name"`
	Statement  string `yaml:"statement"`
	Obligation string `yaml:"obligation,omitempty"`
}

// Parse decodes and compiles a policy set. Every statement is validated
// here; a malformed entry fails the whole set.
func Parse(data []byte) ([]policy.Statement, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse policy YAML: %w", err)
	}
	if len(f.Policies) == 0 {
		return nil, fmt.Errorf("policy set is empty")
	}

	seen := map[string]struct{}{}
	out := make([]policy.Statement, 0, len(f.Policies))

	for i, e := range f.Policies {
		if e.Name == "" {
			return nil, fmt.Errorf("policy %d: name is required", i)
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("policy %q: duplicate name", e.Name)
		}
		seen[e.Name] = struct{}{}

		var obligation policy.Obligation
		if strings.TrimSpace(e.Obligation) != "" {
			o, err := policy.ExprObligation(e.Obligation)
			if err != nil {
				return nil, fmt.Errorf("policy %q: %w", e.Name, err)
			}
			obligation = o
		}

		stmt, err := policy.StatementFromText(e.Name, e.Statement, obligation)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}

	return out, nil
}
