package app

import (
	"fmt"
	"testing"

	"github.com/flowvet/flowvet/internal/graph"
	"github.com/flowvet/flowvet/internal/policy"
	"github.com/flowvet/flowvet/internal/policy/cache"
	"github.com/flowvet/flowvet/internal/policyfile"
)

const testGraphDOT = `digraph {
	card  [markers="credit_card"];
	store [markers="store"];
	card -> store;
}`

const testPolicyYAML = `
policies:
  - name: card_reaches_store
    statement: all credit_card flows to some store
`

type fakeLoader struct {
	calls int
	stmts []policy.Statement
	err   error
}

func (f *fakeLoader) Parse(data []byte) ([]policy.Statement, error) {
	f.calls++
	return f.stmts, f.err
}

type fakeRunner struct {
	calls  int
	report *policy.Report
	err    error
}

func (f *fakeRunner) Run(ctx graph.Context, stmts ...policy.Statement) (*policy.Report, error) {
	f.calls++
	return f.report, f.err
}

type passthroughCache struct{}

func (passthroughCache) GetOrCompute(source string, fn func() ([]policy.Statement, error)) ([]policy.Statement, error) {
	return fn()
}

func testStatement(t *testing.T) policy.Statement {
	t.Helper()
	stmt, err := policy.NewStatement("s", policy.All, "credit_card", graph.Data, policy.Some, "store", nil)
	if err != nil {
		t.Fatal(err)
	}
	return stmt
}

func TestService_Verify_ValidatesInputs(t *testing.T) {
	s := NewService(&fakeLoader{}, &fakeRunner{}, passthroughCache{})

	if _, err := s.Verify("", testPolicyYAML); err == nil {
		t.Fatalf("expected error for missing graph")
	}
	if _, err := s.Verify(testGraphDOT, ""); err == nil {
		t.Fatalf("expected error for missing policy")
	}
}

func TestService_Verify_BubblesUpLoaderErrors(t *testing.T) {
	s := NewService(&fakeLoader{err: fmt.Errorf("bad policy")}, &fakeRunner{}, passthroughCache{})

	_, err := s.Verify(testGraphDOT, testPolicyYAML)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_Verify_BubblesUpBadGraph(t *testing.T) {
	loader := &fakeLoader{stmts: []policy.Statement{testStatement(t)}}
	runner := &fakeRunner{}
	s := NewService(loader, runner, passthroughCache{})

	_, err := s.Verify("digraph { a -> }", testPolicyYAML)
	if err == nil {
		t.Fatalf("expected error")
	}
	if runner.calls != 0 {
		t.Fatalf("runner must not run on a bad graph")
	}
}

func TestService_Verify_ReusesCachedPolicySet(t *testing.T) {
	loader := &fakeLoader{stmts: []policy.Statement{testStatement(t)}}
	runner := &fakeRunner{report: &policy.Report{RunID: "r"}}
	s := NewService(loader, runner, cache.NewInMemory(16))

	for i := 0; i < 3; i++ {
		if _, err := s.Verify(testGraphDOT, testPolicyYAML); err != nil {
			t.Fatal(err)
		}
	}

	if loader.calls != 1 {
		t.Fatalf("expected one policy compilation, got %d", loader.calls)
	}
	if runner.calls != 3 {
		t.Fatalf("expected 3 runs, got %d", runner.calls)
	}
}

func TestService_Verify_ViolationErrorCarriesReport(t *testing.T) {
	report := &policy.Report{
		RunID: "r",
		Results: []policy.StatementResult{{
			Statement:  "s",
			Passed:     false,
			Violations: []policy.Violation{{Statement: "s", Kind: policy.ObligationFailed}},
		}},
	}
	loader := &fakeLoader{stmts: []policy.Statement{testStatement(t)}}
	runner := &fakeRunner{report: report, err: report.Err()}
	s := NewService(loader, runner, passthroughCache{})

	got, err := s.Verify(testGraphDOT, testPolicyYAML)
	if got == nil {
		t.Fatalf("expected report alongside the violation error")
	}

	violation, ok := IsViolation(err)
	if !ok {
		t.Fatalf("expected policy violation, got %v", err)
	}
	if len(violation.Violations) != 1 {
		t.Fatalf("unexpected violations %+v", violation.Violations)
	}
}

func TestService_Verify_EndToEnd(t *testing.T) {
	s := NewService(policyfile.NewLoader(), policy.NewRunner(), cache.NewInMemory(16))

	report, err := s.Verify(testGraphDOT, testPolicyYAML)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Passed() {
		t.Fatalf("expected pass, got %+v", report)
	}
}
