package integration_test

import (
	"errors"
	"testing"

	"github.com/flowvet/flowvet/internal/graph"
	"github.com/flowvet/flowvet/internal/policy"
	"github.com/flowvet/flowvet/internal/policyfile"
)

// Snapshot of a small forum service: user content flows into database
// writes, and a deletion check gates some of them.
const forumGraph = `digraph forum {
	post_body [markers="community", scope="api"]
	comment_body [markers="community", scope="api"]
	delete_check [markers="delete_check", scope="api"]
	write_post [markers="db_write", scope="storage"]
	write_comment [markers="db_write", scope="storage"]
	audit_log [markers="audit"]
	post_body -> write_post [kind="data"]
	comment_body -> write_comment [kind="data"]
	delete_check -> write_post [kind="control"]
	delete_check -> write_comment [kind="control"]
	write_post -> audit_log [kind="data"]
}`

const forumPolicy = `policies:
  - name: community_content_is_stored
    statement: all community flows to some db_write
  - name: writes_gated_by_delete_check
    statement: some community flows to some db_write
    obligation: |
      ctrl_influence("delete_check", Dest)
  - name: stored_content_is_audited
    statement: some community flows to some audit
    obligation: |
      has_marker("audit", Dest)
`

func TestPolicyFileRunnerGraph_EndToEnd(t *testing.T) {
	stmts, err := policyfile.Parse([]byte(forumPolicy))
	if err != nil {
		t.Fatal(err)
	}
	snapshot, err := graph.LoadDOT(forumGraph)
	if err != nil {
		t.Fatal(err)
	}

	report, err := policy.NewRunner().Run(snapshot, stmts...)
	if err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}
	if len(report.Results) != 3 || !report.Passed() {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestPolicyFileRunnerGraph_ViolationAggregation(t *testing.T) {
	// Drop the comment write edge so all-community-flows fails for
	// comment_body while the gated-write statement still passes.
	brokenGraph := `digraph forum {
		post_body [markers="community"]
		comment_body [markers="community"]
		delete_check [markers="delete_check"]
		write_post [markers="db_write"]
		post_body -> write_post [kind="data"]
		delete_check -> write_post [kind="control"]
	}`

	stmts, err := policyfile.Parse([]byte(`policies:
  - name: community_content_is_stored
    statement: all community flows to some db_write
  - name: writes_gated_by_delete_check
    statement: some community flows to some db_write
    obligation: |
      ctrl_influence("delete_check", Dest)
`))
	if err != nil {
		t.Fatal(err)
	}
	snapshot, err := graph.LoadDOT(brokenGraph)
	if err != nil {
		t.Fatal(err)
	}

	report, err := policy.NewRunner().Run(snapshot, stmts...)
	if err == nil {
		t.Fatal("expected a violation")
	}
	var violation *policy.PolicyViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected PolicyViolationError, got %v", err)
	}
	if len(violation.Violations) != 1 || violation.Violations[0].Kind != policy.NoFlowFromSource {
		t.Fatalf("unexpected violations %+v", violation.Violations)
	}
	if violation.Violations[0].Source != "comment_body" {
		t.Fatalf("expected comment_body named as the dead source, got %+v", violation.Violations[0])
	}

	// The run is exhaustive: the passing statement is still in the report.
	if len(report.Results) != 2 {
		t.Fatalf("expected both statements evaluated, got %+v", report.Results)
	}
	if !report.Results[1].Passed {
		t.Fatalf("expected gated-write statement to pass, got %+v", report.Results[1])
	}
}

func TestPolicyFileRunnerGraph_UnknownMarkerAbortsRun(t *testing.T) {
	stmts, err := policyfile.Parse([]byte(`policies:
  - name: typo_marker
    statement: some comunity flows to some db_write
`))
	if err != nil {
		t.Fatal(err)
	}
	snapshot, err := graph.LoadDOT(forumGraph)
	if err != nil {
		t.Fatal(err)
	}

	report, err := policy.NewRunner().Run(snapshot, stmts...)
	if report != nil {
		t.Fatalf("expected no report on evaluation failure, got %+v", report)
	}
	var unknown *policy.UnknownMarkerError
	if !errors.As(err, &unknown) || unknown.Marker != "comunity" {
		t.Fatalf("expected unknown marker error for comunity, got %v", err)
	}
}
