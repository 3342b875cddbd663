package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/flowvet/flowvet/internal/app"
	"github.com/flowvet/flowvet/internal/policy"
	"github.com/flowvet/flowvet/internal/policy/cache"
	"github.com/flowvet/flowvet/internal/policyfile"
	"github.com/flowvet/flowvet/internal/transport/httptransport"
)

func newVerifyServer() *httptest.Server {
	runner := policy.NewRunner(policy.WithParallelism(4))
	svc := app.NewService(policyfile.NewLoader(), runner, cache.NewInMemory(1024))
	h := httptransport.NewHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("/verify", h.Verify)
	return httptest.NewServer(mux)
}

func postVerify(t *testing.T, srv *httptest.Server, rawBody string) (int, map[string]any, string) {
	t.Helper()

	resp, err := http.Post(srv.URL+"/verify", "application/json", bytes.NewBufferString(rawBody))
	if err != nil {
		t.Fatalf("post /verify failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return resp.StatusCode, nil, string(body)
	}
	return resp.StatusCode, out, string(body)
}

func postVerifyJSON(t *testing.T, srv *httptest.Server, graphDOT, policyYAML string) (int, map[string]any, string) {
	t.Helper()
	b, err := json.Marshal(map[string]any{"graph_dot": graphDOT, "policy_yaml": policyYAML})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return postVerify(t, srv, string(b))
}

func TestHTTPVerify_EndToEndPass(t *testing.T) {
	srv := newVerifyServer()
	defer srv.Close()

	status, out, body := postVerifyJSON(t, srv, forumGraph, forumPolicy)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if out["passed"] != true {
		t.Fatalf("expected passed=true: %s", body)
	}

	report, ok := out["report"].(map[string]any)
	if !ok {
		t.Fatalf("missing report object: %s", body)
	}
	results, _ := report["results"].([]any)
	if len(results) != 3 {
		t.Fatalf("expected 3 statement results, got %s", body)
	}
}

func TestHTTPVerify_ViolationReturnsFailedReport(t *testing.T) {
	srv := newVerifyServer()
	defer srv.Close()

	gatedPolicy := `policies:
  - name: comments_gated_by_delete_check
    statement: some community flows to some db_write
    obligation: |
      ctrl_influence("audit", Dest)
`

	status, out, body := postVerifyJSON(t, srv, forumGraph, gatedPolicy)
	if status != http.StatusOK {
		t.Fatalf("violations are not transport errors, expected 200, got %d: %s", status, body)
	}
	if out["passed"] != false {
		t.Fatalf("expected passed=false: %s", body)
	}
	if !strings.Contains(body, "obligation_failed") {
		t.Fatalf("expected obligation_failed violation kind in report: %s", body)
	}
}

func TestHTTPVerify_InputErrors(t *testing.T) {
	srv := newVerifyServer()
	defer srv.Close()

	t.Run("invalid_json", func(t *testing.T) {
		status, _, _ := postVerify(t, srv, `{`)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
	})

	t.Run("invalid_graph_dot", func(t *testing.T) {
		status, out, _ := postVerifyJSON(t, srv, "digraph { a -> ", forumPolicy)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
		if out["details"] == nil {
			t.Fatalf("expected error details")
		}
	})

	t.Run("unknown_marker", func(t *testing.T) {
		status, out, _ := postVerifyJSON(t, srv, forumGraph, `policies:
  - name: typo
    statement: some comunity flows to some db_write
`)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
		details, _ := out["details"].(string)
		if !strings.Contains(details, "comunity") {
			t.Fatalf("expected the unknown marker named, got %q", details)
		}
	})

	t.Run("malformed_statement", func(t *testing.T) {
		status, out, _ := postVerifyJSON(t, srv, forumGraph, `policies:
  - name: bad_grammar
    statement: sometimes community flows to some db_write
`)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
		if out["details"] == nil {
			t.Fatalf("expected error details")
		}
	})
}

func TestHTTPVerify_ConcurrentRequests(t *testing.T) {
	srv := newVerifyServer()
	defer srv.Close()

	const n = 80
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, out, body := postVerifyNoFatal(srv, forumGraph, forumPolicy)
			if status != http.StatusOK {
				errs <- &integrationErr{msg: "status not ok", body: body}
				return
			}
			if out == nil || out["passed"] != true {
				errs <- &integrationErr{msg: "missing passed=true", body: body}
				return
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
}

type integrationErr struct {
	msg  string
	body string
}

func (e *integrationErr) Error() string {
	return e.msg + ": " + e.body
}

func postVerifyNoFatal(srv *httptest.Server, graphDOT, policyYAML string) (int, map[string]any, string) {
	b, err := json.Marshal(map[string]any{"graph_dot": graphDOT, "policy_yaml": policyYAML})
	if err != nil {
		return 0, nil, err.Error()
	}
	resp, err := http.Post(srv.URL+"/verify", "application/json", bytes.NewBuffer(b))
	if err != nil {
		return 0, nil, err.Error()
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(body, &out)
	return resp.StatusCode, out, string(body)
}
