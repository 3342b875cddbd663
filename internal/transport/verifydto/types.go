package verifydto

import "github.com/flowvet/flowvet/internal/policy"

type VerifyRequest struct {
	GraphDOT   string `json:"graph_dot"`
	PolicyYAML string `json:"policy_yaml"`
}

type VerifyResponse struct {
	Passed bool           `json:"passed"`
	Report *policy.Report `json:"report,omitempty"`
}
