package app

import "github.com/flowvet/flowvet/internal/policy"

// VerifyService is the boundary the transports depend on.
type VerifyService interface {
	Verify(graphDOT, policyYAML string) (*policy.Report, error)
}
