// Package app orchestrates one verification: compile the policy set
// (cached), load the graph snapshot, run every statement, report.
package app

import (
	"errors"
	"fmt"

	"github.com/flowvet/flowvet/internal/graph"
	"github.com/flowvet/flowvet/internal/policy"
)

type PolicyLoader interface {
	Parse(data []byte) ([]policy.Statement, error)
}

type Runner interface {
	Run(ctx graph.Context, stmts ...policy.Statement) (*policy.Report, error)
}

type Cache interface {
	GetOrCompute(source string, fn func() ([]policy.Statement, error)) ([]policy.Statement, error)
}

type Service struct {
	loader PolicyLoader
	runner Runner
	cache  Cache
}

func NewService(loader PolicyLoader, runner Runner, cache Cache) *Service {
	return &Service{loader: loader, runner: runner, cache: cache}
}

// Verify compiles the policy set (cached by source text), materializes the
// graph snapshot, and runs every statement. The report is non-nil whenever
// the run completed, including runs that found violations; the error then
// is a *policy.PolicyViolationError.
func (s *Service) Verify(graphDOT, policyYAML string) (*policy.Report, error) {
	if graphDOT == "" {
		return nil, fmt.Errorf("graph_dot is required")
	}
	if policyYAML == "" {
		return nil, fmt.Errorf("policy_yaml is required")
	}

	stmts, err := s.cache.GetOrCompute(policyYAML, func() ([]policy.Statement, error) {
		return s.loader.Parse([]byte(policyYAML))
	})
	if err != nil {
		return nil, err
	}

	snapshot, err := graph.LoadDOT(graphDOT)
	if err != nil {
		return nil, err
	}

	return s.runner.Run(snapshot, stmts...)
}

// IsViolation reports whether err is a policy violation rather than an
// evaluation failure, and returns the violation detail when it is.
func IsViolation(err error) (*policy.PolicyViolationError, bool) {
	var violation *policy.PolicyViolationError
	if errors.As(err, &violation) {
		return violation, true
	}
	return nil, false
}
