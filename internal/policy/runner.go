package policy

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowvet/flowvet/internal/graph"
)

// Runner executes named statements against one graph snapshot. It owns no
// graph-mutation capability; runs are read-only over the context.
//
// Default mode is exhaustive: every statement is evaluated and all
// violations are aggregated. WithFailFast stops at the first failing
// statement instead.
type Runner struct {
	compiler *Compiler
	failFast bool
	parallel int
	observer StatementLatencyObserver
	reporter Reporter
}

type RunnerOption func(*Runner)

// WithFailFast stops the run at the first failing statement. Forces
// sequential evaluation.
func WithFailFast() RunnerOption {
	return func(r *Runner) { r.failFast = true }
}

// WithParallelism evaluates up to n statements concurrently. Statements
// are independent and read-only over the snapshot, so they can run in
// parallel; within each statement, the all-source pre-check still fully
// precedes obligation evaluation.
func WithParallelism(n int) RunnerOption {
	return func(r *Runner) {
		if n > 1 {
			r.parallel = n
		}
	}
}

func WithStatementLatencyObserver(o StatementLatencyObserver) RunnerOption {
	return func(r *Runner) { r.observer = o }
}

func WithReporter(rep Reporter) RunnerOption {
	return func(r *Runner) { r.reporter = rep }
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{compiler: NewCompiler(), parallel: 1}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run compiles and evaluates the statements against the snapshot. The
// report covers every evaluated statement; when any statement failed the
// report is returned together with a *PolicyViolationError. Other errors
// (compilation, unknown markers, obligation evaluation) abort the run.
func (r *Runner) Run(ctx graph.Context, stmts ...Statement) (*Report, error) {
	compiled := make([]*Compiled, len(stmts))
	for i, stmt := range stmts {
		c, err := r.compiler.Compile(stmt)
		if err != nil {
			return nil, err
		}
		compiled[i] = c
	}

	report := &Report{
		RunID:   uuid.NewString(),
		Results: make([]StatementResult, 0, len(stmts)),
	}

	if r.parallel > 1 && !r.failFast {
		if err := r.runParallel(ctx, compiled, report); err != nil {
			return nil, err
		}
	} else {
		for _, c := range compiled {
			res, err := r.verifyOne(ctx, c)
			if err != nil {
				return nil, err
			}
			report.Results = append(report.Results, res)
			if r.failFast && !res.Passed {
				break
			}
		}
	}

	if err := report.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) runParallel(ctx graph.Context, compiled []*Compiled, report *Report) error {
	results := make([]StatementResult, len(compiled))
	errs := make([]error, len(compiled))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.parallel)

	for i, c := range compiled {
		wg.Add(1)
		go func(i int, c *Compiled) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i], errs[i] = r.verifyOne(ctx, c)
		}(i, c)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	report.Results = append(report.Results, results...)
	return nil
}

func (r *Runner) verifyOne(ctx graph.Context, c *Compiled) (StatementResult, error) {
	start := time.Now()
	violation, err := c.Verify(ctx)
	elapsed := time.Since(start)

	if r.observer != nil {
		r.observer.ObserveStatementLatency(c.Statement().Name(), elapsed)
	}
	if err != nil {
		return StatementResult{}, fmt.Errorf("run statement %q: %w", c.Statement().Name(), err)
	}

	res := StatementResult{
		Statement:      c.Statement().Name(),
		Sentence:       c.Statement().String(),
		Passed:         violation == nil,
		DurationMicros: elapsed.Microseconds(),
	}
	if violation != nil {
		res.Violations = []Violation{*violation}
	}

	if r.reporter != nil {
		detail := "ok"
		if violation != nil {
			detail = violation.Detail
		}
		r.reporter.Report(res.Statement, res.Passed, detail)
	}

	return res, nil
}
