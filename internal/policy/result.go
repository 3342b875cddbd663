package policy

// Report is the outcome of one policy run: every evaluated statement with
// its verdict, in registration order.
type Report struct {
	RunID   string            `json:"run_id"`
	Results []StatementResult `json:"results"`
}

type StatementResult struct {
	Statement      string      `json:"statement"`
	Sentence       string      `json:"sentence"`
	Passed         bool        `json:"passed"`
	Violations     []Violation `json:"violations,omitempty"`
	DurationMicros int64       `json:"duration_micros"`
}

// Passed reports whether every evaluated statement held.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Violations flattens the violations of every failing statement.
func (r *Report) Violations() []Violation {
	var out []Violation
	for _, res := range r.Results {
		out = append(out, res.Violations...)
	}
	return out
}

// Err returns a PolicyViolationError when any statement failed, nil
// otherwise.
func (r *Report) Err() error {
	violations := r.Violations()
	if len(violations) == 0 {
		return nil
	}
	return &PolicyViolationError{Violations: violations}
}
