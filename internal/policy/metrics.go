package policy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes statement evaluation as Prometheus series. It plugs into
// the runner both as a latency observer and as a reporter.
type Metrics struct {
	evalDuration *prometheus.HistogramVec
	resultsTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		evalDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowvet_statement_eval_duration_seconds",
				Help:    "Time taken to verify one policy statement.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"statement"},
		),
		resultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowvet_statement_results_total",
				Help: "Statement verdicts by statement and result.",
			},
			[]string{"statement", "result"},
		),
	}

	reg.MustRegister(m.evalDuration, m.resultsTotal)
	return m
}

func (m *Metrics) ObserveStatementLatency(statement string, duration time.Duration) {
	m.evalDuration.WithLabelValues(statement).Observe(duration.Seconds())
}

func (m *Metrics) Report(statement string, passed bool, detail string) {
	result := "failed"
	if passed {
		result = "passed"
	}
	m.resultsTotal.WithLabelValues(statement, result).Inc()
}
