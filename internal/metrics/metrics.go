// Package metrics exposes Prometheus counters for matcher results, monitor
// polls and scenario runs.
//
// Each Recorder owns its registry so tests and concurrent suites never
// share counters. A nil *Recorder is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "linkage"

// Poll outcomes.
const (
	PollPending  = "pending"
	PollResolved = "resolved"
	PollInvalid  = "invalid"
	PollError    = "error"
)

// Recorder holds the metric vectors.
type Recorder struct {
	registry *prometheus.Registry

	// MatcherResults counts matcher executions.
	// Labels: kind (equality, pattern, ...), result (success, mismatch, exhausted)
	MatcherResults *prometheus.CounterVec

	// MonitorPolls counts monitor requests by outcome.
	MonitorPolls *prometheus.CounterVec

	// ScenarioRuns observes how many runs a scenario needed.
	ScenarioRuns prometheus.Histogram
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		MatcherResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matcher_results_total",
			Help:      "Matcher executions by kind and result",
		}, []string{"kind", "result"}),
		MonitorPolls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_polls_total",
			Help:      "Monitor endpoint polls by outcome",
		}, []string{"outcome"}),
		ScenarioRuns: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scenario_runs",
			Help:      "Runs needed per scenario before a verdict",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
		}),
	}
}

// Registry returns the registry backing r, for exposition.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// MatcherResult counts one matcher execution.
func (r *Recorder) MatcherResult(kind, result string) {
	if r == nil {
		return
	}
	r.MatcherResults.WithLabelValues(kind, result).Inc()
}

// MonitorPoll counts one monitor request.
func (r *Recorder) MonitorPoll(outcome string) {
	if r == nil {
		return
	}
	r.MonitorPolls.WithLabelValues(outcome).Inc()
}

// ScenarioFinished observes the run count of a finished scenario.
func (r *Recorder) ScenarioFinished(runs int) {
	if r == nil {
		return
	}
	r.ScenarioRuns.Observe(float64(runs))
}
