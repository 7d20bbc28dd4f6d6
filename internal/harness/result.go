package harness

import (
	"github.com/roach88/linkage/internal/engine"
)

// Trace event types.
const (
	EventExchange = "exchange"
	EventVerdict  = "verdict"
)

// TraceEvent is one line of a run trace: an exchange the engine judged or
// the verdict closing a scenario.
type TraceEvent struct {
	Type     string   `json:"type"`
	Scenario string   `json:"scenario"`
	Seq      int64    `json:"seq,omitempty"`
	Attempt  int      `json:"attempt,omitempty"`
	Polls    int      `json:"polls,omitempty"`
	Method   string   `json:"method,omitempty"`
	Path     string   `json:"path,omitempty"`
	Status   int      `json:"status,omitempty"`
	Verdict  string   `json:"verdict,omitempty"`
	Runs     int      `json:"runs,omitempty"`
	Failures []string `json:"failures,omitempty"`
}

// Result is the outcome of a suite.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Trace lists exchanges and verdicts in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors explains every failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Verdicts maps scenario names to verdicts.
	Verdicts map[string]string `json:"verdicts"`

	// Report is the engine report the trace was built from.
	Report *engine.Report `json:"-"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Verdicts: make(map[string]string),
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// traceOf flattens a report into trace events.
func traceOf(report *engine.Report) []TraceEvent {
	trace := []TraceEvent{}
	for _, res := range report.Results {
		for _, ex := range res.Exchanges {
			trace = append(trace, TraceEvent{
				Type:     EventExchange,
				Scenario: res.Scenario,
				Seq:      ex.Seq,
				Attempt:  ex.Attempt,
				Polls:    ex.Polls,
				Method:   ex.Request.Method,
				Path:     ex.Request.Path,
				Status:   ex.Response.Status,
			})
		}
		trace = append(trace, TraceEvent{
			Type:     EventVerdict,
			Scenario: res.Scenario,
			Verdict:  string(res.Verdict),
			Runs:     res.Runs,
			Failures: res.Failures,
		})
	}
	return trace
}
