package engine

import (
	"github.com/roach88/linkage/internal/ir"
)

// Verdict is the final state of one scenario.
type Verdict string

const (
	// VerdictPassed means every assertion held and every exhaustible
	// assertion reported Exhausted.
	VerdictPassed Verdict = "passed"

	// VerdictFailed means an assertion did not hold or the scenario could
	// not be executed.
	VerdictFailed Verdict = "failed"

	// VerdictIncomplete means the run quota ran out while assertions still
	// asked for more runs.
	VerdictIncomplete Verdict = "incomplete"
)

// Report is the outcome of one Run.
type Report struct {
	RunID   string           `json:"run_id"`
	Order   []string         `json:"order"`
	Results []ScenarioResult `json:"results"`
}

// ScenarioResult describes one scenario's runs.
type ScenarioResult struct {
	Scenario  string           `json:"scenario"`
	Operation string           `json:"operation"`
	Verdict   Verdict          `json:"verdict"`
	Runs      int              `json:"runs"`
	Failures  []string         `json:"failures,omitempty"`
	Exchanges []ExchangeRecord `json:"exchanges,omitempty"`
}

// ExchangeRecord is one executed request and the response it was judged on.
// For deferred operations Response is the resolved response and Polls
// counts monitor requests.
type ExchangeRecord struct {
	ID       string          `json:"id"`
	Seq      int64           `json:"seq"`
	Attempt  int             `json:"attempt"`
	Polls    int             `json:"polls,omitempty"`
	Request  ir.HTTPRequest  `json:"request"`
	Response ir.HTTPResponse `json:"response"`
}

// Passed reports whether every scenario passed.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if res.Verdict != VerdictPassed {
			return false
		}
	}
	return true
}

// Verdicts maps scenario names to their verdicts.
func (r *Report) Verdicts() map[string]string {
	out := make(map[string]string, len(r.Results))
	for _, res := range r.Results {
		out[res.Scenario] = string(res.Verdict)
	}
	return out
}

// Runs maps scenario names to the number of runs taken.
func (r *Report) Runs() map[string]int {
	out := make(map[string]int, len(r.Results))
	for _, res := range r.Results {
		out[res.Scenario] = res.Runs
	}
	return out
}

// Result returns the result for the named scenario.
func (r *Report) Result(name string) (ScenarioResult, bool) {
	for _, res := range r.Results {
		if res.Scenario == name {
			return res, true
		}
	}
	return ScenarioResult{}, false
}
