package async

import (
	"strings"

	"github.com/roach88/linkage/internal/ir"
)

// State is a step of the completion state machine.
type State string

const (
	StateDispatch State = "dispatch"
	StatePolling  State = "polling"
	StateResolved State = "resolved"
)

// Outcome is the result of Handle: Continue or Stop.
type Outcome interface {
	isOutcome()
}

// Continue carries the response the scenario should be checked against.
type Continue struct {
	Response ir.HTTPResponse
	// Polls is the number of monitor requests made; zero when the response
	// was not deferred.
	Polls int
}

// Stop ends the scenario with a failure.
type Stop struct {
	Failure Failure
}

func (Continue) isOutcome() {}
func (Stop) isOutcome()     {}

// Failure explains why a deferred response could not be resolved.
type Failure struct {
	Scenario string   `json:"scenario"`
	Message  string   `json:"message"`
	Causes   []string `json:"causes,omitempty"`
}

func (f Failure) Error() string {
	var b strings.Builder
	if f.Scenario != "" {
		b.WriteString(f.Scenario)
		b.WriteString(": ")
	}
	b.WriteString(f.Message)
	for _, c := range f.Causes {
		b.WriteString("\n  ")
		b.WriteString(c)
	}
	return b.String()
}
