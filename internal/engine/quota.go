package engine

import (
	"fmt"
)

// DefaultMaxRuns bounds how often one scenario is repeated while its
// assertions still ask for more runs.
const DefaultMaxRuns = 10

// RunQuota counts the runs of one scenario.
type RunQuota struct {
	maxRuns int
	current int
}

// NewRunQuota returns a quota allowing maxRuns runs.
func NewRunQuota(maxRuns int) *RunQuota {
	return &RunQuota{maxRuns: maxRuns}
}

// Check counts a run and fails once the limit is passed.
func (q *RunQuota) Check(scenario string) error {
	q.current++
	if q.current > q.maxRuns {
		return &RunsExceededError{Scenario: scenario, Runs: q.current, Limit: q.maxRuns}
	}
	return nil
}

// Current returns the number of runs counted.
func (q *RunQuota) Current() int { return q.current }

// MaxRuns returns the limit.
func (q *RunQuota) MaxRuns() int { return q.maxRuns }

// RunsExceededError is returned when a scenario would need another run
// beyond its quota.
type RunsExceededError struct {
	Scenario string
	Runs     int
	Limit    int
}

// Error implements the error interface.
func (e *RunsExceededError) Error() string {
	return fmt.Sprintf("scenario %q exceeded max runs quota: %d runs > %d limit", e.Scenario, e.Runs, e.Limit)
}
