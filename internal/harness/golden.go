package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/linkage/internal/ir"
)

// TraceSnapshot is the golden form of a run.
type TraceSnapshot struct {
	Suite string       `json:"suite"`
	RunID string       `json:"run_id"`
	Trace []TraceEvent `json:"trace"`
}

// RunWithGolden runs suite and compares its trace with
// testdata/golden/<suite.Name>.golden, in canonical JSON.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, suite *Suite, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := New(opts...).Run(context.Background(), suite)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, suite.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Snapshot renders the golden form of result in canonical JSON.
func Snapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{Suite: name, Trace: result.Trace}
	if result.Report != nil {
		snapshot.RunID = result.Report.RunID
	}
	return ir.MarshalCanonical(snapshot)
}

// AssertGolden compares an existing result's trace with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}
