package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/linkage/internal/async"
	"github.com/roach88/linkage/internal/engine"
	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/matcher"
	"github.com/roach88/linkage/internal/metrics"
	"github.com/roach88/linkage/internal/testutil"
)

// Harness runs suites with deterministic helpers.
type Harness struct {
	logger  *slog.Logger
	ledger  matcher.Ledger
	metrics *metrics.Recorder
	policy  async.RetryPolicy
	maxRuns int
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger for suite progress. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithLedger makes suites share l instead of a fresh in-memory ledger
// per run.
func WithLedger(l matcher.Ledger) Option {
	return func(h *Harness) { h.ledger = l }
}

// WithMetrics records engine and poll metrics.
func WithMetrics(r *metrics.Recorder) Option {
	return func(h *Harness) { h.metrics = r }
}

// WithRetryPolicy sets the monitor polling policy. Delays are recorded,
// never slept.
func WithRetryPolicy(p async.RetryPolicy) Option {
	return func(h *Harness) { h.policy = p }
}

// WithMaxRuns sets the run quota for suites that do not set max_runs.
func WithMaxRuns(n int) Option {
	return func(h *Harness) { h.maxRuns = n }
}

// New returns a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		policy: async.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes suite with a default Harness.
func Run(suite *Suite) (*Result, error) {
	return New().Run(context.Background(), suite)
}

// Run executes suite and checks its expectations. The returned error is
// for suites that cannot run at all; scenario failures and unmet
// expectations are reported in the Result.
func (h *Harness) Run(ctx context.Context, suite *Suite) (*Result, error) {
	contract, err := suite.compile()
	if err != nil {
		return nil, err
	}

	resolver := matcher.NewResolver()
	for name, schema := range suite.Patterns {
		if err := resolver.Register(name, schema); err != nil {
			return nil, err
		}
	}

	exec := testutil.NewStubExecutor()
	for i, stub := range suite.Stubs {
		method, path, err := stub.Line()
		if err != nil {
			return nil, fmt.Errorf("stubs[%d]: %w", i, err)
		}
		responses, err := normalizeResponses(stub.Responses)
		if err != nil {
			return nil, fmt.Errorf("stubs[%d]: %w", i, err)
		}
		exec.On(method, path, responses...)
	}

	handler, err := async.NewHandler(
		async.WithRetryPolicy(h.policy),
		async.WithSleeper(&testutil.RecordingSleeper{}),
		async.WithMetrics(h.metrics),
		async.WithLogger(h.logger),
	)
	if err != nil {
		return nil, err
	}

	runID := suite.RunID
	if runID == "" {
		runID = DefaultRunID
	}
	opts := []engine.EngineOption{
		engine.WithRunIDGenerator(engine.NewFixedGenerator(runID)),
		engine.WithResolver(resolver),
		engine.WithAsyncHandler(handler),
		engine.WithMetrics(h.metrics),
		engine.WithScopePrefix(suite.Name),
	}
	switch {
	case suite.MaxRuns > 0:
		opts = append(opts, engine.WithMaxRuns(suite.MaxRuns))
	case h.maxRuns > 0:
		opts = append(opts, engine.WithMaxRuns(h.maxRuns))
	}
	if h.ledger != nil {
		opts = append(opts, engine.WithLedger(h.ledger))
	}
	eng, err := engine.New(exec, contract.Links, opts...)
	if err != nil {
		return nil, err
	}

	report, err := eng.Run(ctx, contract.Scenarios)
	if err != nil {
		return nil, fmt.Errorf("run suite %q: %w", suite.Name, err)
	}

	result := NewResult()
	result.Report = report
	result.Trace = traceOf(report)
	result.Verdicts = report.Verdicts()
	checkExpectations(result, suite.Expect, report)

	h.logger.Info("suite finished",
		"suite", suite.Name,
		"scenarios", len(report.Results),
		"pass", result.Pass,
	)
	return result, nil
}

// normalizeResponses gives YAML-decoded bodies the shape JSON decoding
// produces, so numbers compare the same way as over the wire.
func normalizeResponses(in []ir.HTTPResponse) ([]ir.HTTPResponse, error) {
	out := make([]ir.HTTPResponse, len(in))
	for i, resp := range in {
		body, err := ir.Normalize(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("responses[%d].body: %w", i, err)
		}
		resp.Body = body
		out[i] = resp
	}
	return out, nil
}
