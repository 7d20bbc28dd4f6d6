package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/linkage/internal/async"
	"github.com/roach88/linkage/internal/graph"
	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/matcher"
	"github.com/roach88/linkage/internal/metrics"
	"github.com/roach88/linkage/internal/transport"
)

// Engine executes scenarios against an API in link order.
type Engine struct {
	exec     transport.Executor
	graph    *graph.Graph
	maxRuns  int
	ledger   matcher.Ledger
	resolver *matcher.Resolver
	async    *async.Handler
	ids      RunIDGenerator
	metrics  *metrics.Recorder
	clock    *Clock
	prefix   string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxRuns sets how many runs one scenario may take.
// Default is DefaultMaxRuns.
func WithMaxRuns(n int) EngineOption {
	return func(e *Engine) { e.maxRuns = n }
}

// WithLedger sets the exhaustion ledger. Default is a fresh MemoryLedger.
func WithLedger(l matcher.Ledger) EngineOption {
	return func(e *Engine) { e.ledger = l }
}

// WithResolver sets the pattern resolver. Default has only built-in patterns.
func WithResolver(r *matcher.Resolver) EngineOption {
	return func(e *Engine) { e.resolver = r }
}

// WithAsyncHandler sets the handler for deferred responses.
func WithAsyncHandler(h *async.Handler) EngineOption {
	return func(e *Engine) { e.async = h }
}

// WithRunIDGenerator sets the run ID source. Default is UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) { e.ids = g }
}

// WithMetrics records matcher results and scenario runs.
func WithMetrics(r *metrics.Recorder) EngineOption {
	return func(e *Engine) { e.metrics = r }
}

// WithClock sets the clock stamping exchanges.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithScopePrefix namespaces ledger scopes as "<prefix>/<scenario>", so
// engines sharing one ledger keep same-named scenarios apart.
func WithScopePrefix(prefix string) EngineOption {
	return func(e *Engine) { e.prefix = prefix }
}

// New builds an engine over links. A cyclic link set is rejected with
// *graph.CycleError.
func New(exec transport.Executor, links []ir.Link, opts ...EngineOption) (*Engine, error) {
	if exec == nil {
		return nil, errors.New("engine: executor is required")
	}
	g, err := graph.Build(links)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		exec:    exec,
		graph:   g,
		maxRuns: DefaultMaxRuns,
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxRuns < 1 {
		return nil, fmt.Errorf("engine: max runs must be at least 1, got %d", e.maxRuns)
	}
	if e.ledger == nil {
		e.ledger = matcher.NewMemoryLedger()
	}
	if e.resolver == nil {
		e.resolver = matcher.NewResolver()
	}
	if e.clock == nil {
		e.clock = NewClock()
	}
	if e.async == nil {
		h, err := async.NewHandler(async.WithMetrics(e.metrics))
		if err != nil {
			return nil, err
		}
		e.async = h
	}
	return e, nil
}

// scope returns the ledger scope of scenario.
func (e *Engine) scope(scenario string) string {
	if e.prefix == "" {
		return scenario
	}
	return e.prefix + "/" + scenario
}

// Graph returns the dependency graph the engine orders scenarios by.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Run executes scenarios in dependency order and reports a verdict for
// each. Scenario failures are part of the report; the returned error is
// reserved for ordering failures and cancellation, in which case the
// report holds the scenarios finished so far.
func (e *Engine) Run(ctx context.Context, scenarios []ir.Scenario) (*Report, error) {
	ordered, err := e.graph.SortScenarios(scenarios)
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: e.ids.Generate()}
	for _, s := range ordered {
		report.Order = append(report.Order, s.Name)
	}
	slog.Info("engine run started", "run_id", report.RunID, "scenarios", len(ordered))

	log := &exchangeLog{}
	for _, s := range ordered {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := e.runScenario(ctx, report.RunID, s, ordered, log)
		if err := ctx.Err(); err != nil {
			return report, err
		}
		e.metrics.ScenarioFinished(res.Runs)
		slog.Debug("scenario finished", "scenario", s.Name, "verdict", res.Verdict, "runs", res.Runs)
		report.Results = append(report.Results, res)
	}

	slog.Info("engine run finished", "run_id", report.RunID, "passed", report.Passed())
	return report, nil
}

// runScenario repeats one scenario until its assertions are exhausted, a
// run fails or the quota is spent.
func (e *Engine) runScenario(ctx context.Context, runID string, s ir.Scenario, siblings []ir.Scenario, log *exchangeLog) ScenarioResult {
	res := ScenarioResult{Scenario: s.Name, Operation: s.Operation.String()}
	fail := func(err error) ScenarioResult {
		res.Verdict = VerdictFailed
		res.Failures = append(res.Failures, err.Error())
		return res
	}

	base := matcher.NewContext(nil,
		matcher.WithResolver(e.resolver),
		matcher.WithLedger(e.ledger),
		matcher.WithScope(e.scope(s.Name)),
		matcher.WithGoContext(ctx),
	)
	assertions, err := matcher.ParseAssertions(s.Assertions, base)
	if err != nil {
		return fail(&RuntimeError{Code: ErrCodeAssertionParse, Scenario: s.Name, Message: err.Error()})
	}

	quota := NewRunQuota(e.maxRuns)
	for {
		if err := quota.Check(s.Name); err != nil {
			res.Verdict = VerdictIncomplete
			res.Failures = append(res.Failures, err.Error())
			return res
		}
		res.Runs = quota.Current()

		req, err := e.buildRequest(s, log)
		if err != nil {
			return fail(err)
		}
		resp, err := e.exec.Execute(ctx, req)
		if err != nil {
			return fail(newRuntimeError(ErrCodeTransport, s.Name, "%s %s: %v", req.Method, req.Path, err))
		}

		polls := 0
		switch out := e.async.Handle(ctx, req, resp, s, siblings, e.exec).(type) {
		case async.Stop:
			return fail(&RuntimeError{
				Code:     ErrCodeAsyncStopped,
				Scenario: s.Name,
				Message:  out.Failure.Message,
				Causes:   out.Failure.Causes,
			})
		case async.Continue:
			resp = out.Response
			polls = out.Polls
		}

		record, err := e.record(runID, s, res.Runs, polls, req, resp)
		if err != nil {
			return fail(err)
		}
		res.Exchanges = append(res.Exchanges, record)
		log.add(ir.Exchange{Operation: s.Operation, Request: req, Response: resp})

		if want := expectedStatus(s); want > 0 && resp.Status != want {
			return fail(newRuntimeError(ErrCodeStatusMismatch, s.Name,
				"expected status %d but got %d", want, resp.Status))
		}

		result := assertions.Execute(base.WithValues(matcher.PairOperator{Request: req, Response: resp}))
		e.metrics.MatcherResult(string(assertions.Kind()), resultLabel(result))
		slog.Debug("assertions evaluated", "scenario", s.Name, "run", res.Runs, "result", resultLabel(result))

		switch r := result.(type) {
		case matcher.MisMatch:
			res.Verdict = VerdictFailed
			res.Failures = append(res.Failures, r.Failure.Report())
			return res
		case matcher.Exhausted:
			res.Verdict = VerdictPassed
			return res
		}
		if !assertions.CanBeExhausted() {
			res.Verdict = VerdictPassed
			return res
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
	}
}

func (e *Engine) record(runID string, s ir.Scenario, attempt, polls int, req ir.HTTPRequest, resp ir.HTTPResponse) (ExchangeRecord, error) {
	id, err := ir.ExchangeID(runID, s.Name, attempt, req, resp)
	if err != nil {
		return ExchangeRecord{}, fmt.Errorf("record exchange of %s: %w", s.Name, err)
	}
	return ExchangeRecord{
		ID:       id,
		Seq:      e.clock.Next(),
		Attempt:  attempt,
		Polls:    polls,
		Request:  req,
		Response: resp,
	}, nil
}

// expectedStatus is the status the judged response must carry, or 0 for
// any. A deferred scenario is judged on its resolved response, whose status
// the accepted status says nothing about.
func expectedStatus(s ir.Scenario) int {
	if s.Async == nil {
		return s.Operation.Status
	}
	if s.Response.Status > 0 && s.Response.Status != s.Async.Accepted() {
		return s.Response.Status
	}
	return 0
}

func resultLabel(r matcher.Result) string {
	switch r.(type) {
	case matcher.Success:
		return "success"
	case matcher.Exhausted:
		return "exhausted"
	default:
		return "mismatch"
	}
}
