package async

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/metrics"
)

// Executor sends one request. transport.HTTPExecutor implements it.
type Executor interface {
	Execute(ctx context.Context, req ir.HTTPRequest) (ir.HTTPResponse, error)
}

// DefaultAllowedHeaders are copied from an embedded response even when the
// scenario does not declare them.
var DefaultAllowedHeaders = []string{"Content-Type"}

// Handler resolves deferred responses through their monitor link.
// A Handler is stateless between calls and safe for concurrent use.
type Handler struct {
	policy  RetryPolicy
	sleeper Sleeper
	allowed []string
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithRetryPolicy sets the polling policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(h *Handler) { h.policy = p }
}

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s Sleeper) Option {
	return func(h *Handler) { h.sleeper = s }
}

// WithAllowedHeaders sets the embedded headers merged into the resolved
// response besides those the scenario declares.
func WithAllowedHeaders(names ...string) Option {
	return func(h *Handler) { h.allowed = append([]string(nil), names...) }
}

// WithMetrics records each poll.
func WithMetrics(r *metrics.Recorder) Option {
	return func(h *Handler) { h.metrics = r }
}

// WithLogger sets the logger for state transitions. Default is
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler returns a Handler with DefaultRetryPolicy, RealSleeper and
// DefaultAllowedHeaders.
func NewHandler(opts ...Option) (*Handler, error) {
	h := &Handler{
		policy:  DefaultRetryPolicy(),
		sleeper: RealSleeper{},
		allowed: DefaultAllowedHeaders,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if err := h.policy.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// Policy returns the handler's retry policy.
func (h *Handler) Policy() RetryPolicy { return h.policy }

// Handle inspects the primary response of scenario. Scenarios without an
// async declaration pass straight through. Otherwise the response must
// carry the accepted status and a monitor link; the monitor is located
// among siblings of the same feature and polled until it embeds a final
// response or the retry policy runs out.
func (h *Handler) Handle(ctx context.Context, req ir.HTTPRequest, resp ir.HTTPResponse, scenario ir.Scenario, siblings []ir.Scenario, exec Executor) Outcome {
	if scenario.Async == nil {
		return Continue{Response: resp}
	}
	state := StateDispatch
	stop := func(format string, args ...any) Outcome {
		h.logger.Debug("async state", "scenario", scenario.Name, "from", state, "to", StateResolved, "result", "stop")
		return Stop{Failure: Failure{Scenario: scenario.Name, Message: fmt.Sprintf(format, args...)}}
	}

	if want := scenario.Async.Accepted(); resp.Status != want {
		return stop("expected accepted status %d for %s %s but got %d", want, req.Method, req.Path, resp.Status)
	}
	header, ok := resp.Header("Link")
	if !ok {
		return stop("accepted response has no Link header")
	}
	links, err := ParseLinkHeader(header)
	if err != nil {
		return stop("malformed Link header: %v", err)
	}
	link, ok := FindLink(links, scenario.Async.Rel())
	if !ok {
		return stop("Link header has no rel=%q entry", scenario.Async.Rel())
	}
	target, err := url.Parse(link.URL)
	if err != nil {
		return stop("malformed monitor link %q: %v", link.URL, err)
	}
	monitor, ok := findMonitor(scenario, siblings, target.Path)
	if !ok {
		return stop("no monitor scenario found matching link %s", link.URL)
	}

	pollReq := ir.HTTPRequest{
		Method:  http.MethodGet,
		Path:    target.Path,
		Headers: monitor.Request.Headers,
	}
	if q := target.Query(); len(q) > 0 {
		pollReq.Query = make(map[string]string, len(q))
		for k := range q {
			pollReq.Query[k] = q.Get(k)
		}
	}

	h.logger.Debug("async state", "scenario", scenario.Name, "from", state, "to", StatePolling,
		"monitor", monitor.Name, "path", pollReq.Path, "title", link.Title)
	state = StatePolling

	schedule := h.policy.backOff()
	for attempt := 1; attempt <= h.policy.MaxAttempts; attempt++ {
		pollResp, err := exec.Execute(ctx, pollReq)
		if err != nil {
			h.metrics.MonitorPoll(metrics.PollError)
			return stop("GET %s failed: %v", pollReq.Path, err)
		}
		if pollResp.Status >= 400 {
			h.metrics.MonitorPoll(metrics.PollError)
			return stop("GET %s returned status %d", pollReq.Path, pollResp.Status)
		}

		result, problems, err := DecodeMonitorResult(pollResp.Body)
		if err != nil {
			return stop("monitor schema unavailable: %v", err)
		}
		if len(problems) > 0 {
			h.metrics.MonitorPoll(metrics.PollInvalid)
			out := stop("malformed monitor result from GET %s", pollReq.Path).(Stop)
			out.Failure.Causes = problems
			return out
		}

		if !result.Pending() {
			h.metrics.MonitorPoll(metrics.PollResolved)
			h.logger.Debug("async state", "scenario", scenario.Name, "from", state, "to", StateResolved,
				"result", "continue", "polls", attempt, "status", result.Response.Status)
			return Continue{Response: h.resolve(scenario, *result.Response), Polls: attempt}
		}
		h.metrics.MonitorPoll(metrics.PollPending)

		if attempt == h.policy.MaxAttempts {
			break
		}
		delay := schedule.NextBackOff()
		if hint, ok := retryAfter(pollResp); ok {
			delay = hint
		}
		h.logger.Debug("monitor pending", "scenario", scenario.Name, "attempt", attempt, "delay", delay)
		if err := h.sleeper.Sleep(ctx, delay); err != nil {
			return stop("polling GET %s interrupted: %v", pollReq.Path, err)
		}
	}
	return stop("max retries of %d exceeded with GET %s", h.policy.MaxAttempts, pollReq.Path)
}

// resolve builds the final response: the embedded status and body, with
// the scenario's expected headers overlaid by allowed embedded headers.
func (h *Handler) resolve(scenario ir.Scenario, embedded MonitorResponse) ir.HTTPResponse {
	headers := make(map[string]string, len(scenario.Response.Headers))
	allowed := make(map[string]bool)
	for name, v := range scenario.Response.Headers {
		headers[name] = v
		allowed[strings.ToLower(name)] = true
	}
	for _, name := range h.allowed {
		allowed[strings.ToLower(name)] = true
	}
	for name, v := range embedded.Headers {
		if !allowed[strings.ToLower(name)] {
			continue
		}
		for existing := range headers {
			if strings.EqualFold(existing, name) {
				delete(headers, existing)
			}
		}
		headers[name] = v
	}
	return ir.HTTPResponse{Status: embedded.Status, Headers: headers, Body: embedded.Body}
}

// findMonitor picks the sibling in scenario's feature that sends a GET to
// path, either literally or through its path template.
func findMonitor(scenario ir.Scenario, siblings []ir.Scenario, path string) (ir.Scenario, bool) {
	for _, s := range siblings {
		if s.Name == scenario.Name || s.Feature != scenario.Feature {
			continue
		}
		if !strings.EqualFold(s.Operation.Method, http.MethodGet) {
			continue
		}
		if s.Request.Path == path || s.Operation.MatchesPath(path) {
			return s, true
		}
	}
	return ir.Scenario{}, false
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP date.
func retryAfter(resp ir.HTTPResponse) (time.Duration, bool) {
	v, ok := resp.Header("Retry-After")
	if !ok {
		return 0, false
	}
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}
