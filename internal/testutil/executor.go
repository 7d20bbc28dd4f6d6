package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/linkage/internal/ir"
)

// StubExecutor answers requests from queued responses keyed by
// "METHOD /path". Each call pops the next response; the last one repeats
// once the queue is down to one entry.
type StubExecutor struct {
	mu        sync.Mutex
	responses map[string][]ir.HTTPResponse
	requests  []ir.HTTPRequest
}

// NewStubExecutor returns an executor with no responses.
func NewStubExecutor() *StubExecutor {
	return &StubExecutor{responses: make(map[string][]ir.HTTPResponse)}
}

// On queues responses for method and path.
func (e *StubExecutor) On(method, path string, responses ...ir.HTTPResponse) *StubExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := stubKey(method, path)
	e.responses[key] = append(e.responses[key], responses...)
	return e
}

// Execute implements the transport executor contract.
func (e *StubExecutor) Execute(_ context.Context, req ir.HTTPRequest) (ir.HTTPResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)

	key := stubKey(req.Method, req.Path)
	queue := e.responses[key]
	if len(queue) == 0 {
		return ir.HTTPResponse{}, fmt.Errorf("no stub for %s", key)
	}
	resp := queue[0]
	if len(queue) > 1 {
		e.responses[key] = queue[1:]
	}
	return resp, nil
}

// Requests returns every request received, in order.
func (e *StubExecutor) Requests() []ir.HTTPRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ir.HTTPRequest, len(e.requests))
	copy(out, e.requests)
	return out
}

// Calls counts requests to method and path.
func (e *StubExecutor) Calls(method, path string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := stubKey(method, path)
	n := 0
	for _, r := range e.requests {
		if stubKey(r.Method, r.Path) == key {
			n++
		}
	}
	return n
}

func stubKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}
