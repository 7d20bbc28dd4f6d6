package engine

import (
	"github.com/roach88/linkage/internal/ir"
)

// exchangeLog keeps every exchange of the current run so consumers can read
// values produced by scenarios that ran before them.
type exchangeLog struct {
	entries []ir.Exchange
}

func (l *exchangeLog) add(ex ir.Exchange) {
	l.entries = append(l.entries, ex)
}

// latest returns the most recent exchange of the producer. A producer
// reference with a concrete status only matches exchanges that returned it.
func (l *exchangeLog) latest(producer ir.OperationReference) (ir.Exchange, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		ex := l.entries[i]
		if !ex.Operation.SameOperation(producer) {
			continue
		}
		if producer.Status > 0 && ex.Response.Status != producer.Status {
			continue
		}
		return ex, true
	}
	return ir.Exchange{}, false
}

// appliesTo reports whether link feeds scenarios of op. A consumer
// reference without a status applies to every status variant.
func appliesTo(link ir.Link, op ir.OperationReference) bool {
	want := link.ForOperation.Status
	return want == ir.StatusAny || want == op.Status
}

// buildRequest fills the scenario request from its incoming links.
func (e *Engine) buildRequest(s ir.Scenario, log *exchangeLog) (ir.HTTPRequest, error) {
	req := s.Request
	if req.Method == "" {
		req.Method = s.Operation.Method
	}
	if req.Path == "" {
		req.Path = s.Operation.Path
	}
	for _, link := range e.graph.IncomingLinks(s.Operation) {
		if !appliesTo(link, s.Operation) {
			continue
		}
		producer, ok := log.latest(link.ByOperation)
		if !ok {
			return req, newRuntimeError(ErrCodeLinkResolution, s.Name,
				"link %q has no exchange of producer %s", link.Name, link.ByOperation)
		}
		next, err := link.Apply(req, producer)
		if err != nil {
			return req, &RuntimeError{Code: ErrCodeLinkResolution, Scenario: s.Name, Message: err.Error()}
		}
		req = next
	}
	return req, nil
}
