package matcher

import (
	"github.com/roach88/linkage/internal/ir"
)

// values builds a PairOperator whose response body is body.
func values(body any) PairOperator {
	return PairOperator{Response: ir.HTTPResponse{Status: 200, Body: body}}
}

// countingMatcher records how often it ran and returns a fixed result.
type countingMatcher struct {
	exhaustible bool
	result      Result
	calls       int
}

func (m *countingMatcher) Kind() Kind           { return KindEquality }
func (m *countingMatcher) CanBeExhausted() bool { return m.exhaustible }
func (m *countingMatcher) sealed()              {}

func (m *countingMatcher) Execute(Context) Result {
	m.calls++
	return m.result
}
