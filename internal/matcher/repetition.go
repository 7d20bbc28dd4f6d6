package matcher

import (
	"github.com/roach88/linkage/internal/ir"
)

// RepetitionStrategy selects what a RepetitionMatcher counts.
type RepetitionStrategy string

const (
	// Any counts every observation.
	Any RepetitionStrategy = "any"
	// Each counts only observations equal to the target value.
	Each RepetitionStrategy = "each"
)

// Unbounded is the Times value that never exhausts.
const Unbounded = -1

// MarkerAny is the ledger value recorded for each observation under Any.
const MarkerAny = "<any>"

// RepetitionMatcher is a counting gate: it records observations of the
// value at Path in the exhaustion ledger and reports Exhausted once Times
// of them have been seen. It never reports a mismatch for the value itself.
type RepetitionMatcher struct {
	Path     string
	Times    int
	Strategy RepetitionStrategy

	target     any
	hasTarget  bool
	targetText bool
}

// NewRepetitionMatcher returns a matcher counting observations at path.
func NewRepetitionMatcher(path string, times int, strategy RepetitionStrategy) *RepetitionMatcher {
	return &RepetitionMatcher{Path: path, Times: times, Strategy: strategy}
}

// WithTarget sets the value Each counts. Without it Each counts the first
// value ever recorded in the slot.
func (m *RepetitionMatcher) WithTarget(v any) *RepetitionMatcher {
	m.target = v
	m.hasTarget = true
	return m
}

// Target returns the configured Each target, if any.
func (m *RepetitionMatcher) Target() (any, bool) { return m.target, m.hasTarget }

func (m *RepetitionMatcher) Kind() Kind           { return KindRepetition }
func (m *RepetitionMatcher) CanBeExhausted() bool { return m.Times != Unbounded }

// LedgerKey returns the slot this matcher records into within scope.
func (m *RepetitionMatcher) LedgerKey(scope string) ir.LedgerKey {
	return ir.LedgerKey{Scope: scope, Path: m.Path, Kind: string(KindRepetition)}
}

// Execute implements Matcher.
func (m *RepetitionMatcher) Execute(ctx Context) Result {
	if m.Times == Unbounded {
		return Success{}
	}
	actual, err := ctx.Extract(m.Path)
	if err != nil {
		return failure(FailureKindExtraction, m.Path, "%v", err)
	}
	key := m.LedgerKey(ctx.Scope())

	var value any = MarkerAny
	if m.Strategy == Each {
		target, ok := m.target, m.hasTarget
		if !ok {
			entries, err := ctx.Entries(key)
			if err != nil {
				return failure(FailureKindLedger, m.Path, "couldn't read ledger: %v", err)
			}
			target, ok = actual, true
			if len(entries) > 0 {
				target = entries[0].Value
			}
		}
		if !valuesEqual(target, actual, m.targetText && m.hasTarget) {
			entries, err := ctx.Entries(key)
			if err != nil {
				return failure(FailureKindLedger, m.Path, "couldn't read ledger: %v", err)
			}
			return m.verdict(len(entries))
		}
		value = actual
	}

	_, entries, err := ctx.AppendToLedger(key, value)
	if err != nil {
		return failure(FailureKindLedger, m.Path, "couldn't append to ledger: %v", err)
	}
	return m.verdict(len(entries))
}

func (m *RepetitionMatcher) verdict(n int) Result {
	if n >= m.Times {
		return Exhausted{}
	}
	return Success{}
}
