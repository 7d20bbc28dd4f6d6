package matcher

import (
	"github.com/roach88/linkage/internal/ir"
)

// EqualityStrategy selects between equals and not-equals.
type EqualityStrategy string

const (
	Equals    EqualityStrategy = "eq"
	NotEquals EqualityStrategy = "neq"
)

// EqualityMatcher compares the value at Path with Expected.
type EqualityMatcher struct {
	Path     string
	Expected any
	Strategy EqualityStrategy
	// Text marks Expected as written in directive text, where "42" also
	// stands for the number 42.
	Text bool
}

func (m *EqualityMatcher) Kind() Kind           { return KindEquality }
func (m *EqualityMatcher) CanBeExhausted() bool { return false }

// Execute implements Matcher.
func (m *EqualityMatcher) Execute(ctx Context) Result {
	actual, err := ctx.Extract(m.Path)
	if err != nil {
		return failure(FailureKindExtraction, m.Path, "%v", err)
	}

	equal := valuesEqual(m.Expected, actual, m.Text)
	switch m.Strategy {
	case NotEquals:
		if equal {
			return mismatch(m.Path, "expected value other than %s but got %s", quote(m.Expected), quote(actual))
		}
	default:
		if !equal {
			return mismatch(m.Path, "expected %s but got %s", quote(m.Expected), quote(actual))
		}
	}
	return Success{}
}

// valuesEqual is deep equality over canonical JSON. When expected is
// directive text, a string also equals a number, boolean or null that
// renders to the same text. Nested values are always compared strictly.
func valuesEqual(expected, actual any, text bool) bool {
	if s, ok := expected.(string); ok && text {
		if _, isString := actual.(string); !isString && isScalar(actual) {
			return s == ir.Stringify(actual)
		}
	}
	return ir.Equal(expected, actual)
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	}
	normalized, err := ir.Normalize(v)
	if err != nil {
		return false
	}
	switch normalized.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}

func quote(v any) string {
	if s, ok := v.(string); ok {
		return `"` + s + `"`
	}
	return ir.Stringify(v)
}
