package matcher

import (
	"strings"
)

// PatternStrategy selects how unknown object keys are treated.
type PatternStrategy string

const (
	// Full rejects object keys the pattern does not declare.
	Full PatternStrategy = "full"
	// Partial accepts them, for when the pattern describes a subset.
	Partial PatternStrategy = "partial"
)

// PatternMatcher validates the value at Path against a named schema pattern.
type PatternMatcher struct {
	Path     string
	Pattern  string
	Strategy PatternStrategy
}

func (m *PatternMatcher) Kind() Kind           { return KindPattern }
func (m *PatternMatcher) CanBeExhausted() bool { return false }

// Execute implements Matcher.
func (m *PatternMatcher) Execute(ctx Context) Result {
	actual, err := ctx.Extract(m.Path)
	if err != nil {
		return failure(FailureKindExtraction, m.Path, "%v", err)
	}

	violations, err := ctx.Resolver().Validate(m.Pattern, m.Strategy != Partial, actual)
	if err != nil {
		return failure(FailureKindPatternLookup, m.Path, "couldn't resolve pattern %q: %v", m.Pattern, err)
	}
	if len(violations) == 0 {
		return Success{}
	}

	res := mismatch(m.Path, "value %s does not match pattern %q", quote(actual), m.Pattern)
	for _, v := range violations {
		crumbs := []string{m.Path}
		if loc := strings.TrimPrefix(v.Location, "/"); loc != "" {
			crumbs = append(crumbs, loc)
		}
		res.Failure.Causes = append(res.Failure.Causes, Failure{
			Kind:        FailureKindMismatch,
			Breadcrumbs: crumbs,
			Message:     v.Message,
		})
	}
	return res
}
