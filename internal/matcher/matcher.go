package matcher

// Kind names a matcher variant. It is also the Kind of the ledger slots a
// matcher owns.
type Kind string

const (
	KindEquality   Kind = "equality"
	KindPattern    Kind = "pattern"
	KindRegex      Kind = "regex"
	KindRepetition Kind = "repetition"
	KindComposite  Kind = "composite"
)

// Matcher is implemented only by the matcher kinds in this package.
type Matcher interface {
	// CanBeExhausted reports whether the matcher takes part in the
	// exhaustion protocol. Non-exhaustible matchers act as guards.
	CanBeExhausted() bool

	// Execute checks the matcher against the values in ctx.
	Execute(ctx Context) Result

	// Kind identifies the variant.
	Kind() Kind

	sealed()
}

func (*EqualityMatcher) sealed()   {}
func (*PatternMatcher) sealed()    {}
func (*RegexMatcher) sealed()      {}
func (*RepetitionMatcher) sealed() {}
func (*CompositeMatcher) sealed()  {}
