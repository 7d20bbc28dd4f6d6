// Package matcher validates values taken from a request/response pair
// against declarative assertions and tracks how many runs each assertion
// still needs.
//
// A Matcher is one of a closed set of kinds: equality, pattern, regex,
// repetition and composite. Execute returns a Result that is Success (holds
// for this run, may want more runs), MisMatch (violated, with a Failure) or
// Exhausted (holds and needs no more runs).
//
// Repetition matchers count observations in an exhaustion ledger that
// persists across runs of a scenario. The ledger is append-only and only
// reached through Context.AppendToLedger, which returns a fresh Context, so
// the state a caller threads through a run is always explicit.
//
// Assertions are authored as directive strings in a small key/value
// language:
//
//	exact: test, matchType: neq
//	dataType: number, partial: partial
//	pattern: ^J.*
//	exact: test, times: 2
//
// ParseComposite turns one directive into a CompositeMatcher holding every
// matcher kind whose keys appear in it.
package matcher
