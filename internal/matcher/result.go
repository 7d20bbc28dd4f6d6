package matcher

import (
	"fmt"
	"strings"
)

// Result is the outcome of one Execute call. It is one of Success,
// MisMatch or Exhausted.
type Result interface {
	isResult()
	String() string
}

// Success means the assertion holds for this run and may need more runs.
type Success struct{}

// MisMatch means the assertion is violated.
type MisMatch struct {
	Failure Failure
}

// Exhausted means the assertion holds and needs no further runs.
type Exhausted struct{}

func (Success) isResult()   {}
func (MisMatch) isResult()  {}
func (Exhausted) isResult() {}

func (Success) String() string   { return "success" }
func (Exhausted) String() string { return "exhausted" }
func (m MisMatch) String() string {
	return "mismatch: " + m.Failure.Report()
}

// FailureKind separates ordinary assertion failures from failures to read
// the value or to load the pattern it is checked against.
type FailureKind string

const (
	// FailureKindMismatch is a value that is present but wrong.
	FailureKindMismatch FailureKind = "mismatch"

	// FailureKindExtraction is a value that could not be found at its path.
	FailureKindExtraction FailureKind = "extraction"

	// FailureKindPatternLookup is a schema pattern that could not be resolved
	// or compiled.
	FailureKindPatternLookup FailureKind = "pattern_lookup"

	// FailureKindLedger is a failure to read or append the exhaustion ledger.
	FailureKindLedger FailureKind = "ledger"
)

// Failure describes why an assertion did not hold.
type Failure struct {
	Kind        FailureKind `json:"kind"`
	Breadcrumbs []string    `json:"breadcrumbs,omitempty"`
	Message     string      `json:"message"`
	Causes      []Failure   `json:"causes,omitempty"`
}

// Report renders the failure and its causes, one per line, each prefixed by
// its breadcrumb path.
func (f Failure) Report() string {
	var b strings.Builder
	f.write(&b, 0)
	return strings.TrimRight(b.String(), "\n")
}

func (f Failure) write(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	if len(f.Breadcrumbs) > 0 {
		fmt.Fprintf(b, ">> %s: ", strings.Join(f.Breadcrumbs, " > "))
	}
	b.WriteString(f.Message)
	b.WriteByte('\n')
	for _, c := range f.Causes {
		c.write(b, depth+1)
	}
}

// Error lets a Failure travel as an error where callers want one.
func (f Failure) Error() string { return f.Report() }

func mismatch(path, format string, args ...any) MisMatch {
	return MisMatch{Failure: Failure{
		Kind:        FailureKindMismatch,
		Breadcrumbs: []string{path},
		Message:     fmt.Sprintf(format, args...),
	}}
}

func failure(kind FailureKind, path, format string, args ...any) MisMatch {
	return MisMatch{Failure: Failure{
		Kind:        kind,
		Breadcrumbs: []string{path},
		Message:     fmt.Sprintf(format, args...),
	}}
}

// IsSuccess reports whether r is Success.
func IsSuccess(r Result) bool {
	_, ok := r.(Success)
	return ok
}

// IsExhausted reports whether r is Exhausted.
func IsExhausted(r Result) bool {
	_, ok := r.(Exhausted)
	return ok
}

// AsMisMatch returns the MisMatch inside r, if any.
func AsMisMatch(r Result) (MisMatch, bool) {
	m, ok := r.(MisMatch)
	return m, ok
}
