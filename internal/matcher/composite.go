package matcher

// CompositeMatcher runs a group of matchers parsed from one directive.
//
// Guards (matchers that cannot be exhausted) run first in order and the
// first guard MisMatch is returned without touching the exhaustible
// matchers. Otherwise every exhaustible matcher runs: the first MisMatch
// wins, all Exhausted yields Exhausted, anything else is Success.
type CompositeMatcher struct {
	Matchers []Matcher
}

// NewCompositeMatcher groups matchers in order.
func NewCompositeMatcher(matchers ...Matcher) *CompositeMatcher {
	return &CompositeMatcher{Matchers: matchers}
}

func (m *CompositeMatcher) Kind() Kind { return KindComposite }

// CanBeExhausted is true when any child can be.
func (m *CompositeMatcher) CanBeExhausted() bool {
	for _, child := range m.Matchers {
		if child.CanBeExhausted() {
			return true
		}
	}
	return false
}

// Expand returns the concrete matcher set. A composite is already concrete.
func (m *CompositeMatcher) Expand() *CompositeMatcher { return m }

// Execute implements Matcher.
func (m *CompositeMatcher) Execute(ctx Context) Result {
	var exhaustible []Matcher
	for _, child := range m.Matchers {
		if child.CanBeExhausted() {
			exhaustible = append(exhaustible, child)
			continue
		}
		if res := child.Execute(ctx); isMisMatch(res) {
			return res
		}
	}

	if len(exhaustible) == 0 {
		return Success{}
	}

	var first Result
	allExhausted := true
	for _, child := range exhaustible {
		res := child.Execute(ctx)
		switch res.(type) {
		case MisMatch:
			if first == nil {
				first = res
			}
			allExhausted = false
		case Exhausted:
		default:
			allExhausted = false
		}
	}
	if first != nil {
		return first
	}
	if allExhausted {
		return Exhausted{}
	}
	return Success{}
}

func isMisMatch(r Result) bool {
	_, ok := r.(MisMatch)
	return ok
}
