package matcher

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/linkage/internal/ir"
)

// Parser builds one matcher kind from directive properties.
type Parser interface {
	Kind() Kind
	// CanParseFrom reports whether props contain a key this kind claims.
	CanParseFrom(props Properties) bool
	// ParseFrom builds the matcher for path.
	ParseFrom(path string, props Properties, ctx Context) (Matcher, error)
}

// Parsers is the registry consulted by ParseComposite, in order.
var Parsers = []Parser{equalityParser{}, patternParser{}, regexParser{}, repetitionParser{}}

type equalityParser struct{}

func (equalityParser) Kind() Kind { return KindEquality }

func (equalityParser) CanParseFrom(props Properties) bool {
	return props.Has(keyExact) || props.Has(keyMatchType)
}

func (equalityParser) ParseFrom(path string, props Properties, _ Context) (Matcher, error) {
	expected, ok := props.Get(keyExact)
	if !ok {
		return nil, &ParseError{Path: path, Key: keyMatchType, Message: "requires exact", Allowed: []string{keyExact}}
	}
	strategy := Equals
	if raw, ok := props.Get(keyMatchType); ok {
		s, err := keyword(path, keyMatchType, raw, string(Equals), string(NotEquals))
		if err != nil {
			return nil, err
		}
		strategy = EqualityStrategy(s)
	}
	return &EqualityMatcher{Path: path, Expected: expected, Strategy: strategy}, nil
}

type patternParser struct{}

func (patternParser) Kind() Kind { return KindPattern }

func (patternParser) CanParseFrom(props Properties) bool {
	return props.Has(keyDataType) || props.Has(keyPartial)
}

func (patternParser) ParseFrom(path string, props Properties, _ Context) (Matcher, error) {
	raw, ok := props.Get(keyDataType)
	if !ok {
		return nil, &ParseError{Path: path, Key: keyPartial, Message: "requires dataType", Allowed: []string{keyDataType}}
	}
	name, ok := raw.(string)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, &ParseError{Path: path, Key: keyDataType, Value: ir.Stringify(raw), Message: "must be a pattern name"}
	}
	strategy := Full
	if raw, ok := props.Get(keyPartial); ok {
		s, err := keyword(path, keyPartial, raw, string(Partial), string(Full))
		if err != nil {
			return nil, err
		}
		strategy = PatternStrategy(s)
	}
	return &PatternMatcher{Path: path, Pattern: name, Strategy: strategy}, nil
}

type regexParser struct{}

func (regexParser) Kind() Kind { return KindRegex }

func (regexParser) CanParseFrom(props Properties) bool { return props.Has(keyPattern) }

func (regexParser) ParseFrom(path string, props Properties, _ Context) (Matcher, error) {
	raw, _ := props.Get(keyPattern)
	s, ok := raw.(string)
	if !ok || s == "" {
		return nil, &ParseError{Path: path, Key: keyPattern, Value: ir.Stringify(raw), Message: "must be a regular expression"}
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return nil, &ParseError{Path: path, Key: keyPattern, Value: s, Message: err.Error()}
	}
	return &RegexMatcher{Path: path, Regex: re}, nil
}

type repetitionParser struct{}

func (repetitionParser) Kind() Kind { return KindRepetition }

func (repetitionParser) CanParseFrom(props Properties) bool {
	return props.Has(keyTimes) || props.Has(keyValue)
}

func (repetitionParser) ParseFrom(path string, props Properties, _ Context) (Matcher, error) {
	raw, ok := props.Get(keyTimes)
	if !ok {
		return nil, &ParseError{Path: path, Key: keyValue, Message: "requires times", Allowed: []string{keyTimes}}
	}
	times, err := parseTimes(raw)
	if err != nil {
		return nil, &ParseError{Path: path, Key: keyTimes, Value: ir.Stringify(raw), Message: err.Error()}
	}
	strategy := Any
	if raw, ok := props.Get(keyValue); ok {
		s, err := keyword(path, keyValue, raw, string(Any), string(Each))
		if err != nil {
			return nil, err
		}
		strategy = RepetitionStrategy(s)
	}
	m := NewRepetitionMatcher(path, times, strategy)
	if target, ok := props.Get(keyExact); ok && strategy == Each {
		m.WithTarget(target)
	}
	return m, nil
}

// markText flags values that came from directive text.
func markText(m Matcher) {
	switch v := m.(type) {
	case *EqualityMatcher:
		v.Text = true
	case *RepetitionMatcher:
		v.targetText = true
	}
}

func parseTimes(raw any) (int, error) {
	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("must be an integer")
		}
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("must be an integer")
		}
		n = parsed
	default:
		return 0, fmt.Errorf("must be an integer")
	}
	if n != Unbounded && n < 1 {
		return 0, fmt.Errorf("must be -1 or at least 1")
	}
	return n, nil
}

// keyword matches raw case-insensitively against allowed and returns the
// canonical spelling.
func keyword(path, key string, raw any, allowed ...string) (string, error) {
	s, ok := raw.(string)
	if ok {
		for _, a := range allowed {
			if strings.EqualFold(strings.TrimSpace(s), a) {
				return a, nil
			}
		}
	}
	return "", &ParseError{Path: path, Key: key, Value: ir.Stringify(raw), Message: "invalid value", Allowed: allowed}
}

// ParseComposite builds the matcher for one assertion.
//
// raw is a directive string, a "(name)" pattern shorthand, a map of
// directive keys, or any other value, which is taken as an expected literal.
// A string that has no directive keys is an expected literal too.
func ParseComposite(path string, raw any, ctx Context) (*CompositeMatcher, error) {
	var props Properties
	switch v := raw.(type) {
	case string:
		if isPatternShorthand(v) {
			return NewCompositeMatcher(&PatternMatcher{Path: path, Pattern: patternKey(v), Strategy: Full}), nil
		}
		parsed, err := ParseProperties(v)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) && perr.Key != "" && mentionsKnownKey(v) {
				perr.Path = path
				return nil, perr
			}
			return NewCompositeMatcher(&EqualityMatcher{Path: path, Expected: v, Strategy: Equals, Text: true}), nil
		}
		if !parsed.hasKnownKey() {
			return NewCompositeMatcher(&EqualityMatcher{Path: path, Expected: v, Strategy: Equals, Text: true}), nil
		}
		props = parsed
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			key := k
			if canonical, ok := knownKeys[strings.ToLower(k)]; ok {
				key = canonical
			}
			props = append(props, Property{Key: key, Value: v[k]})
		}
		if !props.hasKnownKey() {
			return NewCompositeMatcher(&EqualityMatcher{Path: path, Expected: v, Strategy: Equals}), nil
		}
	default:
		return NewCompositeMatcher(&EqualityMatcher{Path: path, Expected: raw, Strategy: Equals}), nil
	}

	if unknown := props.unknownKeys(); len(unknown) > 0 {
		return nil, &ParseError{
			Path:    path,
			Key:     strings.Join(unknown, ", "),
			Message: "unknown directive key",
			Allowed: allowedKeys,
		}
	}

	_, text := raw.(string)
	composite := &CompositeMatcher{}
	for _, p := range Parsers {
		if !p.CanParseFrom(props) {
			continue
		}
		m, err := p.ParseFrom(path, props, ctx)
		if err != nil {
			return nil, err
		}
		if text {
			markText(m)
		}
		composite.Matchers = append(composite.Matchers, m)
	}
	return composite, nil
}

// ParseAssertions builds one composite holding a composite per assertion.
// Every malformed assertion is reported.
func ParseAssertions(assertions []ir.Assertion, ctx Context) (*CompositeMatcher, error) {
	root := &CompositeMatcher{}
	var errs []error
	for _, a := range assertions {
		m, err := ParseComposite(a.Path, a.Directive, ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		root.Matchers = append(root.Matchers, m)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return root, nil
}
