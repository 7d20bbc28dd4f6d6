package matcher

import (
	"fmt"
	"regexp"
	"regexp/syntax"
	"strconv"
	"strings"
	"unicode"
)

// RegexMatcher checks the text form of the value at Path against Regex.
type RegexMatcher struct {
	Path  string
	Regex *regexp.Regexp
}

func (m *RegexMatcher) Kind() Kind           { return KindRegex }
func (m *RegexMatcher) CanBeExhausted() bool { return false }

// Execute implements Matcher.
func (m *RegexMatcher) Execute(ctx Context) Result {
	actual, err := ctx.Extract(m.Path)
	if err != nil {
		return failure(FailureKindExtraction, m.Path, "%v", err)
	}

	var text string
	switch v := actual.(type) {
	case string:
		text = v
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		text = strconv.Itoa(v)
	case int64:
		text = strconv.FormatInt(v, 10)
	case bool:
		text = strconv.FormatBool(v)
	default:
		return mismatch(m.Path, "expected a string matching /%s/ but got %s", m.Regex, quote(actual))
	}
	if !m.Regex.MatchString(text) {
		return mismatch(m.Path, "%s does not match /%s/", quote(text), m.Regex)
	}
	return Success{}
}

// ExampleFromDirective returns a value matching the regex of a
// "pattern: <re>" directive.
func ExampleFromDirective(directive string) (string, error) {
	props, err := ParseProperties(directive)
	if err != nil {
		return "", err
	}
	raw, ok := props.Get(keyPattern)
	if !ok {
		return "", fmt.Errorf("directive %q has no pattern", directive)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("pattern must be a string")
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return "", err
	}
	return GenerateExample(re)
}

// GenerateExample derives a string that re matches. It takes the shortest
// branch everywhere: minimum repeats, first alternative, first printable
// rune of each class.
func GenerateExample(re *regexp.Regexp) (string, error) {
	tree, err := syntax.Parse(re.String(), syntax.Perl)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := writeExample(&b, tree.Simplify()); err != nil {
		return "", err
	}
	out := b.String()
	if !re.MatchString(out) {
		return "", fmt.Errorf("couldn't derive an example for /%s/", re)
	}
	return out, nil
}

func writeExample(b *strings.Builder, re *syntax.Regexp) error {
	switch re.Op {
	case syntax.OpEmptyMatch, syntax.OpNoMatch,
		syntax.OpBeginLine, syntax.OpEndLine, syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return nil
	case syntax.OpLiteral:
		b.WriteString(string(re.Rune))
	case syntax.OpCharClass:
		r, ok := firstPrintable(re.Rune)
		if !ok {
			return fmt.Errorf("empty character class")
		}
		b.WriteRune(r)
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		b.WriteByte('x')
	case syntax.OpCapture:
		return writeExample(b, re.Sub[0])
	case syntax.OpStar, syntax.OpQuest:
		return nil
	case syntax.OpPlus:
		return writeExample(b, re.Sub[0])
	case syntax.OpRepeat:
		for i := 0; i < re.Min; i++ {
			if err := writeExample(b, re.Sub[0]); err != nil {
				return err
			}
		}
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			if err := writeExample(b, sub); err != nil {
				return err
			}
		}
	case syntax.OpAlternate:
		return writeExample(b, re.Sub[0])
	default:
		return fmt.Errorf("unsupported regex construct %s", re.Op)
	}
	return nil
}

// firstPrintable picks a rune from ranges given as lo/hi pairs.
func firstPrintable(ranges []rune) (rune, bool) {
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		for r := lo; r <= hi && r-lo < 256; r++ {
			if unicode.IsPrint(r) && r != ' ' {
				return r, true
			}
		}
	}
	if len(ranges) >= 2 {
		return ranges[0], true
	}
	return 0, false
}
