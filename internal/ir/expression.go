package ir

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Source names where an extraction expression reads its value from.
type Source string

const (
	SourceResponseBody   Source = "response.body"
	SourceRequestBody    Source = "request.body"
	SourceResponseHeader Source = "response.header"
	SourceRequestHeader  Source = "request.header"
	SourceRequestPath    Source = "request.path"
	SourceRequestQuery   Source = "request.query"
	SourceStatusCode     Source = "statusCode"
)

// Expression is one parsed extraction expression such as
// "$response.body#/id" or "$request.header.X-Trace".
type Expression struct {
	// Original is the expression exactly as declared.
	Original string `json:"original"`

	// Source is where the value is read from.
	Source Source `json:"source"`

	// Selector is the JSON pointer for body sources, the header name for
	// header sources, and the parameter name for path/query sources.
	Selector string `json:"selector,omitempty"`

	// Placeholder is the namespaced token the expression was rewritten to.
	Placeholder string `json:"placeholder"`
}

// Placeholder returns the token an expression is rewritten to:
// ${link:<linkName>:<source>:<selector>}. The link name prefix keeps
// identical pointers in different links apart.
func Placeholder(linkName string, source Source, selector string) string {
	return "${link:" + linkName + ":" + string(source) + ":" + selector + "}"
}

var (
	bodyExpr   = regexp.MustCompile(`^\$(response|request)\.body(?:#(.*))?$`)
	headerExpr = regexp.MustCompile(`^\$(response|request)\.header\.([A-Za-z0-9!#$%&'*+.^_` + "`" + `|~-]+)$`)
	paramExpr  = regexp.MustCompile(`^\$request\.(path|query)\.([A-Za-z0-9_.-]+)$`)
	embedded   = regexp.MustCompile(`\{(\$[^{}]+)\}`)
)

// ParseExpression parses a single runtime expression. The second result is
// false when s is not an expression at all.
func ParseExpression(linkName, s string) (Expression, bool) {
	var (
		source   Source
		selector string
	)
	switch {
	case s == "$statusCode":
		source = SourceStatusCode
	case bodyExpr.MatchString(s):
		m := bodyExpr.FindStringSubmatch(s)
		source = SourceResponseBody
		if m[1] == "request" {
			source = SourceRequestBody
		}
		selector = m[2]
	case headerExpr.MatchString(s):
		m := headerExpr.FindStringSubmatch(s)
		source = SourceResponseHeader
		if m[1] == "request" {
			source = SourceRequestHeader
		}
		selector = m[2]
	case paramExpr.MatchString(s):
		m := paramExpr.FindStringSubmatch(s)
		source = SourceRequestPath
		if m[1] == "query" {
			source = SourceRequestQuery
		}
		selector = m[2]
	default:
		return Expression{}, false
	}
	return Expression{
		Original:    s,
		Source:      source,
		Selector:    selector,
		Placeholder: Placeholder(linkName, source, selector),
	}, true
}

// ValueOrExpression is a link parameter or request body: a literal JSON value
// that may contain extraction expressions, either as a whole string
// ("$response.body#/id"), embedded in a larger string ("pets/{$response.body#/id}")
// or nested anywhere inside objects and arrays.
//
// At parse time every expression is replaced by its namespaced placeholder;
// Resolve later substitutes the producer's values.
type ValueOrExpression struct {
	// Raw is the declared value, untouched.
	Raw any `json:"raw"`

	// Value is Raw with every expression rewritten to a placeholder.
	Value any `json:"value"`

	// Expressions lists every distinct expression found, in discovery order.
	Expressions []Expression `json:"expressions,omitempty"`
}

// ParseValueOrExpression rewrites every expression in raw to a placeholder
// namespaced by linkName. A string that starts with "$" but is not a valid
// expression is rejected.
func ParseValueOrExpression(linkName string, raw any) (ValueOrExpression, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return ValueOrExpression{}, err
	}
	seen := make(map[string]bool)
	var exprs []Expression
	record := func(e Expression) {
		if !seen[e.Placeholder] {
			seen[e.Placeholder] = true
			exprs = append(exprs, e)
		}
	}

	var rewrite func(v any, at string) (any, error)
	rewrite = func(v any, at string) (any, error) {
		switch val := v.(type) {
		case string:
			if strings.HasPrefix(val, "$") {
				e, ok := ParseExpression(linkName, val)
				if !ok {
					return nil, fmt.Errorf("%s: invalid runtime expression %q", at, val)
				}
				record(e)
				return e.Placeholder, nil
			}
			var bad error
			out := embedded.ReplaceAllStringFunc(val, func(m string) string {
				e, ok := ParseExpression(linkName, m[1:len(m)-1])
				if !ok {
					bad = fmt.Errorf("%s: invalid embedded expression %q", at, m)
					return m
				}
				record(e)
				return e.Placeholder
			})
			if bad != nil {
				return nil, bad
			}
			return out, nil
		case []any:
			out := make([]any, len(val))
			for i, elem := range val {
				r, err := rewrite(elem, at+"/"+strconv.Itoa(i))
				if err != nil {
					return nil, err
				}
				out[i] = r
			}
			return out, nil
		case map[string]any:
			out := make(map[string]any, len(val))
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				r, err := rewrite(val[k], at+"/"+k)
				if err != nil {
					return nil, err
				}
				out[k] = r
			}
			return out, nil
		default:
			return val, nil
		}
	}

	value, err := rewrite(normalized, "")
	if err != nil {
		return ValueOrExpression{}, err
	}
	return ValueOrExpression{Raw: raw, Value: value, Expressions: exprs}, nil
}

// IsLiteral reports whether the value contains no expressions.
func (v ValueOrExpression) IsLiteral() bool {
	return len(v.Expressions) == 0
}

// Exchange is one executed producer call: the operation it exercised and the
// request/response pair observed.
type Exchange struct {
	Operation OperationReference `json:"operation"`
	Request   HTTPRequest        `json:"request"`
	Response  HTTPResponse       `json:"response"`
}

// Resolve substitutes every placeholder with the value read from the
// producer's exchange. A string that is exactly one placeholder resolves to
// the typed value; placeholders embedded in text are rendered as text.
func (v ValueOrExpression) Resolve(ex Exchange) (any, error) {
	if v.IsLiteral() {
		return v.Value, nil
	}
	values := make(map[string]any, len(v.Expressions))
	for _, e := range v.Expressions {
		val, err := e.Extract(ex)
		if err != nil {
			return nil, err
		}
		values[e.Placeholder] = val
	}
	return substitute(v.Value, values), nil
}

func substitute(v any, values map[string]any) any {
	switch val := v.(type) {
	case string:
		if typed, ok := values[val]; ok {
			return typed
		}
		for placeholder, typed := range values {
			if strings.Contains(val, placeholder) {
				val = strings.ReplaceAll(val, placeholder, Stringify(typed))
			}
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = substitute(elem, values)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = substitute(elem, values)
		}
		return out
	default:
		return val
	}
}

// Extract reads the expression's value from a producer exchange.
func (e Expression) Extract(ex Exchange) (any, error) {
	req, resp := ex.Request, ex.Response
	switch e.Source {
	case SourceStatusCode:
		return float64(resp.Status), nil
	case SourceResponseBody:
		return e.pointer(resp.Body)
	case SourceRequestBody:
		return e.pointer(req.Body)
	case SourceResponseHeader:
		if v, ok := resp.Header(e.Selector); ok {
			return v, nil
		}
	case SourceRequestHeader:
		if v, ok := req.Header(e.Selector); ok {
			return v, nil
		}
	case SourceRequestQuery:
		if v, ok := req.Query[e.Selector]; ok {
			return v, nil
		}
	case SourceRequestPath:
		if v, ok := pathValue(ex.Operation.Path, req.Path, e.Selector); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("couldn't extract value for %s", e.Original)
}

func (e Expression) pointer(body any) (any, error) {
	v, err := ExtractPointer(body, e.Selector)
	if err != nil {
		return nil, fmt.Errorf("couldn't extract value for %s: %w", e.Original, err)
	}
	return v, nil
}

// pathValue reads the concrete segment aligned with {name} in template.
func pathValue(template, concrete, name string) (string, bool) {
	if i := strings.IndexByte(concrete, '?'); i >= 0 {
		concrete = concrete[:i]
	}
	want := strings.Split(strings.Trim(template, "/"), "/")
	got := strings.Split(strings.Trim(concrete, "/"), "/")
	if len(want) != len(got) {
		return "", false
	}
	for i, segment := range want {
		if segment == "{"+name+"}" {
			return got[i], true
		}
	}
	return "", false
}

// Stringify renders a JSON value as text: strings verbatim, everything else
// in canonical JSON form.
func Stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := MarshalCanonical(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
