package ir

import (
	"fmt"
	"sort"
	"strings"
)

// ParameterLocation says where a link parameter is applied on the consumer request.
type ParameterLocation string

const (
	LocationPath   ParameterLocation = "path"
	LocationQuery  ParameterLocation = "query"
	LocationHeader ParameterLocation = "header"
)

// Link declares that ForOperation (the consumer) is invoked with values
// taken from an exchange of ByOperation (the producer).
//
// Links are built once through NewLink and never modified afterwards.
type Link struct {
	Name         string                       `json:"name"`
	ByOperation  OperationReference           `json:"by_operation"`
	ForOperation OperationReference           `json:"for_operation"`
	Parameters   map[string]ValueOrExpression `json:"parameters,omitempty"`
	RequestBody  *ValueOrExpression           `json:"request_body,omitempty"`
	Description  string                       `json:"description,omitempty"`
}

// LinkError reports an invalid link declaration.
type LinkError struct {
	Link    string
	Missing []string
	Message string
}

func (e *LinkError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("link %q: missing mandatory path parameter(s) %s for %s",
			e.Link, strings.Join(e.Missing, ", "), e.Message)
	}
	return fmt.Sprintf("link %q: %s", e.Link, e.Message)
}

// NewLink validates and builds a link. Parameter keys may be bare ("id") or
// prefixed with their location ("path.id", "query.limit", "header.X-Trace").
// Every path parameter of forOp must be supplied.
func NewLink(name string, byOp, forOp OperationReference, params map[string]any, body any) (Link, error) {
	if strings.TrimSpace(name) == "" {
		return Link{}, &LinkError{Link: name, Message: "name is required"}
	}
	link := Link{
		Name:         name,
		ByOperation:  byOp,
		ForOperation: forOp,
		Parameters:   make(map[string]ValueOrExpression, len(params)),
	}

	for _, key := range sortedParamKeys(params) {
		voe, err := ParseValueOrExpression(name, params[key])
		if err != nil {
			return Link{}, &LinkError{Link: name, Message: fmt.Sprintf("parameter %q: %v", key, err)}
		}
		link.Parameters[key] = voe
	}
	if body != nil {
		voe, err := ParseValueOrExpression(name, body)
		if err != nil {
			return Link{}, &LinkError{Link: name, Message: fmt.Sprintf("requestBody: %v", err)}
		}
		link.RequestBody = &voe
	}

	var missing []string
	for _, p := range forOp.PathParameters() {
		if _, ok := link.Parameters[p]; ok {
			continue
		}
		if _, ok := link.Parameters["path."+p]; ok {
			continue
		}
		missing = append(missing, p)
	}
	if len(missing) > 0 {
		return Link{}, &LinkError{Link: name, Missing: missing, Message: forOp.String()}
	}
	return link, nil
}

// MustLink is like NewLink but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustLink(name string, byOp, forOp OperationReference, params map[string]any, body any) Link {
	l, err := NewLink(name, byOp, forOp, params, body)
	if err != nil {
		panic(err)
	}
	return l
}

// Locate classifies a parameter key. Bare keys naming a path
// template segment of the consumer are path parameters; other bare keys are
// query parameters.
func (l Link) Locate(key string) (ParameterLocation, string) {
	for _, loc := range []ParameterLocation{LocationPath, LocationQuery, LocationHeader} {
		if rest, ok := strings.CutPrefix(key, string(loc)+"."); ok {
			return loc, rest
		}
	}
	for _, p := range l.ForOperation.PathParameters() {
		if p == key {
			return LocationPath, key
		}
	}
	return LocationQuery, key
}

// Apply resolves the link against a producer exchange and writes the values
// into the consumer request. Path templates of ForOperation are filled in;
// query and header parameters are set; the body is replaced when the link
// declares one. req is not modified.
func (l Link) Apply(req HTTPRequest, producer Exchange) (HTTPRequest, error) {
	out := req
	out.Query = cloneStrings(req.Query)
	out.Headers = cloneStrings(req.Headers)
	if out.Path == "" {
		out.Path = l.ForOperation.Path
	}

	for _, key := range sortedParamKeys(l.Parameters) {
		val, err := l.Parameters[key].Resolve(producer)
		if err != nil {
			return req, fmt.Errorf("link %q parameter %q: %w", l.Name, key, err)
		}
		loc, name := l.Locate(key)
		text := Stringify(val)
		switch loc {
		case LocationPath:
			out.Path = fillPathParameter(l.ForOperation.Path, out.Path, name, text)
		case LocationQuery:
			if out.Query == nil {
				out.Query = make(map[string]string)
			}
			out.Query[name] = text
		case LocationHeader:
			if out.Headers == nil {
				out.Headers = make(map[string]string)
			}
			out.Headers[name] = text
		}
	}

	if l.RequestBody != nil {
		body, err := l.RequestBody.Resolve(producer)
		if err != nil {
			return req, fmt.Errorf("link %q requestBody: %w", l.Name, err)
		}
		out.Body = body
	}
	return out, nil
}

// fillPathParameter replaces the segment aligned with {name} in template.
// If concrete still carries the literal placeholder it is substituted in place.
func fillPathParameter(template, concrete, name, value string) string {
	token := "{" + name + "}"
	if strings.Contains(concrete, token) {
		return strings.ReplaceAll(concrete, token, value)
	}
	want := strings.Split(strings.Trim(template, "/"), "/")
	got := strings.Split(strings.Trim(concrete, "/"), "/")
	if len(want) != len(got) {
		return concrete
	}
	for i, segment := range want {
		if segment == token {
			got[i] = value
		}
	}
	return "/" + strings.Join(got, "/")
}

func sortedParamKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
