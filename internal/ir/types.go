package ir

import (
	"fmt"
	"net/http"
	"strings"
)

// Status sentinels for OperationReference.Status.
const (
	// StatusAny marks a reference that identifies an operation regardless of
	// response status. Identity() produces references with StatusAny.
	StatusAny = 0

	// StatusDefault is the contract's "default" response (any undeclared status).
	StatusDefault = -1
)

// OperationReference identifies one API operation and one of its responses.
//
// It is an immutable value type: equality is by all fields and it is used
// directly as a map key (graph nodes, scenario grouping).
type OperationReference struct {
	Path        string `json:"path" yaml:"path"`
	Method      string `json:"method" yaml:"method"`
	Status      int    `json:"status,omitempty" yaml:"status,omitempty"`
	OperationID string `json:"operation_id,omitempty" yaml:"operation_id,omitempty"`
}

// NewOperationReference normalises method casing so that references built
// from different sources compare equal.
func NewOperationReference(method, path string, status int, operationID string) OperationReference {
	return OperationReference{
		Path:        path,
		Method:      strings.ToUpper(strings.TrimSpace(method)),
		Status:      status,
		OperationID: operationID,
	}
}

// Identity returns the reference with its status cleared.
//
// Scenarios for the same path+method+operationId share one identity no
// matter which response status they exercise.
func (r OperationReference) Identity() OperationReference {
	r.Status = StatusAny
	r.Method = strings.ToUpper(r.Method)
	return r
}

// SameOperation reports whether both references point at the same operation,
// ignoring status.
func (r OperationReference) SameOperation(other OperationReference) bool {
	return r.Identity() == other.Identity()
}

// String renders the reference as "POST /pets -> 201 (createPet)".
func (r OperationReference) String() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(r.Method))
	b.WriteByte(' ')
	b.WriteString(r.Path)
	switch r.Status {
	case StatusAny:
	case StatusDefault:
		b.WriteString(" -> default")
	default:
		fmt.Fprintf(&b, " -> %d", r.Status)
	}
	if r.OperationID != "" {
		fmt.Fprintf(&b, " (%s)", r.OperationID)
	}
	return b.String()
}

// PathParameters returns the names of the {templated} segments of Path,
// in order of appearance.
func (r OperationReference) PathParameters() []string {
	var params []string
	for _, segment := range strings.Split(r.Path, "/") {
		if len(segment) > 2 && strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			params = append(params, segment[1:len(segment)-1])
		}
	}
	return params
}

// MatchesPath reports whether a concrete request path matches this
// reference's path template. Templated segments match any non-empty value.
// Query strings on the concrete path are ignored.
func (r OperationReference) MatchesPath(concrete string) bool {
	if i := strings.IndexByte(concrete, '?'); i >= 0 {
		concrete = concrete[:i]
	}
	want := strings.Split(strings.Trim(r.Path, "/"), "/")
	got := strings.Split(strings.Trim(concrete, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if strings.HasPrefix(want[i], "{") && strings.HasSuffix(want[i], "}") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

// Assertion binds a directive string (the matcher mini-language) to a value
// path. Order is significant: it is the order matchers run in.
type Assertion struct {
	Path      string `json:"path" yaml:"path"`
	Directive string `json:"directive" yaml:"directive"`
}

// AsyncSpec marks a scenario whose operation replies "accepted, poll later".
type AsyncSpec struct {
	// AcceptedStatus is the status that signals deferred completion. Default 202.
	AcceptedStatus int `json:"accepted_status,omitempty" yaml:"accepted_status,omitempty"`

	// LinkRel is the rel of the Link header pointing at the monitor. Default "related".
	LinkRel string `json:"link_rel,omitempty" yaml:"link_rel,omitempty"`
}

// Accepted returns the effective accepted status.
func (a *AsyncSpec) Accepted() int {
	if a == nil || a.AcceptedStatus == 0 {
		return http.StatusAccepted
	}
	return a.AcceptedStatus
}

// Rel returns the effective monitor link relation.
func (a *AsyncSpec) Rel() string {
	if a == nil || a.LinkRel == "" {
		return "related"
	}
	return a.LinkRel
}

// Scenario is one executable contract example: an operation, the request to
// send, the response the contract promises, and the assertions to check.
type Scenario struct {
	Name       string             `json:"name" yaml:"name"`
	Feature    string             `json:"feature,omitempty" yaml:"feature,omitempty"`
	Operation  OperationReference `json:"operation" yaml:"operation"`
	Request    HTTPRequest        `json:"request" yaml:"request"`
	Response   HTTPResponse       `json:"response" yaml:"response"`
	Assertions []Assertion        `json:"assertions,omitempty" yaml:"assertions,omitempty"`
	Async      *AsyncSpec         `json:"async,omitempty" yaml:"async,omitempty"`
}

// HTTPRequest is a transport-neutral request description.
type HTTPRequest struct {
	Method  string            `json:"method" yaml:"method"`
	Path    string            `json:"path" yaml:"path"`
	Query   map[string]string `json:"query,omitempty" yaml:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    any               `json:"body,omitempty" yaml:"body,omitempty"`
}

// Header returns a header value using case-insensitive name matching.
func (r HTTPRequest) Header(name string) (string, bool) {
	return lookupHeader(r.Headers, name)
}

// HTTPResponse is a transport-neutral response description.
type HTTPResponse struct {
	Status  int               `json:"status" yaml:"status"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    any               `json:"body,omitempty" yaml:"body,omitempty"`
}

// Header returns a header value using case-insensitive name matching.
func (r HTTPResponse) Header(name string) (string, bool) {
	return lookupHeader(r.Headers, name)
}

func lookupHeader(headers map[string]string, name string) (string, bool) {
	if v, ok := headers[name]; ok {
		return v, true
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
