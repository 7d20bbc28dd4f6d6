package matcher

import (
	"fmt"
	"strings"

	"github.com/roach88/linkage/internal/ir"
)

// ValueOperator reads the value at an assertion path.
type ValueOperator interface {
	Get(path string) (any, error)
}

// PairOperator resolves assertion paths against one request/response pair.
//
// Path forms:
//
//	/name                   response body pointer
//	response.body[/ptr]     response body, optionally at a pointer
//	request.body[/ptr]      request body, optionally at a pointer
//	response.header.Name    response header (case-insensitive)
//	request.header.Name     request header (case-insensitive)
//	request.query.name      query parameter
//	request.path            request path
//	response.status         response status code
type PairOperator struct {
	Request  ir.HTTPRequest
	Response ir.HTTPResponse
}

// Get implements ValueOperator.
func (p PairOperator) Get(path string) (any, error) {
	v, err := p.get(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't extract value at path %s: %w", path, err)
	}
	return v, nil
}

func (p PairOperator) get(path string) (any, error) {
	switch {
	case path == "" || strings.HasPrefix(path, "/"):
		return ir.ExtractPointer(p.Response.Body, path)
	case path == "response.status":
		return float64(p.Response.Status), nil
	case path == "request.path":
		return p.Request.Path, nil
	}

	if rest, ok := strings.CutPrefix(path, "response.body"); ok {
		return bodyAt(p.Response.Body, rest)
	}
	if rest, ok := strings.CutPrefix(path, "request.body"); ok {
		return bodyAt(p.Request.Body, rest)
	}
	if name, ok := strings.CutPrefix(path, "response.header."); ok {
		if v, found := p.Response.Header(name); found {
			return v, nil
		}
		return nil, fmt.Errorf("no response header %q", name)
	}
	if name, ok := strings.CutPrefix(path, "request.header."); ok {
		if v, found := p.Request.Header(name); found {
			return v, nil
		}
		return nil, fmt.Errorf("no request header %q", name)
	}
	if name, ok := strings.CutPrefix(path, "request.query."); ok {
		if v, found := p.Request.Query[name]; found {
			return v, nil
		}
		return nil, fmt.Errorf("no query parameter %q", name)
	}
	return nil, fmt.Errorf("unsupported path syntax")
}

func bodyAt(body any, rest string) (any, error) {
	if rest != "" && !strings.HasPrefix(rest, "/") {
		return nil, fmt.Errorf("unsupported path syntax")
	}
	if rest == "" && body == nil {
		return nil, fmt.Errorf("body is empty")
	}
	return ir.ExtractPointer(body, rest)
}
