// Package transport sends scenario requests over HTTP.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/roach88/linkage/internal/ir"
)

// Executor sends one request and returns its response.
type Executor interface {
	Execute(ctx context.Context, req ir.HTTPRequest) (ir.HTTPResponse, error)
}

// DefaultTimeout bounds one request when no client is supplied.
const DefaultTimeout = 30 * time.Second

// HTTPExecutor sends requests to BaseURL with Client.
//
// Request bodies that are not strings are sent as JSON. Response bodies
// are decoded as JSON when possible and kept as strings otherwise; an
// empty body is nil. Multi-valued response headers are joined with ", ".
type HTTPExecutor struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPExecutor returns an executor with a client limited to DefaultTimeout.
func NewHTTPExecutor(baseURL string) *HTTPExecutor {
	return &HTTPExecutor{BaseURL: baseURL, Client: &http.Client{Timeout: DefaultTimeout}}
}

// Execute implements Executor.
func (e *HTTPExecutor) Execute(ctx context.Context, req ir.HTTPRequest) (ir.HTTPResponse, error) {
	target, err := e.resolve(req)
	if err != nil {
		return ir.HTTPResponse{}, err
	}

	var body io.Reader
	contentType := ""
	switch b := req.Body.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
		contentType = "text/plain"
	case []byte:
		body = bytes.NewReader(b)
		contentType = "application/octet-stream"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return ir.HTTPResponse{}, fmt.Errorf("encode body for %s %s: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return ir.HTTPResponse{}, fmt.Errorf("build request %s %s: %w", method, req.Path, err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return ir.HTTPResponse{}, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return ir.HTTPResponse{}, fmt.Errorf("read response of %s %s: %w", method, req.Path, err)
	}

	resp := ir.HTTPResponse{Status: httpResp.StatusCode, Headers: flattenHeaders(httpResp.Header)}
	if len(bytes.TrimSpace(raw)) > 0 {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			resp.Body = decoded
		} else {
			resp.Body = string(raw)
		}
	}
	return resp, nil
}

func (e *HTTPExecutor) resolve(req ir.HTTPRequest) (string, error) {
	base, err := url.Parse(e.BaseURL)
	if err != nil {
		return "", fmt.Errorf("base url %q: %w", e.BaseURL, err)
	}
	ref, err := url.Parse(req.Path)
	if err != nil {
		return "", fmt.Errorf("request path %q: %w", req.Path, err)
	}
	target := base.ResolveReference(ref)
	if ref.Host == "" && ref.Path != "" {
		target.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
	}
	if len(req.Query) > 0 {
		q := target.Query()
		keys := make([]string, 0, len(req.Query))
		for k := range req.Query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			q.Set(k, req.Query[k])
		}
		target.RawQuery = q.Encode()
	}
	return target.String(), nil
}

func flattenHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}
