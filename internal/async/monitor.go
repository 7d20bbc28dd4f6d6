package async

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/roach88/linkage/internal/ir"
)

const monitorSchemaID = "https://linkage.local/schemas/monitor-result.json"

// MonitorResult is the body a monitor endpoint returns. A nil Response
// means the operation is still pending.
type MonitorResult struct {
	Request  *MonitorRequest  `json:"request,omitempty"`
	Response *MonitorResponse `json:"response,omitempty"`
}

// MonitorRequest echoes the request the monitor is tracking.
type MonitorRequest struct {
	Method  string            `json:"method" jsonschema:"minLength=1"`
	Path    string            `json:"path" jsonschema:"minLength=1"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// MonitorResponse is the final response of the tracked operation.
type MonitorResponse struct {
	Status  int               `json:"status" jsonschema:"minimum=100,maximum=599"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// Pending reports whether the monitored operation has not finished.
func (m MonitorResult) Pending() bool { return m.Response == nil }

// MonitorSchema returns the JSON Schema document for MonitorResult.
func MonitorSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.AllowAdditionalProperties = true
	s := r.Reflect(&MonitorResult{})
	s.ID = monitorSchemaID
	s.Title = "Monitor result"
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal monitor schema: %w", err)
	}
	return data, nil
}

var compiledMonitor = sync.OnceValues(func() (*sjsonschema.Schema, error) {
	data, err := MonitorSchema()
	if err != nil {
		return nil, err
	}
	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal monitor schema: %w", err)
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource(monitorSchemaID, doc); err != nil {
		return nil, fmt.Errorf("add monitor schema: %w", err)
	}
	return c.Compile(monitorSchemaID)
})

// DecodeMonitorResult validates body against the monitor schema and
// decodes it. Every malformed field is reported, one message each.
func DecodeMonitorResult(body any) (MonitorResult, []string, error) {
	sch, err := compiledMonitor()
	if err != nil {
		return MonitorResult{}, nil, err
	}
	if s, ok := body.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return MonitorResult{}, []string{"body: not a JSON document"}, nil
		}
		body = decoded
	}
	data, err := ir.MarshalCanonical(body)
	if err != nil {
		return MonitorResult{}, []string{"body: " + err.Error()}, nil
	}
	inst, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return MonitorResult{}, []string{"body: " + err.Error()}, nil
	}

	if err := sch.Validate(inst); err != nil {
		var ve *sjsonschema.ValidationError
		if !errors.As(err, &ve) {
			return MonitorResult{}, []string{err.Error()}, nil
		}
		var problems []string
		for _, cause := range flattenValidationErrors(ve) {
			problems = append(problems, fmt.Sprintf("/%s: %v", strings.Join(cause.InstanceLocation, "/"), cause.ErrorKind))
		}
		return MonitorResult{}, problems, nil
	}

	var out MonitorResult
	if err := json.Unmarshal(data, &out); err != nil {
		return MonitorResult{}, []string{"body: " + err.Error()}, nil
	}
	return out, nil, nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}
