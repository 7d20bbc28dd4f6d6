package compiler

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/linkage/internal/ir"
)

// Contract is the compiled form of a CUE contract: the declared operations,
// the links between them and the executable scenarios, each in declaration
// order.
type Contract struct {
	Operations   map[string]ir.OperationReference `json:"operations"`
	OperationIDs []string                         `json:"operation_ids"`
	Links        []ir.Link                        `json:"links"`
	Scenarios    []ir.Scenario                    `json:"scenarios"`
}

// CompileContract parses a CUE value into a Contract.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the contract root, e.g.:
//
//	operation: createPet: {method: "POST", path: "/pets"}
//	operation: getPet: {method: "GET", path: "/pets/{petId}"}
//
//	link: GetCreatedPet: {
//		producer: {operation: "createPet", status: 201}
//		consumer: {operation: "getPet", status: 200}
//		parameters: petId: "$response.body#/id"
//	}
//
//	scenario: [{
//		name: "create pet", operation: "createPet", status: 201
//		request: body: {name: "Rex"}
//		assertions: [{path: "/name", directive: "exact: Rex"}]
//	}]
func CompileContract(v cue.Value) (*Contract, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	c := &Contract{Operations: make(map[string]ir.OperationReference)}

	if err := c.parseOperations(v); err != nil {
		return nil, err
	}
	if err := c.parseLinks(v); err != nil {
		return nil, err
	}
	if err := c.parseScenarios(v); err != nil {
		return nil, err
	}
	return c, nil
}

// Operation returns the declared operation with the given status.
func (c *Contract) Operation(id string, status int) (ir.OperationReference, bool) {
	ref, ok := c.Operations[id]
	if !ok {
		return ir.OperationReference{}, false
	}
	ref.Status = status
	return ref, true
}

func (c *Contract) parseOperations(v cue.Value) error {
	opsVal := v.LookupPath(cue.ParsePath("operation"))
	if !opsVal.Exists() {
		return &CompileError{
			Field:   "operation",
			Message: "at least one operation is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := opsVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		id := strings.Trim(iter.Label(), `"`)
		opVal := iter.Value()

		method, err := requiredString(opVal, "method", "operation."+id)
		if err != nil {
			return err
		}
		path, err := requiredString(opVal, "path", "operation."+id)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(path, "/") {
			return &CompileError{
				Field:   "operation." + id + ".path",
				Message: fmt.Sprintf("path %q must start with /", path),
				Pos:     opVal.LookupPath(cue.ParsePath("path")).Pos(),
			}
		}

		c.Operations[id] = ir.NewOperationReference(method, path, ir.StatusAny, id)
		c.OperationIDs = append(c.OperationIDs, id)
	}
	return nil
}

func (c *Contract) parseLinks(v cue.Value) error {
	linksVal := v.LookupPath(cue.ParsePath("link"))
	if !linksVal.Exists() {
		return nil
	}
	iter, err := linksVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := strings.Trim(iter.Label(), `"`)
		linkVal := iter.Value()
		field := "link." + name

		producer, err := c.operationRef(linkVal.LookupPath(cue.ParsePath("producer")), field+".producer")
		if err != nil {
			return err
		}
		consumer, err := c.operationRef(linkVal.LookupPath(cue.ParsePath("consumer")), field+".consumer")
		if err != nil {
			return err
		}

		var params map[string]any
		if pv := linkVal.LookupPath(cue.ParsePath("parameters")); pv.Exists() {
			if err := decodeJSON(pv, &params); err != nil {
				return err
			}
		}
		var body any
		if bv := linkVal.LookupPath(cue.ParsePath("requestBody")); bv.Exists() {
			if err := decodeJSON(bv, &body); err != nil {
				return err
			}
		}

		link, err := ir.NewLink(name, producer, consumer, params, body)
		if err != nil {
			return &CompileError{Field: field, Message: err.Error(), Pos: linkVal.Pos()}
		}
		if dv := linkVal.LookupPath(cue.ParsePath("description")); dv.Exists() {
			if link.Description, err = dv.String(); err != nil {
				return formatCUEError(err)
			}
		}
		c.Links = append(c.Links, link)
	}
	return nil
}

// operationRef resolves {operation: "<id>", status: <int|"default">}.
func (c *Contract) operationRef(v cue.Value, field string) (ir.OperationReference, error) {
	if !v.Exists() {
		return ir.OperationReference{}, &CompileError{Field: field, Message: "is required"}
	}
	id, err := requiredString(v, "operation", field)
	if err != nil {
		return ir.OperationReference{}, err
	}
	status, err := parseStatus(v, field)
	if err != nil {
		return ir.OperationReference{}, err
	}
	ref, ok := c.Operation(id, status)
	if !ok {
		return ir.OperationReference{}, &CompileError{
			Field:   field + ".operation",
			Message: fmt.Sprintf("unknown operation %q", id),
			Pos:     v.Pos(),
		}
	}
	return ref, nil
}

func (c *Contract) parseScenarios(v cue.Value) error {
	scVal := v.LookupPath(cue.ParsePath("scenario"))
	if !scVal.Exists() {
		return nil
	}
	list, err := scVal.List()
	if err != nil {
		return formatCUEError(err)
	}
	for i := 0; list.Next(); i++ {
		sv := list.Value()
		field := fmt.Sprintf("scenario[%d]", i)

		name, err := requiredString(sv, "name", field)
		if err != nil {
			return err
		}
		field = fmt.Sprintf("scenario[%q]", name)

		opID, err := requiredString(sv, "operation", field)
		if err != nil {
			return err
		}
		status, err := parseStatus(sv, field)
		if err != nil {
			return err
		}
		ref, ok := c.Operation(opID, status)
		if !ok {
			return &CompileError{
				Field:   field + ".operation",
				Message: fmt.Sprintf("unknown operation %q", opID),
				Pos:     sv.Pos(),
			}
		}

		var raw struct {
			Feature    string          `json:"feature"`
			Request    ir.HTTPRequest  `json:"request"`
			Response   ir.HTTPResponse `json:"response"`
			Assertions []ir.Assertion  `json:"assertions"`
			Async      *struct {
				AcceptedStatus int    `json:"acceptedStatus"`
				LinkRel        string `json:"linkRel"`
			} `json:"async"`
		}
		if err := decodeJSON(sv, &raw); err != nil {
			return err
		}

		s := ir.Scenario{
			Name:       name,
			Feature:    raw.Feature,
			Operation:  ref,
			Request:    raw.Request,
			Response:   raw.Response,
			Assertions: raw.Assertions,
		}
		if s.Request.Method == "" {
			s.Request.Method = ref.Method
		}
		if s.Request.Path == "" {
			s.Request.Path = ref.Path
		}
		if s.Response.Status == 0 && status > 0 {
			s.Response.Status = status
		}
		if raw.Async != nil {
			s.Async = &ir.AsyncSpec{AcceptedStatus: raw.Async.AcceptedStatus, LinkRel: raw.Async.LinkRel}
		}
		c.Scenarios = append(c.Scenarios, s)
	}
	return nil
}

// parseStatus reads an optional "status" field: an integer or "default".
// Absent means any status.
func parseStatus(v cue.Value, field string) (int, error) {
	sv := v.LookupPath(cue.ParsePath("status"))
	if !sv.Exists() {
		return ir.StatusAny, nil
	}
	if sv.IncompleteKind() == cue.StringKind {
		s, err := sv.String()
		if err != nil {
			return 0, formatCUEError(err)
		}
		if s != "default" {
			return 0, &CompileError{
				Field:   field + ".status",
				Message: fmt.Sprintf("invalid status %q, must be an integer or \"default\"", s),
				Pos:     sv.Pos(),
			}
		}
		return ir.StatusDefault, nil
	}
	n, err := sv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	if n < 100 || n > 599 {
		return 0, &CompileError{
			Field:   field + ".status",
			Message: fmt.Sprintf("status %d out of range 100-599", n),
			Pos:     sv.Pos(),
		}
	}
	return int(n), nil
}

func requiredString(v cue.Value, name, field string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(name))
	if !sv.Exists() {
		return "", &CompileError{
			Field:   field + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if strings.TrimSpace(s) == "" {
		return "", &CompileError{
			Field:   field + "." + name,
			Message: name + " must not be empty",
			Pos:     sv.Pos(),
		}
	}
	return s, nil
}

// decodeJSON converts a concrete CUE value to Go through its JSON form so
// numbers come out as float64 like every other decoded body.
func decodeJSON(v cue.Value, out any) error {
	data, err := v.MarshalJSON()
	if err != nil {
		return formatCUEError(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &CompileError{Field: "json", Message: err.Error(), Pos: v.Pos()}
	}
	return nil
}
