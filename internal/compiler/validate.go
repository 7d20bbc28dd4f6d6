package compiler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/roach88/linkage/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Scenario errors (E101-E109)
	ErrDuplicateScenario      = "E101" // scenario names must be unique
	ErrEmptyAssertionPath     = "E102" // assertion without a path
	ErrEmptyDirective         = "E103" // assertion without a directive
	ErrUnresolvedPathParam    = "E104" // {param} left in request path with no link to fill it
	ErrStatusMismatch         = "E105" // response status differs from the operation status
	ErrMissingMonitorScenario = "E106" // async scenario with no GET sibling in its feature

	// Link errors (E110-E119)
	ErrDuplicateLink = "E110" // link names must be unique
)

// ValidationError represents a contract validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled contract for authoring mistakes that CUE
// cannot catch on its own. Returns all errors found (does not fail-fast).
func Validate(c *Contract) []ValidationError {
	var errs []ValidationError

	linkNames := make(map[string]bool)
	linkedConsumers := make(map[ir.OperationReference]bool)
	for i, l := range c.Links {
		if linkNames[l.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("links[%d].name", i),
				Message: fmt.Sprintf("duplicate link name: %q", l.Name),
				Code:    ErrDuplicateLink,
			})
		}
		linkNames[l.Name] = true
		linkedConsumers[l.ForOperation.Identity()] = true
	}

	names := make(map[string]bool)
	for i, s := range c.Scenarios {
		field := fmt.Sprintf("scenarios[%d]", i)

		if names[s.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate scenario name: %q", s.Name),
				Code:    ErrDuplicateScenario,
			})
		}
		names[s.Name] = true

		for j, a := range s.Assertions {
			if strings.TrimSpace(a.Path) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.assertions[%d].path", field, j),
					Message: "assertion path is required",
					Code:    ErrEmptyAssertionPath,
				})
			}
			if strings.TrimSpace(a.Directive) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.assertions[%d].directive", field, j),
					Message: "assertion directive is required",
					Code:    ErrEmptyDirective,
				})
			}
		}

		if strings.Contains(s.Request.Path, "{") && !linkedConsumers[s.Operation.Identity()] {
			errs = append(errs, ValidationError{
				Field:   field + ".request.path",
				Message: fmt.Sprintf("path %q has template parameters but no link supplies them", s.Request.Path),
				Code:    ErrUnresolvedPathParam,
			})
		}

		if want := s.Operation.Status; s.Async == nil && want > 0 && s.Response.Status > 0 && s.Response.Status != want {
			errs = append(errs, ValidationError{
				Field:   field + ".response.status",
				Message: fmt.Sprintf("response status %d differs from operation status %d", s.Response.Status, want),
				Code:    ErrStatusMismatch,
			})
		}

		if s.Async != nil && !hasMonitorSibling(c.Scenarios, s) {
			errs = append(errs, ValidationError{
				Field:   field + ".async",
				Message: fmt.Sprintf("no GET scenario in feature %q can act as monitor", s.Feature),
				Code:    ErrMissingMonitorScenario,
			})
		}
	}

	return errs
}

func hasMonitorSibling(all []ir.Scenario, s ir.Scenario) bool {
	for _, other := range all {
		if other.Name != s.Name && other.Feature == s.Feature && strings.EqualFold(other.Operation.Method, http.MethodGet) {
			return true
		}
	}
	return false
}
