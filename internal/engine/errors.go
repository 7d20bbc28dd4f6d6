package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a scenario failure that is not an assertion mismatch.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Scenario names the affected scenario.
	Scenario string

	// Causes lists detail lines, such as one per malformed field.
	Causes []string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeAssertionParse indicates a directive that does not parse.
	ErrCodeAssertionParse RuntimeErrorCode = "ASSERTION_PARSE"

	// ErrCodeLinkResolution indicates a link whose producer values are unavailable.
	ErrCodeLinkResolution RuntimeErrorCode = "LINK_RESOLUTION"

	// ErrCodeTransport indicates the request could not be sent.
	ErrCodeTransport RuntimeErrorCode = "TRANSPORT"

	// ErrCodeAsyncStopped indicates a deferred response that did not resolve.
	ErrCodeAsyncStopped RuntimeErrorCode = "ASYNC_STOPPED"

	// ErrCodeStatusMismatch indicates a response status other than the declared one.
	ErrCodeStatusMismatch RuntimeErrorCode = "STATUS_MISMATCH"

	// ErrCodeQuotaExceeded indicates a scenario that needed more runs than allowed.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Scenario != "" {
		return fmt.Sprintf("%s: %s (scenario=%s)", e.Code, e.Message, e.Scenario)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newRuntimeError(code RuntimeErrorCode, scenario, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Scenario: scenario, Message: fmt.Sprintf(format, args...)}
}

// IsQuotaError reports whether err is a quota failure. Matches both
// RuntimeError with ErrCodeQuotaExceeded and RunsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var rx *RunsExceededError
	return errors.As(err, &rx)
}

// IsLinkError reports whether err is a link resolution failure.
func IsLinkError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeLinkResolution
}
