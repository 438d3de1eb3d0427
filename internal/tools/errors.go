package tools

import (
	"errors"
	"fmt"
)

// Reason classifies why a source or strategy produced no candidate.
type Reason string

const (
	ReasonNetwork         Reason = "network_failure"
	ReasonExtraction      Reason = "extraction_failure"
	ReasonMissingRuntime  Reason = "missing_runtime_capability"
	ReasonVersionMismatch Reason = "version_mismatch"
	ReasonNotFound        Reason = "not_found"
	ReasonCommand         Reason = "external_command_failure"
	ReasonUnsupported     Reason = "unsupported"
)

// Error is a failure carrying a reason, the captured stderr of the process
// that caused it (if any) and an optional cause.
type Error struct {
	Reason  Reason
	Message string
	Stderr  string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(reason Reason, format string, args ...any) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func wrapError(reason Reason, cause error, format string, args ...any) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ReasonOf extracts the reason from err, or "" if err carries none.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// stderrOf returns the stderr captured alongside err.
func stderrOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stderr
	}
	return ""
}
