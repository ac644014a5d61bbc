// Package clierr carries explicit process exit codes on errors so main
// stays dumb: commands return an ExitError, main prints it and exits
// with its code.
package clierr

import (
	"errors"
	"fmt"
)

// Exit codes. Healthy runs exit 0; degraded and failed reflect the
// diagnostic outcome; fatal covers engine errors raised before or
// instead of a report (bad flags, unloadable catalog).
const (
	CodeDegraded = 1
	CodeFailed   = 2
	CodeFatal    = 3
)

// ExitError is an error with an explicit process exit code. It supports
// wrapping via Unwrap so errors.Is/As work as expected.
type ExitError struct {
	code  int
	msg   string
	cause error
}

func (e *ExitError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %v", e.msg, e.cause)
}

func (e *ExitError) ExitCode() int { return e.code }

func (e *ExitError) Unwrap() error { return e.cause }

// New creates an ExitError with a message.
func New(code int, msg string) error {
	return &ExitError{code: normalize(code), msg: msg}
}

// Newf is a formatted variant.
func Newf(code int, format string, args ...any) error {
	return &ExitError{code: normalize(code), msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an ExitError that wraps an underlying cause.
func Wrap(code int, msg string, cause error) error {
	if cause == nil {
		return New(code, msg)
	}
	return &ExitError{code: normalize(code), msg: msg, cause: cause}
}

// ExitCodeOf extracts an exit code from any error. Errors without one
// are engine faults and map to CodeFatal.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return CodeFatal
}

func normalize(code int) int {
	// Exit code 0 means success; errors should never be 0.
	if code <= 0 {
		return CodeFatal
	}
	return code
}
