// Package check holds the FlightPath error type and the Ensure precondition
// helper used throughout the math and recorder packages.
package check

import (
	"fmt"
	"runtime"
	"strings"
)

// Error is returned when a FlightPath precondition or data check fails. It
// records the call stack at the point of creation.
type Error struct {
	msg   string
	cause error
	pcs   []uintptr
}

// New returns an *Error with the given message.
func New(msg string) *Error {
	return newError(msg, 3)
}

// Errorf returns an *Error with a formatted message.
func Errorf(format string, args ...any) *Error {
	return newError(fmt.Sprintf(format, args...), 3)
}

// Wrapf returns an *Error with a formatted message that carries err as its
// cause.
func Wrapf(err error, format string, args ...any) *Error {
	e := newError(fmt.Sprintf(format, args...), 3)
	e.cause = err
	return e
}

func newError(msg string, skip int) *Error {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	return &Error{msg: msg, pcs: pcs[:n]}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// Stack renders the captured call stack, one "function file:line" per line.
func (e *Error) Stack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.pcs)
	for {
		f, more := frames.Next()
		if f.Function != "" {
			fmt.Fprintf(&sb, "%s %s:%d\n", f.Function, f.File, f.Line)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// Ensure returns nil when predicate holds and an *Error with the formatted
// message otherwise.
func Ensure(predicate bool, format string, args ...any) error {
	if predicate {
		return nil
	}
	return newError(fmt.Sprintf(format, args...), 3)
}
