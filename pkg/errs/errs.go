// Package errs defines the errno-style error taxonomy shared by opskit packages.
//
// Every failure carries one of four codes and a short static message:
//
//   - [ErrNoMemory]: allocation or capacity failure
//   - [ErrInvalid]: invalid argument, invalid state transition or oversized request
//   - [ErrAgain]: operation temporarily unavailable (disabled check, full buffer)
//   - [ErrFault]: clock read failure
//
// Errors returned by opskit unwrap to the code, so callers test them with errors.Is:
//
//	if err := m.Transition(lifecycle.StateRunning, at); errors.Is(err, errs.ErrInvalid) {
//	    // transition rejected, nothing was mutated
//	}
package errs

import (
	"errors"
	"syscall"
)

// Error codes. They are plain errno values so they compare equal to what the
// operating system would report for the same condition.
var (
	ErrNoMemory error = syscall.ENOMEM
	ErrInvalid  error = syscall.EINVAL
	ErrAgain    error = syscall.EAGAIN
	ErrFault    error = syscall.EFAULT
)

// Error is a coded failure with a static message.
type Error struct {
	Code syscall.Errno
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.Error()
	}
	return e.Msg + ": " + e.Code.Error()
}

// Unwrap exposes the code for errors.Is.
func (e *Error) Unwrap() error { return e.Code }

// NoMemory returns an ENOMEM error.
func NoMemory(msg string) error { return &Error{Code: syscall.ENOMEM, Msg: msg} }

// Invalid returns an EINVAL error.
func Invalid(msg string) error { return &Error{Code: syscall.EINVAL, Msg: msg} }

// Again returns an EAGAIN error.
func Again(msg string) error { return &Error{Code: syscall.EAGAIN, Msg: msg} }

// Fault returns an EFAULT error.
func Fault(msg string) error { return &Error{Code: syscall.EFAULT, Msg: msg} }

// CodeOf extracts the errno carried by err, or 0 when err is nil or uncoded.
func CodeOf(err error) syscall.Errno {
	var code syscall.Errno
	if errors.As(err, &code) {
		return code
	}
	return 0
}
