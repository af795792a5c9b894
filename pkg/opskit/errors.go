package opskit

import "errors"

// Service errors can be checked with errors.Is.
var (
	// ErrAlreadyStarted is returned when Start is called on a service that has left the new state.
	ErrAlreadyStarted = errors.New("opskit: already started")

	// ErrNotRunning is returned when Stop is called on a service that is not running.
	ErrNotRunning = errors.New("opskit: not running")

	// ErrShutdownTimeout is returned when the drain worker does not exit in time.
	ErrShutdownTimeout = errors.New("opskit: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("opskit: invalid configuration")
)
