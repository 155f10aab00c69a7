package learning

import "errors"

var (
	// ErrInvalidMetrics is returned for usage records rejected
	// before any state mutation
	ErrInvalidMetrics = errors.New("invalid usage metrics")

	// ErrRecording is returned when the usage journal rejects a
	// write. The tool invocation itself already completed; the
	// error is surfaced but does not invalidate it.
	ErrRecording = errors.New("usage recording failed")
)
