// Package exception provides the custom error type used across the GridPulse
// pipelines. Errors carry the module they originated in plus retry/skip
// classification, so callers can distinguish transient fetch failures from
// structural ones.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrModelUnavailable indicates that the forecasting model artifact was not
// loaded at process start. Invocations that depend on it fail fast without
// retry; a human must fix the deployment.
var ErrModelUnavailable = errors.New("forecast model is not loaded")

// ErrInsufficientData indicates that a pipeline did not have enough history
// to run. It is a skippable condition: the run completes as a no-op.
var ErrInsufficientData = errors.New("insufficient data for pipeline run")

// PipelineError is a custom error type raised during pipeline processing.
// It holds the module where the error occurred, a message, the wrapped
// original error, and flags indicating whether it is retryable or skippable.
type PipelineError struct {
	// Module indicates where the error occurred (e.g., "ingest", "analysis").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether this error is retryable.
	isRetryable bool
	// isSkippable indicates whether this error is skippable.
	isSkippable bool
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewPipelineError creates a new PipelineError instance.
// module: the module where the error occurred.
// message: the error message.
// originalErr: the original error to wrap (may be nil).
// isSkippable, isRetryable: error classification flags.
func NewPipelineError(module, message string, originalErr error, isSkippable, isRetryable bool) *PipelineError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &PipelineError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  string(buf[:n]),
	}
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the wrapped original error, enabling errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable reports whether the error is classified as retryable.
func (e *PipelineError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable reports whether the error is classified as skippable.
func (e *PipelineError) IsSkippable() bool {
	return e.isSkippable
}

// IsRetryable reports whether err (or any error it wraps) is a retryable
// PipelineError.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	return false
}

// IsSkippable reports whether err (or any error it wraps) is a skippable
// PipelineError.
func IsSkippable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.IsSkippable()
	}
	return false
}
