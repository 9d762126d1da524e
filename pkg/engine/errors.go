package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an error for the pipeline's
// propagation policy: input errors abort the run before dispatch, everything
// else is captured as data and routed through the retry machinery.
type ErrorClass string

const (
	// ErrorClassInput indicates malformed upstream input (e.g. a scene
	// with zero mechanic choices). Fatal: the run aborts before dispatch.
	ErrorClassInput ErrorClass = "input"

	// ErrorClassWorker indicates a failure reported by a unit worker.
	// Recoverable via targeted retry of that unit only.
	ErrorClassWorker ErrorClass = "worker"

	// ErrorClassTimeout indicates a worker exceeded its per-unit timeout.
	// Recoverable via targeted retry.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassCanceled indicates the enclosing run was cancelled.
	ErrorClassCanceled ErrorClass = "canceled"

	// ErrorClassInternal indicates a bug or an unrecoverable engine fault.
	ErrorClassInternal ErrorClass = "internal"
)

// PipelineError represents a classified error with unit and phase context.
type PipelineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Key is the unit key the error relates to, if applicable.
	Key UnitKey `json:"key,omitempty"`

	// Phase is the pipeline phase during which the error occurred.
	Phase Phase `json:"phase,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	switch {
	case e.Key != "" && e.Phase != "":
		return fmt.Sprintf("[%s] %s (key=%s, phase=%s)%s",
			e.Class, e.Message, e.Key, e.Phase, e.unwrapSuffix())
	case e.Key != "":
		return fmt.Sprintf("[%s] %s (key=%s)%s", e.Class, e.Message, e.Key, e.unwrapSuffix())
	default:
		return fmt.Sprintf("[%s] %s%s", e.Class, e.Message, e.unwrapSuffix())
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

func (e *PipelineError) unwrapSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewInputError creates a fatal input error.
func NewInputError(message string, err error) *PipelineError {
	return &PipelineError{Class: ErrorClassInput, Message: message, Err: err}
}

// NewWorkerError creates a recoverable worker error.
func NewWorkerError(message string, err error) *PipelineError {
	return &PipelineError{Class: ErrorClassWorker, Message: message, Err: err}
}

// NewTimeoutError creates a recoverable timeout error.
func NewTimeoutError(message string, err error) *PipelineError {
	return &PipelineError{Class: ErrorClassTimeout, Message: message, Err: err}
}

// NewCanceledError creates a cancellation error.
func NewCanceledError(message string, err error) *PipelineError {
	return &PipelineError{Class: ErrorClassCanceled, Message: message, Err: err}
}

// NewInternalError creates an internal engine error.
func NewInternalError(message string, err error) *PipelineError {
	return &PipelineError{Class: ErrorClassInternal, Message: message, Err: err}
}

// WithKey adds unit key context to an error.
func (e *PipelineError) WithKey(key UnitKey) *PipelineError {
	e.Key = key
	return e
}

// WithPhase adds phase context to an error.
func (e *PipelineError) WithPhase(phase Phase) *PipelineError {
	e.Phase = phase
	return e
}

// WithCode adds an error code to an error.
func (e *PipelineError) WithCode(code string) *PipelineError {
	e.Code = code
	return e
}

// IsInput returns true if the error is classified as an input error.
func IsInput(err error) bool {
	var e *PipelineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassInput
	}
	return false
}

// IsTimeout returns true if the error is classified as a timeout.
func IsTimeout(err error) bool {
	var e *PipelineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassTimeout
	}
	return false
}

// IsCanceled returns true if the error is classified as a cancellation.
func IsCanceled(err error) bool {
	var e *PipelineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassCanceled
	}
	return false
}

// IsRecoverable returns true for errors the retry router may act on.
// Worker failures and timeouts are recoverable; input, cancellation and
// internal errors are not.
func IsRecoverable(err error) bool {
	var e *PipelineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassWorker || e.Class == ErrorClassTimeout
	}
	return false
}

// ClassifyFailure maps a failed worker result to a classified error. The
// dispatcher reports timeouts and cancellations with fixed error strings;
// everything else is an ordinary worker failure.
func ClassifyFailure(result WorkerResult) *PipelineError {
	switch result.Error {
	case "timeout":
		return NewTimeoutError("worker timed out", nil).
			WithKey(result.Key).WithCode(ErrCodeWorkerTimeout)
	case "cancelled":
		return NewCanceledError("worker cancelled", nil).
			WithKey(result.Key).WithCode(ErrCodeRunCancelled)
	default:
		return NewWorkerError(result.Error, nil).
			WithKey(result.Key).WithCode(ErrCodeWorkerFailed)
	}
}

// Common error codes.
const (
	ErrCodeEmptyConcept  = "EMPTY_CONCEPT"
	ErrCodeEmptyScene    = "EMPTY_SCENE"
	ErrCodeBadItemCount  = "BAD_ITEM_COUNT"
	ErrCodeWorkerTimeout = "WORKER_TIMEOUT"
	ErrCodeWorkerFailed  = "WORKER_FAILED"
	ErrCodeRunCancelled  = "RUN_CANCELLED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)
