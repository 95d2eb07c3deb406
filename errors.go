package graphflow

import (
	"context"
	"errors"
	"fmt"
)

// Error type constants for classification and matching
const (
	// ErrorTypeBuild indicates the workflow graph failed validation and no
	// run can start.
	ErrorTypeBuild = "build_error"

	// ErrorTypeUnsupportedMessage indicates a message was delivered to an
	// executor with no handler registered for its runtime type.
	ErrorTypeUnsupportedMessage = "unsupported_message"

	// ErrorTypePortMismatch indicates an external response did not match the
	// port of the outstanding request it was addressed to.
	ErrorTypePortMismatch = "port_mismatch"

	// ErrorTypeUnknownRequest indicates an external response referenced a
	// request ID with no outstanding request.
	ErrorTypeUnknownRequest = "unknown_request"

	// ErrorTypeExecutorFailed indicates an executor handler returned an error
	// and the run was faulted.
	ErrorTypeExecutorFailed = "executor_failed"

	// ErrorTypeInvalidOperation indicates a run handle was used in a state
	// that does not permit the requested operation, such as resuming a run
	// that is not suspended.
	ErrorTypeInvalidOperation = "invalid_operation"

	// ErrorTypeCheckpoint indicates a checkpoint commit or lookup failed. A
	// failed commit means the step is not durably checkpointed and resuming
	// from it is not guaranteed.
	ErrorTypeCheckpoint = "checkpoint_error"

	// ErrorTypeCanceled indicates the run was canceled before completion.
	ErrorTypeCanceled = "canceled"
)

// WorkflowError represents a structured error with classification.
// It supports Go's error wrapping patterns with Unwrap() method.
type WorkflowError struct {
	Type    string      `json:"type"`
	Cause   string      `json:"cause"`
	Details interface{} `json:"details,omitempty"`
	Wrapped error       `json:"-"` // Original error being wrapped
}

// Error implements the error interface
func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Cause)
}

// Unwrap implements the error unwrapping interface for Go's errors.Is and errors.As
func (e *WorkflowError) Unwrap() error {
	return e.Wrapped
}

// NewWorkflowError creates a new WorkflowError with the specified type and cause.
func NewWorkflowError(errorType, cause string) *WorkflowError {
	return &WorkflowError{Type: errorType, Cause: cause}
}

// buildError reports a graph validation failure discovered by Build.
func buildError(format string, args ...any) error {
	return &WorkflowError{
		Type:  ErrorTypeBuild,
		Cause: fmt.Sprintf(format, args...),
	}
}

// ExecutorError carries the identity of the executor whose handler failed.
type ExecutorError struct {
	ExecutorID string
	Err        error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("executor %q failed: %v", e.ExecutorID, e.Err)
}

func (e *ExecutorError) Unwrap() error {
	return e.Err
}

// ClassifyError attempts to classify a regular error into a WorkflowError
func ClassifyError(err error) *WorkflowError {
	// If the error is already a WorkflowError, return it
	var workflowError *WorkflowError
	if errors.As(err, &workflowError) {
		return workflowError
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &WorkflowError{
			Type:    ErrorTypeCanceled,
			Cause:   err.Error(),
			Wrapped: err,
		}
	}
	var executorError *ExecutorError
	if errors.As(err, &executorError) {
		return &WorkflowError{
			Type:    ErrorTypeExecutorFailed,
			Cause:   err.Error(),
			Details: executorError.ExecutorID,
			Wrapped: err,
		}
	}
	// Unknown errors default to executor failures
	return &WorkflowError{
		Type:    ErrorTypeExecutorFailed,
		Cause:   err.Error(),
		Wrapped: err,
	}
}

// MatchesErrorType checks if an error matches a specified error type
func MatchesErrorType(err error, errorType string) bool {
	return ClassifyError(err).Type == errorType
}
