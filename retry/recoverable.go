package retry

import (
	"context"
	"errors"
	"net"
	"strings"
)

// RecoverableError lets an error declare whether retrying can help.
type RecoverableError interface {
	error
	IsRecoverable() bool
}

// IsRecoverable reports whether err is worth retrying. Errors implementing
// RecoverableError decide for themselves; otherwise network timeouts and a
// few well-known transient failure messages are treated as recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var recoverable RecoverableError
	if errors.As(err, &recoverable) {
		return recoverable.IsRecoverable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporarily unavailable",
	"too many connections",
	"deadlock detected",
}

type recoverableError struct {
	err error
}

func (e *recoverableError) Error() string       { return e.err.Error() }
func (e *recoverableError) IsRecoverable() bool { return true }
func (e *recoverableError) Unwrap() error       { return e.err }

// NewRecoverableError marks err as retryable.
func NewRecoverableError(err error) RecoverableError {
	return &recoverableError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string       { return e.err.Error() }
func (e *permanentError) IsRecoverable() bool { return false }
func (e *permanentError) Unwrap() error       { return e.err }

// NewPermanentError marks err as not retryable, overriding the heuristics.
func NewPermanentError(err error) RecoverableError {
	return &permanentError{err: err}
}
