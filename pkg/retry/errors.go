package retry

import (
	"fmt"

	"github.com/metricspider/metricspider/pkg/failure"
)

type ErrorCause string

const (
	ErrNegativeAttempts  ErrorCause = "negative attempt budget"
	ErrExhaustedAttempts ErrorCause = "exhausted attempts"
	ErrWaitCapExceeded   ErrorCause = "backoff wait exceeds cap"
)

type RetryError struct {
	Message  string
	Cause    ErrorCause
	LastKind failure.Kind
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry error: %s, %s", e.Cause, e.Message)
}

func (e *RetryError) Kind() failure.Kind {
	return e.LastKind
}

func (e *RetryError) Severity() failure.Severity {
	// Exhaustion and cap abandonment are recoverable at coordinator level:
	// the batch continues, only this target fails or is skipped.
	return failure.SeverityRecoverable
}

// Abandoned reports whether the operation was given up because a backoff
// wait would have exceeded the configured cap.
func (e *RetryError) Abandoned() bool {
	return e.Cause == ErrWaitCapExceeded
}

// Is allows errors.Is to match RetryError types
func (e *RetryError) Is(target error) bool {
	_, ok := target.(*RetryError)
	return ok
}
