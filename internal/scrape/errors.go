package scrape

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/metricspider/metricspider/pkg/failure"
)

var (
	ErrPlatformAlreadyRegistered = errors.New("platform already registered")
	ErrPlatformUnknown           = errors.New("unknown platform")
)

type ScrapeErrorCause string

const (
	ErrCauseTimeout          ScrapeErrorCause = "timeout"
	ErrCauseNetworkFailure   ScrapeErrorCause = "network issues"
	ErrCauseTooManyRequests  ScrapeErrorCause = "too many requests"
	ErrCauseAccountNotFound  ScrapeErrorCause = "account not found"
	ErrCausePrivateAccount   ScrapeErrorCause = "private or unauthorized account"
	ErrCauseAuthFailure      ScrapeErrorCause = "authentication failure"
	ErrCauseContentStructure ScrapeErrorCause = "unexpected content structure"
	ErrCauseServerFailure    ScrapeErrorCause = "5xx"
)

type ScrapeError struct {
	Message   string
	Cause     ScrapeErrorCause
	ErrKind   failure.Kind
	RetryHint time.Duration
	hasHint   bool
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape error: %s: %s", e.Cause, e.Message)
}

func (e *ScrapeError) Kind() failure.Kind {
	return e.ErrKind
}

func (e *ScrapeError) Severity() failure.Severity {
	if e.ErrKind.Retryable() {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// RetryAfter returns the platform-suggested retry delay, when present.
func (e *ScrapeError) RetryAfter() (time.Duration, bool) {
	return e.RetryHint, e.hasHint
}

// WithRetryHint attaches a platform-suggested retry delay.
func (e *ScrapeError) WithRetryHint(d time.Duration) *ScrapeError {
	e.RetryHint = d
	e.hasHint = true
	return e
}

// Is allows errors.Is to match ScrapeError types
func (e *ScrapeError) Is(target error) bool {
	_, ok := target.(*ScrapeError)
	return ok
}

// ClassifyStatus maps an HTTP status code onto the canonical error taxonomy.
// retryAfter, when positive, is attached as the platform-suggested delay.
func ClassifyStatus(statusCode int, retryAfter time.Duration) *ScrapeError {
	var err *ScrapeError
	switch {
	case statusCode == http.StatusTooManyRequests:
		err = &ScrapeError{
			Message: fmt.Sprintf("status %d", statusCode),
			Cause:   ErrCauseTooManyRequests,
			ErrKind: failure.KindRateLimited,
		}
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		err = &ScrapeError{
			Message: fmt.Sprintf("status %d", statusCode),
			Cause:   ErrCauseAccountNotFound,
			ErrKind: failure.KindNotFound,
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		err = &ScrapeError{
			Message: fmt.Sprintf("status %d", statusCode),
			Cause:   ErrCausePrivateAccount,
			ErrKind: failure.KindPrivate,
		}
	case statusCode >= 500:
		err = &ScrapeError{
			Message: fmt.Sprintf("status %d", statusCode),
			Cause:   ErrCauseServerFailure,
			ErrKind: failure.KindNetwork,
		}
	default:
		err = &ScrapeError{
			Message: fmt.Sprintf("status %d", statusCode),
			Cause:   ErrCauseContentStructure,
			ErrKind: failure.KindGeneric,
		}
	}
	if retryAfter > 0 {
		err.WithRetryHint(retryAfter)
	}
	return err
}
