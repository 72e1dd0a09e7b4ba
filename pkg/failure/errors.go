package failure

import "time"

type Severity int

// coordinator control flow
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

// Kind classifies a scrape failure independently of the concrete error type.
// Retry eligibility and backoff selection are pure functions of the Kind,
// never of the dynamic type of the error.
type Kind int

const (
	// KindGeneric covers unknown failures. Treated as transient.
	KindGeneric Kind = iota
	// KindRateLimited marks a 429-class rejection by the platform.
	// May carry a platform-suggested retry delay.
	KindRateLimited
	// KindNetwork covers timeouts, connection resets, and DNS failures.
	KindNetwork
	// KindNotFound marks a handle that does not exist. Permanent.
	KindNotFound
	// KindPrivate marks a private or unauthorized account. Permanent.
	KindPrivate
	// KindAuth marks a credential/config problem. Permanent until reconfigured.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not_found"
	case KindPrivate:
		return "private"
	case KindAuth:
		return "auth"
	default:
		return "generic"
	}
}

// Retryable reports whether errors of this kind may be retried at all.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindNetwork, KindGeneric:
		return true
	default:
		return false
	}
}

type ClassifiedError interface {
	error
	Kind() Kind
	Severity() Severity
}

// RetryAfterCarrier is implemented by errors that carry a
// platform-suggested retry delay (e.g. a Retry-After header).
type RetryAfterCarrier interface {
	RetryAfter() (time.Duration, bool)
}

// SuggestedDelay extracts the platform-suggested retry delay from err,
// if err carries one.
func SuggestedDelay(err error) (time.Duration, bool) {
	if c, ok := err.(RetryAfterCarrier); ok {
		return c.RetryAfter()
	}
	return 0, false
}

// KindOf returns the Kind of err, or KindGeneric when err is not classified.
func KindOf(err error) Kind {
	if ce, ok := err.(ClassifiedError); ok {
		return ce.Kind()
	}
	return KindGeneric
}
