package retry

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/metricspider/metricspider/pkg/failure"
)

// Do executes the provided function with retry logic.
// The function runs at most param.MaxAttempts+1 times. Between eligible
// failures the engine sleeps for the strategy's backoff; permanent errors
// and exhausted budgets propagate the final error immediately.
//
// Type parameter T represents the return type of the function being retried.
func Do[T any](param Param, fn func() (T, failure.ClassifiedError)) (T, failure.ClassifiedError) {
	var zero T

	if param.MaxAttempts < 0 {
		return zero, &RetryError{
			Message: "attempt budget cannot be negative",
			Cause:   ErrNegativeAttempts,
		}
	}

	rng := rand.New(rand.NewSource(param.RandomSeed))

	var lastErr failure.ClassifiedError
	for attempt := 0; attempt <= param.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Permanent failures propagate as-is; only an exhausted budget is
		// reported as a retry failure.
		if !failure.KindOf(err).Retryable() {
			return zero, err
		}
		if !ShouldRetry(err, attempt, param.MaxAttempts) {
			break
		}

		delay := DelayFor(err, attempt+1, param, rng)
		if param.MaxSleep > 0 && delay > param.MaxSleep {
			return zero, &RetryError{
				Message:  fmt.Sprintf("next backoff %v exceeds cap %v", delay, param.MaxSleep),
				Cause:    ErrWaitCapExceeded,
				LastKind: failure.KindOf(err),
			}
		}
		time.Sleep(delay)
	}

	return zero, &RetryError{
		Message:  fmt.Sprintf("exhausted %d attempts. Last error: %v", param.MaxAttempts+1, lastErr),
		Cause:    ErrExhaustedAttempts,
		LastKind: failure.KindOf(lastErr),
	}
}
