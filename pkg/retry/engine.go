package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/metricspider/metricspider/pkg/failure"
	"github.com/metricspider/metricspider/pkg/timeutil"
)

// ShouldRetry decides retry eligibility as a pure function of the error
// value and the attempt budget. attempt is the 0-based index of the attempt
// that just failed; maxAttempts is the retry budget on top of the first try.
// Permanent kinds (not found, private, auth) never retry.
func ShouldRetry(err error, attempt int, maxAttempts int) bool {
	if err == nil {
		return false
	}
	if attempt >= maxAttempts {
		return false
	}
	return failure.KindOf(err).Retryable()
}

// DelayFor computes the backoff before retry number `attempt` (1-based).
// A platform-suggested retry delay on the error overrides the computed
// value. All results are capped at param.MaxDelay when it is set.
func DelayFor(err error, attempt int, param Param, rng *rand.Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	if suggested, ok := failure.SuggestedDelay(err); ok && suggested > 0 {
		return capDelay(suggested, param.MaxDelay)
	}

	ceiling := param.MaxDelay
	if ceiling <= 0 {
		ceiling = time.Duration(math.MaxInt64)
	}

	var delay time.Duration
	switch param.Strategy {
	case StrategyFixed:
		delay = param.BaseDelay
		if param.Jitter > 0 && rng != nil {
			delay += time.Duration(rng.Int63n(int64(param.Jitter)))
		}
	case StrategyLinear:
		delay = param.BaseDelay * time.Duration(attempt)
		if param.Jitter > 0 && rng != nil {
			delay += time.Duration(rng.Int63n(int64(param.Jitter)))
		}
	case StrategyAdaptive:
		// Rate limiting needs longer cooldowns than network blips.
		growth := 2.0
		if failure.KindOf(err) == failure.KindRateLimited {
			growth = 3.0
		}
		backoff := timeutil.NewBackoffParam(param.BaseDelay, growth, ceiling)
		delay = timeutil.ExponentialBackoffDelay(attempt, param.Jitter, rng, backoff)
	default:
		backoff := timeutil.NewBackoffParam(param.BaseDelay, 2.0, ceiling)
		delay = timeutil.ExponentialBackoffDelay(attempt, param.Jitter, rng, backoff)
	}

	return capDelay(delay, param.MaxDelay)
}

func capDelay(d, max time.Duration) time.Duration {
	if max > 0 {
		return timeutil.MinDuration(d, max)
	}
	return d
}
