package retry

import "time"

// Strategy selects how the backoff delay grows with the attempt number.
type Strategy string

const (
	// StrategyFixed waits the base delay between every attempt.
	StrategyFixed Strategy = "fixed"
	// StrategyLinear waits base × attempt.
	StrategyLinear Strategy = "linear"
	// StrategyExponential doubles the delay each attempt.
	StrategyExponential Strategy = "exponential"
	// StrategyAdaptive is exponential, but rate-limited errors grow by ×3
	// per attempt since those need longer cooldowns than network blips.
	StrategyAdaptive Strategy = "adaptive"
)

// Param holds the knobs for one retried operation.
// These come from outside (config); the engine holds no state of its own.
type Param struct {
	Strategy    Strategy
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration
	RandomSeed  int64
	// MaxAttempts is the retry budget: an operation runs at most
	// MaxAttempts+1 times in total.
	MaxAttempts int
	// MaxSleep caps any single backoff wait. A computed delay above the
	// cap abandons the operation instead of blocking. Zero means no cap.
	MaxSleep time.Duration
}

// NewParam creates a Param with the given settings.
func NewParam(
	strategy Strategy,
	baseDelay time.Duration,
	maxDelay time.Duration,
	jitter time.Duration,
	randomSeed int64,
	maxAttempts int,
) Param {
	return Param{
		Strategy:    strategy,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		Jitter:      jitter,
		RandomSeed:  randomSeed,
		MaxAttempts: maxAttempts,
	}
}
