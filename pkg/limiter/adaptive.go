package limiter

import "sync"

// AdaptiveOptions tunes the self-adjusting capacity loop.
// The review thresholds were tuned empirically; they are options rather
// than constants so a platform can override them.
type AdaptiveOptions struct {
	// ReviewEvery is how many reported outcomes trigger a capacity review.
	ReviewEvery int
	// SampleSize is how many recent outcomes a review inspects.
	SampleSize int
	// ThrottleFraction of rate-limited outcomes above which capacity shrinks.
	ThrottleFraction float64
	// SuccessFraction of 2xx outcomes required (with zero throttles) to grow.
	SuccessFraction float64
	// ShrinkFactor and GrowFactor scale the capacity on review.
	ShrinkFactor float64
	GrowFactor   float64
}

func DefaultAdaptiveOptions() AdaptiveOptions {
	return AdaptiveOptions{
		ReviewEvery:      5,
		SampleSize:       20,
		ThrottleFraction: 0.20,
		SuccessFraction:  0.90,
		ShrinkFactor:     0.8,
		GrowFactor:       1.05,
	}
}

// outcomeRing is a bounded ring of recent HTTP-style outcome codes
// for one class. Owned by the AdaptiveLimiter; guarded by its mutex.
type outcomeRing struct {
	codes    []int
	next     int
	filled   bool
	reported int
	original int
}

func (r *outcomeRing) push(code int) {
	r.codes[r.next] = code
	r.next = (r.next + 1) % len(r.codes)
	if r.next == 0 {
		r.filled = true
	}
	r.reported++
}

func (r *outcomeRing) snapshot() []int {
	if r.filled {
		out := make([]int, len(r.codes))
		copy(out, r.codes)
		return out
	}
	out := make([]int, r.next)
	copy(out, r.codes[:r.next])
	return out
}

// AdaptiveLimiter wraps a RateLimiter and resizes each class's capacity
// from observed response outcomes. It narrows or widens future throughput;
// it is not a hard guarantee.
type AdaptiveLimiter struct {
	RateLimiter

	mu    sync.Mutex
	opts  AdaptiveOptions
	rings map[string]*outcomeRing
}

func NewAdaptiveLimiter(inner RateLimiter, opts AdaptiveOptions) *AdaptiveLimiter {
	if opts.ReviewEvery < 5 {
		opts.ReviewEvery = 5
	}
	if opts.SampleSize < opts.ReviewEvery {
		opts.SampleSize = DefaultAdaptiveOptions().SampleSize
	}
	return &AdaptiveLimiter{
		RateLimiter: inner,
		opts:        opts,
		rings:       make(map[string]*outcomeRing),
	}
}

// ReportOutcome feeds one HTTP-style status code back into the loop.
// Every ReviewEvery reports the class's capacity is reviewed against the
// last SampleSize outcomes. Capacity changes take effect immediately for
// subsequent admissions.
func (a *AdaptiveLimiter) ReportOutcome(class string, statusCode int) {
	a.mu.Lock()
	ring, ok := a.rings[class]
	if !ok {
		ring = &outcomeRing{
			codes:    make([]int, a.opts.SampleSize),
			original: a.RateLimiter.Capacity(class),
		}
		a.rings[class] = ring
	}
	ring.push(statusCode)
	review := ring.reported%a.opts.ReviewEvery == 0
	var codes []int
	if review {
		codes = ring.snapshot()
	}
	original := ring.original
	a.mu.Unlock()

	if !review {
		return
	}
	a.reviewCapacity(class, codes, original)
}

func (a *AdaptiveLimiter) reviewCapacity(class string, codes []int, original int) {
	if len(codes) == 0 {
		return
	}

	var throttled, succeeded int
	for _, code := range codes {
		switch {
		case code == 429:
			throttled++
		case code >= 200 && code < 300:
			succeeded++
		}
	}

	total := float64(len(codes))
	current := a.RateLimiter.Capacity(class)

	switch {
	case float64(throttled)/total > a.opts.ThrottleFraction:
		shrunk := int(float64(current) * a.opts.ShrinkFactor)
		if shrunk < 1 {
			shrunk = 1
		}
		a.RateLimiter.SetCapacity(class, shrunk)
	case throttled == 0 && float64(succeeded)/total >= a.opts.SuccessFraction:
		grown := int(float64(current) * a.opts.GrowFactor)
		if grown == current {
			grown = current + 1
		}
		ceiling := 2 * original
		if grown > ceiling {
			grown = ceiling
		}
		if grown > current {
			a.RateLimiter.SetCapacity(class, grown)
		}
	}
}

// ReportedCount returns how many outcomes have been reported for a class.
func (a *AdaptiveLimiter) ReportedCount(class string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ring, ok := a.rings[class]; ok {
		return ring.reported
	}
	return 0
}

var _ RateLimiter = (*AdaptiveLimiter)(nil)
