package limiter

import (
	"sync"
	"time"
)

// WindowConfig describes one target class's admission budget:
// capacity requests per window duration.
type WindowConfig struct {
	Capacity int
	Window   time.Duration
}

// classWindow is the per-class mutable admission state.
// Invariant: after pruning, len(admissions) never exceeds capacity
// within the trailing window. Owned exclusively by one SlidingWindowLimiter;
// all access goes through mu.
type classWindow struct {
	mu         sync.Mutex
	admissions []time.Time
	capacity   int
	window     time.Duration
}

func (w *classWindow) GetCapacity() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.capacity
}
