package limiter

import (
	"sync"
	"time"
)

// RateLimiter
// Specialized component to manage per-target-class admission control
// Responsibilities:
// - Bookkeep each class's recent admission timestamps
// - Block a caller until a slot inside the sliding window is free
// - Make sure concurrent workers targeting the same class serialize
//   on the admission check only, never on the network call itself
type RateLimiter interface {
	// Admit blocks until admission is allowed, records the admission,
	// and returns how long the caller was made to wait.
	Admit(class string) time.Duration
	// AdmitWithin behaves like Admit but refuses to wait longer than max.
	// It returns false without recording an admission when the required
	// wait would exceed max.
	AdmitWithin(class string, max time.Duration) (time.Duration, bool)
	// TryAdmit records an admission if a slot is free right now,
	// returning false otherwise. Never blocks.
	TryAdmit(class string) bool
	SetCapacity(class string, capacity int)
	Capacity(class string) int
}

// slack added on top of the computed wait so the oldest timestamp has
// strictly left the window when the caller wakes.
const admitSlack = 5 * time.Millisecond

type SlidingWindowLimiter struct {
	mu       sync.Mutex
	classes  map[string]*classWindow
	defaults WindowConfig
	perClass map[string]WindowConfig

	// test hooks; real clock unless overridden
	now   func() time.Time
	sleep func(time.Duration)
}

func NewSlidingWindowLimiter(defaults WindowConfig, perClass map[string]WindowConfig) *SlidingWindowLimiter {
	if defaults.Capacity < 1 {
		defaults.Capacity = 1
	}
	if defaults.Window <= 0 {
		defaults.Window = time.Minute
	}
	return &SlidingWindowLimiter{
		classes:  make(map[string]*classWindow),
		defaults: defaults,
		perClass: perClass,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// SetClock injects a clock and sleeper for testing.
func (l *SlidingWindowLimiter) SetClock(now func() time.Time, sleep func(time.Duration)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now != nil {
		l.now = now
	}
	if sleep != nil {
		l.sleep = sleep
	}
}

// class returns the window state for the given class, creating it with
// the configured (or default) budget on first use.
func (l *SlidingWindowLimiter) class(name string) *classWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.classes[name]; ok {
		return w
	}
	cfg := l.defaults
	if override, ok := l.perClass[name]; ok {
		if override.Capacity > 0 {
			cfg.Capacity = override.Capacity
		}
		if override.Window > 0 {
			cfg.Window = override.Window
		}
	}
	w := &classWindow{
		capacity: cfg.Capacity,
		window:   cfg.Window,
	}
	l.classes[name] = w
	return w
}

// prune drops admissions older than the window. Caller must hold w.mu.
func prune(w *classWindow, now time.Time) {
	cutoff := now.Add(-w.window)
	keep := w.admissions[:0]
	for _, t := range w.admissions {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	w.admissions = keep
}

// requiredWait computes how long the caller must wait for a slot.
// Caller must hold w.mu and have pruned first. Zero means a slot is free.
func requiredWait(w *classWindow, now time.Time) time.Duration {
	if len(w.admissions) < w.capacity {
		return 0
	}
	oldest := w.admissions[0]
	return w.window - now.Sub(oldest) + admitSlack
}

func (l *SlidingWindowLimiter) Admit(class string) time.Duration {
	waited, _ := l.admit(class, -1)
	return waited
}

func (l *SlidingWindowLimiter) AdmitWithin(class string, max time.Duration) (time.Duration, bool) {
	return l.admit(class, max)
}

// admit loops prune→check→sleep until a slot is free. A capacity shrink
// between wakeups is honored: the wait is recomputed on every pass.
// max < 0 means unbounded.
func (l *SlidingWindowLimiter) admit(class string, max time.Duration) (time.Duration, bool) {
	w := l.class(class)
	var waited time.Duration

	for {
		w.mu.Lock()
		now := l.now()
		prune(w, now)
		wait := requiredWait(w, now)
		if wait <= 0 {
			w.admissions = append(w.admissions, now)
			w.mu.Unlock()
			return waited, true
		}
		w.mu.Unlock()

		if max >= 0 && waited+wait > max {
			return waited, false
		}
		l.sleep(wait)
		waited += wait
	}
}

func (l *SlidingWindowLimiter) TryAdmit(class string) bool {
	w := l.class(class)
	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	prune(w, now)
	if len(w.admissions) >= w.capacity {
		return false
	}
	w.admissions = append(w.admissions, now)
	return true
}

// SetCapacity replaces the class's capacity, effective for subsequent
// admissions. Floors at 1.
func (l *SlidingWindowLimiter) SetCapacity(class string, capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	w := l.class(class)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.capacity = capacity
}

func (l *SlidingWindowLimiter) Capacity(class string) int {
	return l.class(class).GetCapacity()
}

// AdmissionCount returns how many admissions are currently inside the
// trailing window for the given class.
func (l *SlidingWindowLimiter) AdmissionCount(class string) int {
	w := l.class(class)
	w.mu.Lock()
	defer w.mu.Unlock()
	prune(w, l.now())
	return len(w.admissions)
}
