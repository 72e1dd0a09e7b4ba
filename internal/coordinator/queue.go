package coordinator

import (
	"sync"
	"time"
)

// spacer enforces a minimum inter-call gap within one platform class,
// across all workers, independent of the sliding-window limiter. Without
// it a freshly started pool bursts its first calls at one platform
// simultaneously.
//
// Locks are scoped per class; workers on different platforms never
// contend with each other.
type spacer struct {
	mu      sync.Mutex
	classes map[string]*classSpacing

	now   func() time.Time
	sleep func(time.Duration)
}

type classSpacing struct {
	mu       sync.Mutex
	lastCall time.Time
}

func newSpacer() *spacer {
	return &spacer{
		classes: make(map[string]*classSpacing),
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

func (s *spacer) class(name string) *classSpacing {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[name]
	if !ok {
		c = &classSpacing{}
		s.classes[name] = c
	}
	return c
}

// wait blocks until at least gap has passed since the class's previous
// call, then claims the slot. The class lock is held across the sleep so
// concurrent workers on the same class serialize their spacing instead
// of all waking at once.
func (s *spacer) wait(class string, gap time.Duration) {
	if gap <= 0 {
		return
	}
	c := s.class(class)
	c.mu.Lock()
	defer c.mu.Unlock()

	now := s.now()
	if !c.lastCall.IsZero() {
		if remaining := gap - now.Sub(c.lastCall); remaining > 0 {
			s.sleep(remaining)
			now = s.now()
		}
	}
	c.lastCall = now
}
