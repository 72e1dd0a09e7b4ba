package health

import (
	"sync"
	"time"
)

/*
Responsibilities
- Track rolling success/failure counters per target class
- Derive a deterministic health status on read

The monitor's status feeds two consumers: the coordinator's delay/timeout
selection and the fallback selector's decision to prefer cached or
previous data over forcing another live attempt. The monitor itself never
makes those decisions.
*/

type Monitor struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMonitor() *Monitor {
	return &Monitor{
		records: make(map[string]*Record),
	}
}

// Record notes one outcome for a target class. Any success resets the
// consecutive-failure streak.
func (m *Monitor) Record(class string, success bool, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[class]
	if !ok {
		r = &Record{}
		m.records[class] = r
	}

	r.Total++
	r.TotalDuration += duration
	now := time.Now()

	if success {
		r.Success++
		r.ConsecutiveFailures = 0
		r.LastSuccessAt = now
		return
	}

	r.Failure++
	r.ConsecutiveFailures++
	r.LastFailureAt = now
	if err != nil {
		r.LastError = err.Error()
	}
}

// Status returns the derived classification for a target class.
func (m *Monitor) Status(class string) Status {
	return m.Snapshot(class).Status()
}

// Snapshot returns a copy of the class's counters.
func (m *Monitor) Snapshot(class string) Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[class]; ok {
		return *r
	}
	return Record{}
}

// Classes returns the target classes with at least one recorded outcome.
func (m *Monitor) Classes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.records))
	for class := range m.records {
		out = append(out, class)
	}
	return out
}
