package health

import "time"

// Status classifies a target class's recent behavior.
type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusDegraded
	StatusUnhealthy
	StatusCritical
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Record holds one target class's rolling counters. The derived status is
// recomputed deterministically from these counters on every read; there
// is no hidden state.
type Record struct {
	Total               int
	Success             int
	Failure             int
	ConsecutiveFailures int
	LastSuccessAt       time.Time
	LastFailureAt       time.Time
	LastError           string
	TotalDuration       time.Duration
}

// SuccessRate returns the fraction of successful outcomes, or 0 with no data.
func (r Record) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Success) / float64(r.Total)
}

// Derivation thresholds.
const (
	criticalConsecutiveFailures  = 5
	unhealthyConsecutiveFailures = 3
	healthySuccessRate           = 0.95
	degradedSuccessRate          = 0.80
)

// Status derives the classification from the counters.
// Consecutive failures dominate the historical success rate: a class that
// just failed five times in a row is critical even if its lifetime rate
// is excellent.
func (r Record) Status() Status {
	if r.Total == 0 {
		return StatusUnknown
	}
	if r.ConsecutiveFailures >= criticalConsecutiveFailures {
		return StatusCritical
	}
	if r.ConsecutiveFailures >= unhealthyConsecutiveFailures {
		return StatusUnhealthy
	}
	rate := r.SuccessRate()
	switch {
	case rate >= healthySuccessRate:
		return StatusHealthy
	case rate >= degradedSuccessRate:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}
