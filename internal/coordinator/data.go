package coordinator

import (
	"sort"
	"sync"
	"time"

	"github.com/metricspider/metricspider/internal/fallback"
	"github.com/metricspider/metricspider/internal/metrics"
	"github.com/metricspider/metricspider/pkg/retry"
	"github.com/metricspider/metricspider/pkg/timeutil"
)

// ProgressFunc receives throttled batch progress. Invoked at most every
// progressInterval; never concurrently with itself.
type ProgressFunc func(processed int, total int, currentTarget string, ratePerSecond float64, elapsed time.Duration)

// RunOptions configures one batch run.
type RunOptions struct {
	// MaxWorkers bounds the concurrent workers. Floors at 1.
	MaxWorkers int
	// MaxSleep caps any single admission or backoff wait. A wait that
	// would exceed the cap converts the target to a Skipped outcome.
	// Zero means unbounded.
	MaxSleep time.Duration
	// PrioritizeCore dispatches isCore targets before all others.
	PrioritizeCore bool
	// PlatformFilter restricts the run to the named platforms when set.
	PlatformFilter []string
	// MaxTargets truncates the (sorted) target list when positive.
	MaxTargets int
	// SnapshotOnly skips the statistical pipeline (history correlation,
	// anomaly detection); results are validated and persisted as-is.
	SnapshotOnly bool
	// Fallback selects the substitute source after retries are exhausted.
	Fallback fallback.Strategy
	// Retry configures the per-target retry engine.
	Retry retry.Param
	// Progress, when set, receives throttled progress updates.
	Progress ProgressFunc
	// MinSpacing enforces an inter-call gap within one platform class,
	// independent of the rate limiter. Defaults to 500ms.
	MinSpacing time.Duration
}

// BatchResult is the terminal summary of one run. Counts always satisfy
// Success+Errors+Skipped == TotalTargets.
type BatchResult struct {
	TotalTargets      int
	SuccessCount      int
	ErrorCount        int
	SkippedCount      int
	Elapsed           time.Duration
	PerPlatformCounts map[string]int
	PerTargetDuration map[string]time.Duration
	SlowestTarget     time.Duration
	AccountsPerSecond float64
}

// batchMetrics accumulates counters across workers. Counters are
// commutative, so completion order does not matter.
type batchMetrics struct {
	mu                sync.Mutex
	success           int
	errors            int
	skipped           int
	perPlatform       map[string]int
	perTargetDuration map[string]time.Duration
}

func newBatchMetrics() *batchMetrics {
	return &batchMetrics{
		perPlatform:       make(map[string]int),
		perTargetDuration: make(map[string]time.Duration),
	}
}

func (m *batchMetrics) record(target metrics.Target, outcome metrics.ScrapeOutcome, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch outcome.Status() {
	case metrics.OutcomeSuccess:
		m.success++
	case metrics.OutcomeSkipped:
		m.skipped++
	default:
		m.errors++
	}
	m.perPlatform[target.Platform()]++
	m.perTargetDuration[target.Key()] = duration
}

func (m *batchMetrics) processed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.success + m.errors + m.skipped
}

func (m *batchMetrics) summarize(total int, elapsed time.Duration) BatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	perPlatform := make(map[string]int, len(m.perPlatform))
	for k, v := range m.perPlatform {
		perPlatform[k] = v
	}

	perTarget := make(map[string]time.Duration, len(m.perTargetDuration))
	durations := make([]time.Duration, 0, len(m.perTargetDuration))
	for k, v := range m.perTargetDuration {
		perTarget[k] = v
		durations = append(durations, v)
	}

	rate := 0.0
	if elapsed > 0 {
		rate = float64(m.success+m.errors+m.skipped) / elapsed.Seconds()
	}

	return BatchResult{
		TotalTargets:      total,
		SuccessCount:      m.success,
		ErrorCount:        m.errors,
		SkippedCount:      m.skipped,
		Elapsed:           elapsed,
		PerPlatformCounts: perPlatform,
		PerTargetDuration: perTarget,
		SlowestTarget:     timeutil.MaxDuration(durations),
		AccountsPerSecond: rate,
	}
}

// sortTargets orders the batch for dispatch: core targets first when
// prioritized, with a stable tie-break on target identity so the order
// is deterministic for identical inputs.
func sortTargets(targets []metrics.Target, prioritizeCore bool) []metrics.Target {
	sorted := make([]metrics.Target, len(targets))
	copy(sorted, targets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if prioritizeCore && sorted[i].IsCore() != sorted[j].IsCore() {
			return sorted[i].IsCore()
		}
		return sorted[i].Key() < sorted[j].Key()
	})
	return sorted
}

// filterTargets keeps only targets on the allowed platforms.
func filterTargets(targets []metrics.Target, platforms []string) []metrics.Target {
	if len(platforms) == 0 {
		return targets
	}
	allowed := make(map[string]struct{}, len(platforms))
	for _, p := range platforms {
		allowed[p] = struct{}{}
	}
	out := make([]metrics.Target, 0, len(targets))
	for _, t := range targets {
		if _, ok := allowed[t.Platform()]; ok {
			out = append(out, t)
		}
	}
	return out
}
