package coordinator_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metricspider/metricspider/internal/coordinator"
	"github.com/metricspider/metricspider/internal/engine"
	"github.com/metricspider/metricspider/internal/fallback"
	"github.com/metricspider/metricspider/internal/metrics"
	"github.com/metricspider/metricspider/internal/scrape"
	"github.com/metricspider/metricspider/internal/store"
	"github.com/metricspider/metricspider/pkg/failure"
	"github.com/metricspider/metricspider/pkg/limiter"
	"github.com/metricspider/metricspider/pkg/retry"
)

// memStore is an in-memory Store for component tests.
type memStore struct {
	mu   sync.Mutex
	rows map[string]map[string]*metrics.RawFields // target key -> day -> fields
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]map[string]*metrics.RawFields)}
}

func (s *memStore) ExistingResult(_ context.Context, target metrics.Target, day string) (*metrics.RawFields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fields, ok := s.rows[target.Key()][day]; ok {
		return fields.Clone(), nil
	}
	return nil, nil
}

func (s *memStore) Store(_ context.Context, target metrics.Target, day string, fields *metrics.RawFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[target.Key()] == nil {
		s.rows[target.Key()] = make(map[string]*metrics.RawFields)
	}
	s.rows[target.Key()][day] = fields.Clone()
	return nil
}

func (s *memStore) History(_ context.Context, target metrics.Target, _ int) ([]*metrics.RawFields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days := sortedDays(s.rows[target.Key()])
	out := make([]*metrics.RawFields, 0, len(days))
	for _, day := range days {
		out = append(out, s.rows[target.Key()][day].Clone())
	}
	return out, nil
}

func (s *memStore) Previous(_ context.Context, target metrics.Target, day string) (*metrics.RawFields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best string
	for d := range s.rows[target.Key()] {
		if d < day && d > best {
			best = d
		}
	}
	if best == "" {
		return nil, nil
	}
	return s.rows[target.Key()][best].Clone(), nil
}

func (s *memStore) Close() error { return nil }

func sortedDays(rows map[string]*metrics.RawFields) []string {
	days := make([]string, 0, len(rows))
	for d := range rows {
		days = append(days, d)
	}
	for i := range days {
		for j := i + 1; j < len(days); j++ {
			if days[j] < days[i] {
				days[i], days[j] = days[j], days[i]
			}
		}
	}
	return days
}

// gatedAdapter blocks every scrape until the test releases it, so the
// dispatch order of a concurrent pool can be observed deterministically.
type gatedAdapter struct {
	platform string
	started  chan string
	release  chan struct{}
	fields   *metrics.RawFields
}

func (a *gatedAdapter) Platform() string { return a.platform }

func (a *gatedAdapter) Scrape(_ context.Context, target metrics.Target) (*metrics.RawFields, failure.ClassifiedError) {
	a.started <- target.Handle()
	<-a.release
	return a.fields.Clone(), nil
}

// recordingAdapter notes the order handles are scraped in.
type recordingAdapter struct {
	platform string
	mu       sync.Mutex
	order    []string
	fields   *metrics.RawFields
}

func (a *recordingAdapter) Platform() string { return a.platform }

func (a *recordingAdapter) Scrape(_ context.Context, target metrics.Target) (*metrics.RawFields, failure.ClassifiedError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.order = append(a.order, target.Handle())
	return a.fields.Clone(), nil
}

func liveFields() *metrics.RawFields {
	f := metrics.NewRawFields()
	f.SetNumber(metrics.FieldFollowers, 10000)
	f.SetNumber(metrics.FieldPosts, 250)
	return f
}

func newTestEngine(t *testing.T, ms store.Store, adapters ...scrape.Adapter) *engine.Engine {
	t.Helper()
	registry := scrape.NewRegistry()
	for _, a := range adapters {
		require.NoError(t, registry.Register(a))
	}
	return engine.New(engine.Options{
		WindowDefaults: limiter.WindowConfig{Capacity: 1000, Window: time.Second},
		Store:          ms,
		Registry:       registry,
	})
}

func fastOptions() coordinator.RunOptions {
	return coordinator.RunOptions{
		MaxWorkers: 2,
		MinSpacing: time.Nanosecond,
		Retry: retry.Param{
			Strategy:    retry.StrategyFixed,
			BaseDelay:   time.Millisecond,
			MaxAttempts: 2,
			RandomSeed:  1,
		},
	}
}

func TestRun_CountsSumToTotal(t *testing.T) {
	ms := newMemStore()
	twitter := scrape.NewStaticAdapter("twitter")
	twitter.SetResult("nasa", liveFields())
	// "esa" has no canned result: a permanent not-found failure
	eng := newTestEngine(t, ms, twitter)

	targets := []metrics.Target{
		metrics.NewTarget("twitter", "nasa", true),
		metrics.NewTarget("twitter", "esa", false),
	}

	result := coordinator.New(eng).Run(context.Background(), targets, fastOptions())

	assert.Equal(t, 2, result.TotalTargets)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 0, result.SkippedCount)
	assert.Equal(t, result.TotalTargets, result.SuccessCount+result.ErrorCount+result.SkippedCount)
	assert.Equal(t, 2, result.PerPlatformCounts["twitter"])
}

func TestRun_SuccessPersistsSnapshot(t *testing.T) {
	ms := newMemStore()
	twitter := scrape.NewStaticAdapter("twitter")
	twitter.SetResult("nasa", liveFields())
	eng := newTestEngine(t, ms, twitter)
	target := metrics.NewTarget("twitter", "nasa", true)

	result := coordinator.New(eng).Run(context.Background(), []metrics.Target{target}, fastOptions())

	require.Equal(t, 1, result.SuccessCount)

	day := store.DayOf(time.Now())
	persisted, err := ms.ExistingResult(context.Background(), target, day)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	v, _ := persisted.Number(metrics.FieldFollowers)
	assert.Equal(t, 10000.0, v)
	assert.False(t, persisted.IsFallback())
}

func TestRun_DedupSkipsCollectedToday(t *testing.T) {
	ms := newMemStore()
	twitter := scrape.NewStaticAdapter("twitter")
	twitter.SetResult("nasa", liveFields())
	eng := newTestEngine(t, ms, twitter)
	target := metrics.NewTarget("twitter", "nasa", true)

	day := store.DayOf(time.Now())
	require.NoError(t, ms.Store(context.Background(), target, day, liveFields()))

	result := coordinator.New(eng).Run(context.Background(), []metrics.Target{target}, fastOptions())

	assert.Equal(t, 1, result.SkippedCount)
	assert.Equal(t, 0, twitter.Calls("nasa"), "no live call for an already-collected target")
}

func TestRun_TransientFailureRetried(t *testing.T) {
	ms := newMemStore()
	twitter := scrape.NewStaticAdapter("twitter")
	twitter.SetResult("nasa", liveFields())
	twitter.QueueError("nasa", scrape.ClassifyStatus(http.StatusServiceUnavailable, 0))
	eng := newTestEngine(t, ms, twitter)

	result := coordinator.New(eng).Run(context.Background(),
		[]metrics.Target{metrics.NewTarget("twitter", "nasa", true)}, fastOptions())

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 2, twitter.Calls("nasa"), "one failure, one retry")
}

func TestRun_PermanentFailureNotRetried(t *testing.T) {
	ms := newMemStore()
	twitter := scrape.NewStaticAdapter("twitter")
	twitter.SetResult("nasa", liveFields())
	twitter.QueueError("nasa", scrape.ClassifyStatus(http.StatusNotFound, 0))
	eng := newTestEngine(t, ms, twitter)

	result := coordinator.New(eng).Run(context.Background(),
		[]metrics.Target{metrics.NewTarget("twitter", "nasa", true)}, fastOptions())

	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 1, twitter.Calls("nasa"), "a missing account is never retried")
}

func TestRun_FallbackPersistsPreviousOnFailure(t *testing.T) {
	ms := newMemStore()
	twitter := scrape.NewStaticAdapter("twitter")
	twitter.QueueError("nasa", scrape.ClassifyStatus(http.StatusNotFound, 0))
	eng := newTestEngine(t, ms, twitter)
	target := metrics.NewTarget("twitter", "nasa", true)

	yesterday := store.DayOf(time.Now().Add(-24 * time.Hour))
	require.NoError(t, ms.Store(context.Background(), target, yesterday, liveFields()))

	opts := fastOptions()
	opts.Fallback = fallback.StrategyPrevious

	result := coordinator.New(eng).Run(context.Background(), []metrics.Target{target}, opts)

	// Substituted data never counts as success.
	assert.Equal(t, 1, result.ErrorCount)

	day := store.DayOf(time.Now())
	persisted, err := ms.ExistingResult(context.Background(), target, day)
	require.NoError(t, err)
	require.NotNil(t, persisted, "the substitute is persisted")
	assert.True(t, persisted.IsFallback(), "substitutes carry the fallback marker")
	v, _ := persisted.Number(metrics.FieldFollowers)
	assert.Equal(t, 10000.0, v)
}

func TestRun_NoFallbackLeavesNothingPersisted(t *testing.T) {
	ms := newMemStore()
	twitter := scrape.NewStaticAdapter("twitter")
	twitter.QueueError("nasa", scrape.ClassifyStatus(http.StatusNotFound, 0))
	eng := newTestEngine(t, ms, twitter)
	target := metrics.NewTarget("twitter", "nasa", true)

	result := coordinator.New(eng).Run(context.Background(), []metrics.Target{target}, fastOptions())

	assert.Equal(t, 1, result.ErrorCount)
	persisted, err := ms.ExistingResult(context.Background(), target, store.DayOf(time.Now()))
	require.NoError(t, err)
	assert.Nil(t, persisted)
}

func TestRun_CoreTargetsDispatchedFirst(t *testing.T) {
	ms := newMemStore()
	adapter := &recordingAdapter{platform: "twitter", fields: liveFields()}
	eng := newTestEngine(t, ms, adapter)

	targets := []metrics.Target{
		metrics.NewTarget("twitter", "zeta", false),
		metrics.NewTarget("twitter", "alpha", true),
		metrics.NewTarget("twitter", "beta", false),
	}

	opts := fastOptions()
	opts.MaxWorkers = 1
	opts.PrioritizeCore = true

	coordinator.New(eng).Run(context.Background(), targets, opts)

	assert.Equal(t, []string{"alpha", "beta", "zeta"}, adapter.order,
		"core first, then stable key order")
}

func TestRun_CorePriorityHoldsUnderConcurrency(t *testing.T) {
	ms := newMemStore()
	adapter := &gatedAdapter{
		platform: "twitter",
		started:  make(chan string, 10),
		release:  make(chan struct{}, 10),
		fields:   liveFields(),
	}
	eng := newTestEngine(t, ms, adapter)

	core := map[string]bool{"hq": true, "press": true, "support": true}
	targets := []metrics.Target{
		metrics.NewTarget("twitter", "fan1", false),
		metrics.NewTarget("twitter", "fan2", false),
		metrics.NewTarget("twitter", "hq", true),
		metrics.NewTarget("twitter", "fan3", false),
		metrics.NewTarget("twitter", "press", true),
		metrics.NewTarget("twitter", "fan4", false),
		metrics.NewTarget("twitter", "fan5", false),
		metrics.NewTarget("twitter", "support", true),
		metrics.NewTarget("twitter", "fan6", false),
		metrics.NewTarget("twitter", "fan7", false),
	}

	opts := fastOptions()
	opts.MaxWorkers = 2
	opts.PrioritizeCore = true

	done := make(chan coordinator.BatchResult, 1)
	go func() {
		done <- coordinator.New(eng).Run(context.Background(), targets, opts)
	}()

	awaitStart := func() string {
		t.Helper()
		select {
		case handle := <-adapter.started:
			return handle
		case <-time.After(5 * time.Second):
			t.Fatal("no scrape started in time")
			return ""
		}
	}

	// Both workers pick up core targets before any other target runs.
	first := awaitStart()
	second := awaitStart()
	assert.True(t, core[first], "first dispatch %q should be core", first)
	assert.True(t, core[second], "second dispatch %q should be core", second)

	// A freed worker takes the remaining core target, never a fan account.
	adapter.release <- struct{}{}
	third := awaitStart()
	assert.True(t, core[third], "third dispatch %q should be core", third)
	assert.NotEqual(t, first, third)
	assert.NotEqual(t, second, third)

	for i := 0; i < 9; i++ {
		adapter.release <- struct{}{}
	}
	select {
	case result := <-done:
		assert.Equal(t, 10, result.SuccessCount)
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not finish")
	}
}

func TestRun_SummaryReportsPerTargetDurations(t *testing.T) {
	ms := newMemStore()
	twitter := scrape.NewStaticAdapter("twitter")
	twitter.SetDefault(liveFields())
	eng := newTestEngine(t, ms, twitter)

	targets := []metrics.Target{
		metrics.NewTarget("twitter", "a", false),
		metrics.NewTarget("twitter", "b", false),
	}

	result := coordinator.New(eng).Run(context.Background(), targets, fastOptions())

	require.Len(t, result.PerTargetDuration, 2)
	var longest time.Duration
	for key, d := range result.PerTargetDuration {
		assert.Contains(t, []string{"twitter/a", "twitter/b"}, key)
		assert.Greater(t, d, time.Duration(0))
		if d > longest {
			longest = d
		}
	}
	assert.Equal(t, longest, result.SlowestTarget)
}

func TestRun_PlatformFilterAndMaxTargets(t *testing.T) {
	ms := newMemStore()
	twitter := scrape.NewStaticAdapter("twitter")
	twitter.SetDefault(liveFields())
	instagram := scrape.NewStaticAdapter("instagram")
	instagram.SetDefault(liveFields())
	eng := newTestEngine(t, ms, twitter, instagram)

	targets := []metrics.Target{
		metrics.NewTarget("twitter", "a", false),
		metrics.NewTarget("instagram", "b", false),
		metrics.NewTarget("twitter", "c", false),
		metrics.NewTarget("twitter", "d", false),
	}

	opts := fastOptions()
	opts.PlatformFilter = []string{"twitter"}
	opts.MaxTargets = 2

	result := coordinator.New(eng).Run(context.Background(), targets, opts)

	assert.Equal(t, 2, result.TotalTargets, "filtered then truncated")
	assert.Equal(t, 0, instagram.Calls("b"))
}

func TestRun_CanceledContextSkipsRemaining(t *testing.T) {
	ms := newMemStore()
	twitter := scrape.NewStaticAdapter("twitter")
	twitter.SetDefault(liveFields())
	eng := newTestEngine(t, ms, twitter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	targets := []metrics.Target{
		metrics.NewTarget("twitter", "a", false),
		metrics.NewTarget("twitter", "b", false),
		metrics.NewTarget("twitter", "c", false),
	}

	result := coordinator.New(eng).Run(ctx, targets, fastOptions())

	assert.Equal(t, 3, result.TotalTargets)
	assert.Equal(t, 3, result.SkippedCount, "a canceled batch still accounts for every target")
	assert.Equal(t, 0, twitter.Calls("a"))
}

func TestRun_AdmissionWaitCapSkips(t *testing.T) {
	ms := newMemStore()
	twitter := scrape.NewStaticAdapter("twitter")
	twitter.SetDefault(liveFields())

	registry := scrape.NewRegistry()
	require.NoError(t, registry.Register(twitter))
	eng := engine.New(engine.Options{
		// one admission per minute: the second target cannot be admitted
		// within the cap
		WindowDefaults: limiter.WindowConfig{Capacity: 1, Window: time.Minute},
		Store:          ms,
		Registry:       registry,
	})

	opts := fastOptions()
	opts.MaxWorkers = 1
	opts.MaxSleep = 10 * time.Millisecond

	targets := []metrics.Target{
		metrics.NewTarget("twitter", "a", false),
		metrics.NewTarget("twitter", "b", false),
	}

	result := coordinator.New(eng).Run(context.Background(), targets, opts)

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.SkippedCount, "over-cap admission waits convert to skips")
}

func TestRun_UnknownPlatformFails(t *testing.T) {
	ms := newMemStore()
	eng := newTestEngine(t, ms) // empty registry

	result := coordinator.New(eng).Run(context.Background(),
		[]metrics.Target{metrics.NewTarget("myspace", "tom", false)}, fastOptions())

	assert.Equal(t, 1, result.ErrorCount)
}

func TestRun_ProgressReachesCompletion(t *testing.T) {
	ms := newMemStore()
	twitter := scrape.NewStaticAdapter("twitter")
	twitter.SetDefault(liveFields())
	eng := newTestEngine(t, ms, twitter)

	var mu sync.Mutex
	var lastProcessed int
	opts := fastOptions()
	opts.Progress = func(processed, total int, _ string, _ float64, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		if processed > lastProcessed {
			lastProcessed = processed
		}
	}

	targets := []metrics.Target{
		metrics.NewTarget("twitter", "a", false),
		metrics.NewTarget("twitter", "b", false),
	}

	coordinator.New(eng).Run(context.Background(), targets, opts)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, lastProcessed, "the final target always emits progress")
}
