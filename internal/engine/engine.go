package engine

import (
	"time"

	"github.com/metricspider/metricspider/internal/anomaly"
	"github.com/metricspider/metricspider/internal/fallback"
	"github.com/metricspider/metricspider/internal/health"
	"github.com/metricspider/metricspider/internal/history"
	"github.com/metricspider/metricspider/internal/metadata"
	"github.com/metricspider/metricspider/internal/quality"
	"github.com/metricspider/metricspider/internal/scrape"
	"github.com/metricspider/metricspider/internal/store"
	"github.com/metricspider/metricspider/pkg/limiter"
)

/*
Engine is the explicit dependency context for one collector process.
It is constructed once at startup and passed by reference to the
coordinator. There are no module-level get-or-create registries, so
tests build a fresh Engine per test and nothing leaks between runs.
*/
type Engine struct {
	Limiter    *limiter.AdaptiveLimiter
	Registry   *scrape.Registry
	Store      store.Store
	Health     *health.Monitor
	Validator  quality.Validator
	Scorer     quality.Scorer
	Correlator history.Correlator
	Detector   anomaly.Detector
	Corrector  anomaly.Corrector
	Fallback   fallback.Selector
	Book       *history.Book
	Sink       metadata.EventSink
	Finalizer  metadata.BatchFinalizer
}

// Options carries the tunables; zero values fall back to defaults.
type Options struct {
	WindowDefaults  limiter.WindowConfig
	WindowPerClass  map[string]limiter.WindowConfig
	AdaptiveOptions limiter.AdaptiveOptions
	Validator       quality.ValidatorOptions
	Correlator      history.CorrelatorOptions
	Detector        anomaly.DetectorOptions
	SeriesCap       int
	Store           store.Store
	Registry        *scrape.Registry
	Sink            metadata.EventSink
	Finalizer       metadata.BatchFinalizer
}

func New(opts Options) *Engine {
	if opts.WindowDefaults.Capacity == 0 {
		opts.WindowDefaults = limiter.WindowConfig{Capacity: 10, Window: time.Minute}
	}
	if opts.AdaptiveOptions.ReviewEvery == 0 {
		opts.AdaptiveOptions = limiter.DefaultAdaptiveOptions()
	}
	if opts.Registry == nil {
		opts.Registry = scrape.NewRegistry()
	}
	if opts.Sink == nil {
		opts.Sink = &metadata.NoopSink{}
	}
	if opts.Finalizer == nil {
		opts.Finalizer = &metadata.NoopSink{}
	}

	validator := quality.NewValidator(opts.Validator)
	base := limiter.NewSlidingWindowLimiter(opts.WindowDefaults, opts.WindowPerClass)

	return &Engine{
		Limiter:    limiter.NewAdaptiveLimiter(base, opts.AdaptiveOptions),
		Registry:   opts.Registry,
		Store:      opts.Store,
		Health:     health.NewMonitor(),
		Validator:  validator,
		Scorer:     quality.NewScorer(validator),
		Correlator: history.NewCorrelator(opts.Correlator),
		Detector:   anomaly.NewDetector(opts.Detector),
		Corrector:  anomaly.NewCorrector(),
		Fallback:   fallback.NewSelector(fallback.NewCache(0)),
		Book:       history.NewBook(opts.SeriesCap),
		Sink:       opts.Sink,
		Finalizer:  opts.Finalizer,
	}
}
