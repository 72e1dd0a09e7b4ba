package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/metricspider/metricspider/internal/engine"
	"github.com/metricspider/metricspider/internal/fallback"
	"github.com/metricspider/metricspider/internal/health"
	"github.com/metricspider/metricspider/internal/metadata"
	"github.com/metricspider/metricspider/internal/metrics"
	"github.com/metricspider/metricspider/internal/scrape"
	"github.com/metricspider/metricspider/internal/store"
	"github.com/metricspider/metricspider/pkg/failure"
	"github.com/metricspider/metricspider/pkg/retry"
)

/*
 Coordinator is the sole control-plane authority of a collection batch.

 Admission and isolation guarantees:
 - The coordinator is the ONLY component that decides whether a target
   is attempted, retried, skipped, or substituted.
 - Adapters may detect and classify failure, but never decide retry,
   continuation, or abortion.
 - One target's failure never aborts the batch; the final summary's
   success/error/skipped counts always sum to the batch size.

 Metadata emission is observational only and must not influence
 scheduling, retries, or batch termination.
*/

const progressInterval = 500 * time.Millisecond

// defaultMinSpacing is the inter-call gap within one platform class.
const defaultMinSpacing = 500 * time.Millisecond

// lowQualityThreshold is the score below which a result is reported as
// suspect. The result is still persisted; the grade is observational.
const lowQualityThreshold = 0.5

type Coordinator struct {
	eng    *engine.Engine
	spacer *spacer

	progressMu sync.Mutex
	lastEmit   time.Time
}

func New(eng *engine.Engine) *Coordinator {
	return &Coordinator{
		eng:    eng,
		spacer: newSpacer(),
	}
}

// Run processes the batch with a bounded worker pool. All targets are
// queued up front, so an idle worker immediately picks up the next
// target regardless of how long other workers stay blocked on admission
// waits or slow platform calls.
func (c *Coordinator) Run(ctx context.Context, targets []metrics.Target, opts RunOptions) BatchResult {
	start := time.Now()

	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	if opts.MinSpacing == 0 {
		opts.MinSpacing = defaultMinSpacing
	}

	batch := filterTargets(targets, opts.PlatformFilter)
	batch = sortTargets(batch, opts.PrioritizeCore)
	if opts.MaxTargets > 0 && len(batch) > opts.MaxTargets {
		batch = batch[:opts.MaxTargets]
	}
	total := len(batch)

	accum := newBatchMetrics()

	jobs := make(chan metrics.Target, total)
	for _, t := range batch {
		jobs <- t
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(opts.MaxWorkers)
	for i := 0; i < opts.MaxWorkers; i++ {
		go func() {
			defer wg.Done()
			for target := range jobs {
				targetStart := time.Now()

				var outcome metrics.ScrapeOutcome
				select {
				case <-ctx.Done():
					outcome = metrics.SkippedOutcome("batch canceled")
				default:
					outcome = c.process(ctx, target, opts)
				}

				accum.record(target, outcome, time.Since(targetStart))
				c.emitProgress(accum, total, target, start, opts.Progress)
			}
		}()
	}
	wg.Wait()

	result := accum.summarize(total, time.Since(start))
	c.eng.Finalizer.RecordFinalBatchStats(
		result.TotalTargets,
		result.SuccessCount,
		result.ErrorCount,
		result.SkippedCount,
		result.Elapsed,
	)
	return result
}

// process runs the full pipeline for one target: dedup check →
// admission → retried adapter call → validation → history review →
// persistence, with health recording on every live outcome and
// fallback substitution on terminal failure.
func (c *Coordinator) process(ctx context.Context, target metrics.Target, opts RunOptions) metrics.ScrapeOutcome {
	day := store.DayOf(time.Now())
	platform := target.Platform()

	// Dedup: a result already persisted today is not collected again.
	if existing := c.lookupExisting(ctx, target, day); existing != nil {
		return metrics.SkippedOutcome("already collected today")
	}

	previous := c.lookupPrevious(ctx, target, day)

	adapter, err := c.eng.Registry.Resolve(platform)
	if err != nil {
		c.recordError(target, metadata.CauseContentInvalid, "Registry.Resolve", err.Error())
		return metrics.FailedOutcome(failure.KindGeneric, err.Error())
	}

	// A critical platform is not forced through another live attempt
	// when a substitute is available.
	if c.eng.Health.Status(platform) == health.StatusCritical && wantsFallback(opts.Fallback) {
		if substitute := c.eng.Fallback.Resolve(target, opts.Fallback, previous); substitute != nil {
			c.persist(ctx, target, day, substitute)
			c.recordFallback(target, opts.Fallback)
			return metrics.SkippedOutcome("platform critical, substituted non-live data")
		}
	}

	// Admission: blocks until the platform window has a free slot, but
	// never longer than the configured cap.
	var waited time.Duration
	if opts.MaxSleep > 0 {
		var admitted bool
		waited, admitted = c.eng.Limiter.AdmitWithin(platform, opts.MaxSleep)
		if !admitted {
			return metrics.SkippedOutcome("admission wait exceeds cap")
		}
	} else {
		waited = c.eng.Limiter.Admit(platform)
	}

	callStart := time.Now()
	fields, attempts, cerr := c.attempt(ctx, target, adapter, opts)
	callDuration := time.Since(callStart)

	c.eng.Sink.RecordAttempt(target.Label(), outcomeCode(cerr), callDuration, attempts-1, waited)

	if cerr != nil {
		c.eng.Health.Record(platform, false, callDuration, cerr)
		return c.resolveFailure(ctx, target, day, previous, cerr, opts)
	}

	c.eng.Health.Record(platform, true, callDuration, nil)
	return c.finish(ctx, target, day, previous, fields, opts)
}

// attempt wraps the adapter call in the retry engine. Every call's
// outcome code feeds the adaptive limiter, whether or not it is
// retried. Returns how many calls were actually made.
func (c *Coordinator) attempt(
	ctx context.Context,
	target metrics.Target,
	adapter scrape.Adapter,
	opts RunOptions,
) (*metrics.RawFields, int, failure.ClassifiedError) {
	platform := target.Platform()

	param := opts.Retry
	param.MaxSleep = opts.MaxSleep

	// A struggling platform gets longer cooldowns before each attempt.
	switch c.eng.Health.Status(platform) {
	case health.StatusDegraded, health.StatusUnhealthy:
		param.BaseDelay *= 2
	}

	var attempts int
	fields, cerr := retry.Do(param, func() (*metrics.RawFields, failure.ClassifiedError) {
		attempts++
		c.spacer.wait(platform, opts.MinSpacing)

		result, err := adapter.Scrape(ctx, target)
		c.eng.Limiter.ReportOutcome(platform, outcomeCode(err))
		return result, err
	})
	return fields, attempts, cerr
}

// finish runs the data-resilience pipeline on a live result.
func (c *Coordinator) finish(
	ctx context.Context,
	target metrics.Target,
	day string,
	previous *metrics.RawFields,
	fields *metrics.RawFields,
	opts RunOptions,
) metrics.ScrapeOutcome {
	platform := target.Platform()

	validation := c.eng.Validator.Validate(fields, previous, platform)
	for _, issue := range validation.Issues {
		c.recordError(target, metadata.CauseContentInvalid, "Validator.Validate", issue)
	}

	final := fields
	if !opts.SnapshotOnly {
		series := c.eng.Book.Series(target.Key())
		if series.Len() == 0 {
			c.preloadHistory(ctx, target)
		}

		correlation := c.eng.Correlator.Correlate(target.Key(), fields, series)
		report := c.eng.Detector.Detect(target.Key(), fields, series)
		for _, a := range report.Anomalies {
			c.eng.Sink.RecordAnomaly(target.Label(), a.Field, a.ZScore)
		}

		if report.HasAnomalies || !correlation.IsConsistent {
			corrected := c.eng.Corrector.Correct(target.Key(), fields, report, !correlation.IsConsistent, previous)
			final = corrected.Corrected
		}

		series.Append(final)
	}

	if grade := c.eng.Scorer.Score(final, previous, platform); grade.Score < lowQualityThreshold {
		c.eng.Sink.RecordError(
			time.Now(),
			"coordinator",
			"Scorer.Score",
			metadata.CauseContentInvalid,
			"result scored below quality threshold",
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrTarget, target.Label()),
				metadata.NewAttr(metadata.AttrScore, formatScore(grade.Score)),
			},
		)
	}

	c.eng.Fallback.Cache().Put(target.Key(), final)
	c.persist(ctx, target, day, final)
	return metrics.SuccessOutcome(final)
}

// resolveFailure converts a terminal error into the batch outcome,
// substituting non-live data when a fallback strategy allows it. The
// substitute is persisted but the target still counts as failed or
// skipped; only a live result counts as success.
func (c *Coordinator) resolveFailure(
	ctx context.Context,
	target metrics.Target,
	day string,
	previous *metrics.RawFields,
	cerr failure.ClassifiedError,
	opts RunOptions,
) metrics.ScrapeOutcome {
	c.recordError(target, causeOf(cerr), "Adapter.Scrape", cerr.Error())

	if wantsFallback(opts.Fallback) {
		if substitute := c.eng.Fallback.Resolve(target, opts.Fallback, previous); substitute != nil {
			c.persist(ctx, target, day, substitute)
			c.recordFallback(target, opts.Fallback)
		}
	}

	var retryErr *retry.RetryError
	if errors.As(cerr, &retryErr) && retryErr.Abandoned() {
		return metrics.SkippedOutcome("backoff wait exceeds cap")
	}
	return metrics.FailedOutcome(failure.KindOf(cerr), cerr.Error())
}

func (c *Coordinator) lookupExisting(ctx context.Context, target metrics.Target, day string) *metrics.RawFields {
	if c.eng.Store == nil {
		return nil
	}
	existing, err := c.eng.Store.ExistingResult(ctx, target, day)
	if err != nil {
		c.recordError(target, metadata.CauseStorageFailure, "Store.ExistingResult", err.Error())
		return nil
	}
	return existing
}

func (c *Coordinator) lookupPrevious(ctx context.Context, target metrics.Target, day string) *metrics.RawFields {
	if c.eng.Store == nil {
		return nil
	}
	previous, err := c.eng.Store.Previous(ctx, target, day)
	if err != nil {
		c.recordError(target, metadata.CauseStorageFailure, "Store.Previous", err.Error())
		return nil
	}
	return previous
}

func (c *Coordinator) preloadHistory(ctx context.Context, target metrics.Target) {
	if c.eng.Store == nil {
		return
	}
	snapshots, err := c.eng.Store.History(ctx, target, 0)
	if err != nil {
		c.recordError(target, metadata.CauseStorageFailure, "Store.History", err.Error())
		return
	}
	c.eng.Book.Preload(target.Key(), snapshots)
}

func (c *Coordinator) persist(ctx context.Context, target metrics.Target, day string, fields *metrics.RawFields) {
	if c.eng.Store == nil || fields == nil {
		return
	}
	if err := c.eng.Store.Store(ctx, target, day, fields); err != nil {
		c.recordError(target, metadata.CauseStorageFailure, "Store.Store", err.Error())
	}
}

// emitProgress invokes the callback at most once per progressInterval.
// The final target always emits so the caller sees completion.
func (c *Coordinator) emitProgress(accum *batchMetrics, total int, target metrics.Target, start time.Time, progress ProgressFunc) {
	if progress == nil {
		return
	}

	c.progressMu.Lock()
	defer c.progressMu.Unlock()

	now := time.Now()
	processed := accum.processed()
	if !c.lastEmit.IsZero() && now.Sub(c.lastEmit) < progressInterval && processed < total {
		return
	}
	c.lastEmit = now

	elapsed := now.Sub(start)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(processed) / elapsed.Seconds()
	}
	progress(processed, total, target.Label(), rate, elapsed)
}

func (c *Coordinator) recordError(target metrics.Target, cause metadata.ErrorCause, action string, detail string) {
	c.eng.Sink.RecordError(
		time.Now(),
		"coordinator",
		action,
		cause,
		detail,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrTarget, target.Label()),
			metadata.NewAttr(metadata.AttrPlatform, target.Platform()),
		},
	)
}

func (c *Coordinator) recordFallback(target metrics.Target, strategy fallback.Strategy) {
	c.eng.Sink.RecordFallback(target.Label(), string(strategy), []metadata.Attribute{
		metadata.NewAttr(metadata.AttrPlatform, target.Platform()),
	})
}

func wantsFallback(strategy fallback.Strategy) bool {
	return strategy != "" && strategy != fallback.StrategyNone
}
