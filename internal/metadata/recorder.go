package metadata

import (
	"time"

	"go.uber.org/zap"
)

/*
Metadata Collected
- Attempt timestamps and durations
- HTTP-style status codes
- Retry counts and admission waits
- Anomaly flags and quality scores

Logging Goals
- Debuggable collection behavior
- Post-run auditability
- Failure diagnostics

Determinism guarantees:
 - Metadata does not affect control flow
 - Errors do not reorder dispatch
 - Output is stable given identical inputs

Metadata is write-only.
No component may read metadata to influence collection decisions.
*/

type EventSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordAttempt(
		targetLabel string,
		statusCode int,
		duration time.Duration,
		retryCount int,
		waited time.Duration,
	)

	RecordAnomaly(targetLabel string, field string, zScore float64)

	RecordFallback(targetLabel string, strategy string, attrs []Attribute)
}

type BatchFinalizer interface {
	RecordFinalBatchStats(
		totalTargets int,
		successCount int,
		errorCount int,
		skippedCount int,
		duration time.Duration,
	)
}

/*
Recorder captures structured collection events through a zap logger.
It must not:
- perform I/O decisions
- affect control flow
Ordering guarantees:
- Events are recorded synchronously in the order they are received by a single worker.
- No global ordering across workers is guaranteed.
*/
type Recorder struct {
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Recorder{logger: logger}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	fields := []zap.Field{
		zap.Time("observed_at", observedAt),
		zap.String("package", packageName),
		zap.String("action", action),
		zap.String("cause", cause.String()),
		zap.String("details", details),
	}
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key()), a.Value()))
	}
	r.logger.Warn("collection error", fields...)
}

func (r *Recorder) RecordAttempt(
	targetLabel string,
	statusCode int,
	duration time.Duration,
	retryCount int,
	waited time.Duration,
) {
	event := AttemptEvent{
		targetLabel: targetLabel,
		statusCode:  statusCode,
		duration:    duration,
		retryCount:  retryCount,
		waited:      waited,
	}

	r.logger.Debug("attempt",
		zap.String("target", event.targetLabel),
		zap.Int("status", event.statusCode),
		zap.Duration("duration", event.duration),
		zap.Int("retries", event.retryCount),
		zap.Duration("waited", event.waited),
	)
}

func (r *Recorder) RecordAnomaly(targetLabel string, field string, zScore float64) {
	r.logger.Info("anomaly flagged",
		zap.String("target", targetLabel),
		zap.String("field", field),
		zap.Float64("z_score", zScore),
	)
}

func (r *Recorder) RecordFallback(targetLabel string, strategy string, attrs []Attribute) {
	fields := []zap.Field{
		zap.String("target", targetLabel),
		zap.String("strategy", strategy),
	}
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key()), a.Value()))
	}
	r.logger.Info("fallback applied", fields...)
}

/*
RecordFinalBatchStats records a terminal, derived summary of a completed batch.

Contract:
  - MUST be called exactly once per batch execution.
  - MUST be called only after batch termination.
  - The provided stats MUST be derived from coordinator state,
    not accumulated incrementally via the recorder.
  - Recorded stats MUST NOT influence control flow or scheduling.
*/
func (r *Recorder) RecordFinalBatchStats(
	totalTargets int,
	successCount int,
	errorCount int,
	skippedCount int,
	duration time.Duration,
) {
	stats := batchStats{
		totalTargets: totalTargets,
		successCount: successCount,
		errorCount:   errorCount,
		skippedCount: skippedCount,
		durationMs:   duration.Milliseconds(),
	}

	r.logger.Info("batch complete",
		zap.Int("total", stats.totalTargets),
		zap.Int("success", stats.successCount),
		zap.Int("errors", stats.errorCount),
		zap.Int("skipped", stats.skippedCount),
		zap.Int64("duration_ms", stats.durationMs),
	)
}

// NoopSink implements EventSink and BatchFinalizer but does nothing.
// The coordinator (or a test) decides whether to inject Recorder or NoopSink.
// Purpose is to keep metadata orthogonal.

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordAttempt(
	targetLabel string,
	statusCode int,
	duration time.Duration,
	retryCount int,
	waited time.Duration,
) {
}

func (n *NoopSink) RecordAnomaly(targetLabel string, field string, zScore float64) {}

func (n *NoopSink) RecordFallback(targetLabel string, strategy string, attrs []Attribute) {}

func (n *NoopSink) RecordFinalBatchStats(
	totalTargets int,
	successCount int,
	errorCount int,
	skippedCount int,
	duration time.Duration,
) {
}
