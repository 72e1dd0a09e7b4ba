package metadata

import "time"

// AttemptEvent captures one adapter call, successful or not.
type AttemptEvent struct {
	targetLabel string
	statusCode  int
	duration    time.Duration
	retryCount  int
	waited      time.Duration
}

/*
batchStats
  - Represents a terminal, derived summary of a completed batch
  - Contains only aggregate counts and durations
  - Is computed by the coordinator after batch termination
  - Is recorded exactly once
  - Must not influence scheduling, retries, or batch termination
*/
type batchStats struct {
	totalTargets int
	successCount int
	errorCount   int
	skippedCount int
	durationMs   int64
}

/*
ErrorCause is a closed, canonical classification used exclusively for
observability (logging, metrics, reporting).

Rules:
  - ErrorCause is for observability only.
  - It must never be used to derive retry, continuation, or abort decisions.
  - Engine packages MAY map their local errors to ErrorCause,
    but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseRateLimited
	CauseTargetMissing
	CauseAccessDenied
	CauseContentInvalid
	CauseStorageFailure
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseRateLimited:
		return "rate_limited"
	case CauseTargetMissing:
		return "target_missing"
	case CauseAccessDenied:
		return "access_denied"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

// AttrKey names an attribute attached to a recorded event.
type AttrKey string

const (
	AttrTarget   AttrKey = "target"
	AttrPlatform AttrKey = "platform"
	AttrField    AttrKey = "field"
	AttrStrategy AttrKey = "strategy"
	AttrZScore   AttrKey = "z_score"
	AttrScore    AttrKey = "score"
)

type Attribute struct {
	key   AttrKey
	value string
}

func NewAttr(key AttrKey, value string) Attribute {
	return Attribute{key: key, value: value}
}

func (a Attribute) Key() AttrKey {
	return a.key
}

func (a Attribute) Value() string {
	return a.value
}
