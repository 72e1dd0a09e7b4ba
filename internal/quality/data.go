package quality

// QualityScore grades one result. A pure function of the fields plus an
// optional previous snapshot; it carries no persisted identity.
type QualityScore struct {
	// Score is the weighted blend, always within [0,1].
	Score        float64
	Completeness float64
	Validity     float64
	Consistency  float64
	Issues       []string
}

// ValidationResult reports whether a result may be trusted and why not.
// Issues invalidate; warnings only lower confidence.
type ValidationResult struct {
	IsValid    bool
	Confidence float64
	Issues     []string
	Warnings   []string
}

// Weighting of the quality blend.
const (
	weightCompleteness = 0.4
	weightValidity     = 0.4
	weightConsistency  = 0.2
)

// Confidence decrements per violation class.
const (
	penaltyMissingRequired = 0.3
	penaltyNegativeValue   = 0.3
	penaltyCeilingExceeded = 0.4
	penaltyFollowerDrop    = 0.3
	penaltyLargeChange     = 0.1
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
