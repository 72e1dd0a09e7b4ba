package anomaly

// FieldAnomaly describes one statistically implausible value.
type FieldAnomaly struct {
	Field       string
	Value       float64
	Mean        float64
	StdDev      float64
	ZScore      float64
	Description string
}

// Report is the detector's verdict for one snapshot against history.
type Report struct {
	HasAnomalies bool
	Anomalies    []FieldAnomaly
	// ZScores holds the computed z-score per checked field, including
	// fields that were not flagged.
	ZScores map[string]float64
}

// Correction records one auditable transform applied by the corrector.
type Correction struct {
	Field  string
	Action string
	Detail string
}

const (
	// ActionFlagged marks an anomaly left unmodified for review.
	ActionFlagged = "flagged"
	// ActionSubstituted marks a value replaced by the previous snapshot's.
	ActionSubstituted = "substituted_previous"
)
