package anomaly

import (
	"fmt"

	"github.com/metricspider/metricspider/internal/metrics"
)

/*
Corrector policy is deliberately conservative: anomalous values are never
silently rewritten. A large counter jump is only flagged for review, since
it may be real (a post went viral). Substitution happens solely when a strict
validity rule rejects the value outright (a negative counter cannot be
real) and a previous snapshot supplies a replacement.

The corrector always works on a clone; the original result stays intact
so the original/corrected audit trail survives.
*/

// CorrectionResult carries the (possibly cloned-and-adjusted) fields,
// the auditable list of applied transforms, and a confidence grade.
type CorrectionResult struct {
	Corrected  *metrics.RawFields
	Applied    []Correction
	Confidence float64
}

const (
	confidencePenaltyPerAnomaly   = 0.1
	confidencePenaltyInconsistent = 0.2
)

type Corrector struct{}

func NewCorrector() Corrector {
	return Corrector{}
}

// Correct reviews a flagged snapshot. inconsistent reports whether the
// historical correlator rejected the result. previous may be nil.
func (c Corrector) Correct(
	targetKey string,
	fields *metrics.RawFields,
	report Report,
	inconsistent bool,
	previous *metrics.RawFields,
) CorrectionResult {
	result := CorrectionResult{
		Confidence: 1.0,
	}
	if fields == nil {
		result.Confidence = 0
		return result
	}

	corrected := fields.Clone()

	for _, a := range report.Anomalies {
		result.Confidence -= confidencePenaltyPerAnomaly

		// Strict validity rule: counters cannot be negative. Substitute
		// the previous observation when one exists.
		if a.Value < 0 && previous != nil {
			if prior, ok := previous.Number(a.Field); ok {
				corrected.SetNumber(a.Field, prior)
				result.Applied = append(result.Applied, Correction{
					Field:  a.Field,
					Action: ActionSubstituted,
					Detail: fmt.Sprintf("negative value %v replaced with previous %v", a.Value, prior),
				})
				continue
			}
		}

		result.Applied = append(result.Applied, Correction{
			Field:  a.Field,
			Action: ActionFlagged,
			Detail: a.Description,
		})
	}

	if inconsistent {
		result.Confidence -= confidencePenaltyInconsistent
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}

	result.Corrected = corrected
	return result
}
