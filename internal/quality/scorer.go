package quality

import (
	"fmt"
	"math"

	"github.com/metricspider/metricspider/internal/metrics"
)

// Scorer blends completeness, field validity, and cross-field consistency
// into a single quality score in [0,1].
type Scorer struct {
	validator Validator
}

func NewScorer(validator Validator) Scorer {
	return Scorer{validator: validator}
}

// Score grades one result against the validator's rules. previous may be
// nil; platform may be empty.
func (s Scorer) Score(fields *metrics.RawFields, previous *metrics.RawFields, platform string) QualityScore {
	if fields == nil {
		return QualityScore{Issues: []string{"no fields to score"}}
	}

	score := QualityScore{}

	// completeness: fraction of required fields present
	required := s.validator.opts.RequiredFields
	if len(required) == 0 {
		score.Completeness = 1
	} else {
		var present int
		for _, name := range required {
			if _, ok := fields.Number(name); ok {
				present++
			} else {
				score.Issues = append(score.Issues, fmt.Sprintf("missing %q", name))
			}
		}
		score.Completeness = float64(present) / float64(len(required))
	}

	// validity: fraction of numeric fields passing sanity rules
	names := fields.NumberNames()
	if len(names) == 0 {
		score.Validity = 0
		score.Issues = append(score.Issues, "no numeric fields")
	} else {
		ceilings := s.validator.opts.Ceilings[platform]
		var valid int
		for _, name := range names {
			value, _ := fields.Number(name)
			if value < 0 {
				score.Issues = append(score.Issues, fmt.Sprintf("negative %q", name))
				continue
			}
			if ceiling, ok := ceilings[name]; ok && value > ceiling {
				score.Issues = append(score.Issues, fmt.Sprintf("implausible %q", name))
				continue
			}
			valid++
		}
		score.Validity = float64(valid) / float64(len(names))
	}

	score.Consistency = consistency(fields, &score)

	score.Score = clamp01(score.Completeness*weightCompleteness +
		score.Validity*weightValidity +
		score.Consistency*weightConsistency)
	return score
}

// consistency checks cross-field arithmetic: the engagement total must
// equal the sum of its components when all are reported. Nothing to
// check counts as consistent.
func consistency(fields *metrics.RawFields, score *QualityScore) float64 {
	total, okT := fields.Number(metrics.FieldEngagementTotal)
	likes, okL := fields.Number(metrics.FieldLikes)
	comments, okC := fields.Number(metrics.FieldComments)
	shares, okS := fields.Number(metrics.FieldShares)

	if !okT || !okL || !okC || !okS {
		return 1
	}

	sum := likes + comments + shares
	if math.Abs(total-sum) <= 0.5 {
		return 1
	}
	score.Issues = append(score.Issues,
		fmt.Sprintf("engagement_total %v does not match likes+comments+shares %v", total, sum))
	return 0
}
