package quality

import (
	"fmt"
	"math"

	"github.com/metricspider/metricspider/internal/metrics"
)

/*
Responsibilities
- Check required numeric fields for presence and sanity
- Apply per-platform plausibility ceilings
- Compare against the previous snapshot for implausible swings

Platforms rarely lose followers fast; a large drop usually indicates a
scraping error, not reality, so drops are issues while equally large
increases are only warnings.
*/

// ValidatorOptions tunes the validation rules. Zero values fall back to
// the defaults below.
type ValidatorOptions struct {
	// RequiredFields must be present and non-negative.
	RequiredFields []string
	// Ceilings caps a field's plausible value per platform.
	// Outer key is the platform, inner key the field name.
	Ceilings map[string]map[string]float64
	// ChangeWarnFraction flags any change beyond this fraction as a warning.
	ChangeWarnFraction float64
	// DropIssueFraction flags follower decreases beyond this fraction as issues.
	DropIssueFraction float64
}

func DefaultValidatorOptions() ValidatorOptions {
	return ValidatorOptions{
		RequiredFields:     []string{metrics.FieldFollowers, metrics.FieldPosts},
		ChangeWarnFraction: 0.50,
		DropIssueFraction:  0.10,
		Ceilings: map[string]map[string]float64{
			// no single account plausibly exceeds these
			"twitter":   {metrics.FieldFollowers: 500e6},
			"instagram": {metrics.FieldFollowers: 700e6},
			"tiktok":    {metrics.FieldFollowers: 200e6},
			"youtube":   {metrics.FieldFollowers: 300e6},
		},
	}
}

type Validator struct {
	opts ValidatorOptions
}

func NewValidator(opts ValidatorOptions) Validator {
	defaults := DefaultValidatorOptions()
	if len(opts.RequiredFields) == 0 {
		opts.RequiredFields = defaults.RequiredFields
	}
	if opts.ChangeWarnFraction <= 0 {
		opts.ChangeWarnFraction = defaults.ChangeWarnFraction
	}
	if opts.DropIssueFraction <= 0 {
		opts.DropIssueFraction = defaults.DropIssueFraction
	}
	if opts.Ceilings == nil {
		opts.Ceilings = defaults.Ceilings
	}
	return Validator{opts: opts}
}

// Validate checks one result. previous may be nil (first observation);
// platform may be empty when no ceiling applies.
func (v Validator) Validate(fields *metrics.RawFields, previous *metrics.RawFields, platform string) ValidationResult {
	result := ValidationResult{
		IsValid:    true,
		Confidence: 1.0,
	}
	if fields == nil {
		result.IsValid = false
		result.Confidence = 0
		result.Issues = append(result.Issues, "no fields to validate")
		return result
	}

	for _, name := range v.opts.RequiredFields {
		value, ok := fields.Number(name)
		if !ok {
			result.Issues = append(result.Issues, fmt.Sprintf("required field %q missing", name))
			result.Confidence -= penaltyMissingRequired
			continue
		}
		if value < 0 {
			result.Issues = append(result.Issues, fmt.Sprintf("field %q is negative: %v", name, value))
			result.Confidence -= penaltyNegativeValue
		}
	}

	if ceilings, ok := v.opts.Ceilings[platform]; ok {
		for name, ceiling := range ceilings {
			if value, ok := fields.Number(name); ok && value > ceiling {
				result.Issues = append(result.Issues,
					fmt.Sprintf("field %q exceeds plausible ceiling for %s: %v > %v", name, platform, value, ceiling))
				result.Confidence -= penaltyCeilingExceeded
			}
		}
	}

	if previous != nil {
		v.compareSnapshots(fields, previous, &result)
	}

	result.Confidence = clamp01(result.Confidence)
	if len(result.Issues) > 0 {
		result.IsValid = false
	}
	return result
}

func (v Validator) compareSnapshots(fields, previous *metrics.RawFields, result *ValidationResult) {
	for _, name := range fields.NumberNames() {
		current, _ := fields.Number(name)
		prior, ok := previous.Number(name)
		if !ok || prior == 0 {
			continue
		}

		change := (current - prior) / math.Abs(prior)

		if name == metrics.FieldFollowers && change < -v.opts.DropIssueFraction {
			result.Issues = append(result.Issues,
				fmt.Sprintf("followers dropped %.1f%% since previous snapshot", -change*100))
			result.Confidence -= penaltyFollowerDrop
			continue
		}

		if math.Abs(change) > v.opts.ChangeWarnFraction {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("field %q changed %.1f%% since previous snapshot", name, change*100))
			result.Confidence -= penaltyLargeChange
		}
	}
}
