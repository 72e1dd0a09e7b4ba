package anomaly

import (
	"fmt"
	"math"

	"github.com/metricspider/metricspider/internal/history"
	"github.com/metricspider/metricspider/internal/metrics"
)

// DetectorOptions tunes the statistical outlier check. MinPoints is a
// policy choice tuned empirically, so it is configurable per platform.
type DetectorOptions struct {
	// MinPoints is how many valid historical points a field needs before
	// a z-score is computable. Below it no anomaly is possible.
	MinPoints int
	// ZThreshold flags values whose |z| exceeds it.
	ZThreshold float64
}

func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{
		MinPoints:  3,
		ZThreshold: 3.0,
	}
}

type Detector struct {
	opts DetectorOptions
}

func NewDetector(opts DetectorOptions) Detector {
	defaults := DefaultDetectorOptions()
	if opts.MinPoints < 2 {
		opts.MinPoints = defaults.MinPoints
	}
	if opts.ZThreshold <= 0 {
		opts.ZThreshold = defaults.ZThreshold
	}
	return Detector{opts: opts}
}

// Detect computes a z-score for every numeric field with enough history.
// A zero standard deviation carries no signal and is skipped.
func (d Detector) Detect(targetKey string, fields *metrics.RawFields, series *history.Series) Report {
	report := Report{
		ZScores: make(map[string]float64),
	}
	if fields == nil || series == nil {
		return report
	}

	for _, name := range fields.NumberNames() {
		values := series.Values(name)
		if len(values) < d.opts.MinPoints {
			continue
		}

		mean, std := meanAndSampleStd(values)
		if std == 0 {
			continue
		}

		value, _ := fields.Number(name)
		z := (value - mean) / std
		report.ZScores[name] = z

		if math.Abs(z) > d.opts.ZThreshold {
			report.HasAnomalies = true
			report.Anomalies = append(report.Anomalies, FieldAnomaly{
				Field:  name,
				Value:  value,
				Mean:   mean,
				StdDev: std,
				ZScore: z,
				Description: fmt.Sprintf("%s: %s=%v deviates from mean %.2f by %.2f standard deviations",
					targetKey, name, value, mean, math.Abs(z)),
			})
		}
	}
	return report
}

func meanAndSampleStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / n

	if len(values) < 2 {
		return mean, 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / (n - 1))
}
