package history

import (
	"fmt"

	"github.com/metricspider/metricspider/internal/metrics"
)

// CorrelatorOptions tunes the consistency check. The minimum-points and
// window constants were tuned empirically on real collection data; they
// are options so platforms can adjust them.
type CorrelatorOptions struct {
	// MinPoints is how many historical points a field needs before the
	// correlator activates for it.
	MinPoints int
	// Window is how many recent points bound the plausible range.
	Window int
	// UpperBand and LowerBand scale the window's max/min into the
	// plausible range: flag above max×UpperBand or below min×LowerBand.
	UpperBand float64
	LowerBand float64
}

func DefaultCorrelatorOptions() CorrelatorOptions {
	return CorrelatorOptions{
		MinPoints: 3,
		Window:    7,
		UpperBand: 1.2,
		LowerBand: 0.8,
	}
}

// Trend describes a field's recent direction, for observability only.
// It never influences the pass/fail decision.
type Trend struct {
	AvgDelta  float64
	Direction string
}

// Correlation is the result of comparing a new snapshot against history.
type Correlation struct {
	IsConsistent     bool
	CorrelationScore float64
	Anomalies        []string
	Trends           map[string]Trend
}

type Correlator struct {
	opts CorrelatorOptions
}

func NewCorrelator(opts CorrelatorOptions) Correlator {
	defaults := DefaultCorrelatorOptions()
	if opts.MinPoints < 1 {
		opts.MinPoints = defaults.MinPoints
	}
	if opts.Window < 1 {
		opts.Window = defaults.Window
	}
	if opts.UpperBand <= 0 {
		opts.UpperBand = defaults.UpperBand
	}
	if opts.LowerBand <= 0 {
		opts.LowerBand = defaults.LowerBand
	}
	return Correlator{opts: opts}
}

// Correlate compares each numeric field of the new snapshot against the
// min/max of its recent history window. With fewer than MinPoints of
// history the field is treated as consistent (insufficient data).
func (c Correlator) Correlate(targetKey string, fields *metrics.RawFields, series *Series) Correlation {
	result := Correlation{
		IsConsistent:     true,
		CorrelationScore: 1.0,
		Trends:           make(map[string]Trend),
	}
	if fields == nil || series == nil {
		return result
	}

	var checked, consistent int
	for _, name := range fields.NumberNames() {
		values := series.Tail(name, c.opts.Window)
		if len(values) < c.opts.MinPoints {
			continue
		}
		checked++

		current, _ := fields.Number(name)
		min, max := bounds(values)

		result.Trends[name] = trend(values, current)

		if current > max*c.opts.UpperBand {
			result.Anomalies = append(result.Anomalies,
				fmt.Sprintf("%s: %s=%v above recent max %v", targetKey, name, current, max))
			continue
		}
		if current < min*c.opts.LowerBand {
			result.Anomalies = append(result.Anomalies,
				fmt.Sprintf("%s: %s=%v below recent min %v", targetKey, name, current, min))
			continue
		}
		consistent++
	}

	if checked > 0 {
		result.CorrelationScore = float64(consistent) / float64(checked)
		result.IsConsistent = consistent == checked
	}
	return result
}

func bounds(values []float64) (min, max float64) {
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// trend computes the average per-observation delta across the window plus
// the new value, and a coarse direction label.
func trend(values []float64, current float64) Trend {
	all := append(append([]float64{}, values...), current)
	deltaSum := 0.0
	for i := 1; i < len(all); i++ {
		deltaSum += all[i] - all[i-1]
	}
	avg := deltaSum / float64(len(all)-1)

	direction := "flat"
	switch {
	case avg > 0:
		direction = "rising"
	case avg < 0:
		direction = "falling"
	}
	return Trend{AvgDelta: avg, Direction: direction}
}
