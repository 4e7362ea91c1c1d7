package timeseries

import (
	"math"

	"bizmetrics/domain/core"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultOutlierZThreshold flags points more than three standard deviations from the mean
	DefaultOutlierZThreshold = 3.0
	// DefaultIQRMultiplier is Tukey's fence multiplier
	DefaultIQRMultiplier = 1.5
)

// Outlier method names
const (
	MethodZScore = "zscore"
	MethodIQR    = "iqr"
)

// Outlier is a flagged point
type Outlier struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
	// Score is undefined when the series has no spread to measure against
	Score  core.Value `json:"score"`
	Method string     `json:"method"`
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// ZScores returns each point's distance from the series mean in sample
// standard deviations. All scores are undefined when the deviation is zero or
// fewer than two finite points exist.
func ZScores(values []float64) []core.Value {
	out := make([]core.Value, len(values))
	clean := finite(values)
	if len(clean) < 2 {
		return out
	}
	mean, std := stat.MeanStdDev(clean, nil)
	if std == 0 {
		return out
	}
	for i, v := range values {
		out[i] = core.Some((v - mean) / std)
	}
	return out
}

// DetectOutliers flags points whose absolute z-score exceeds threshold.
func DetectOutliers(values []float64, threshold float64) ([]Outlier, error) {
	if threshold <= 0 {
		return nil, core.NewInvalidInputError("z_threshold", "must be positive, got %g", threshold)
	}
	var out []Outlier
	for i, z := range ZScores(values) {
		score, ok := z.Float()
		if ok && math.Abs(score) > threshold {
			out = append(out, Outlier{Index: i, Value: values[i], Score: z, Method: MethodZScore})
		}
	}
	return out, nil
}

// IQROutliers flags points outside [Q1 - k*IQR, Q3 + k*IQR]. Score is the
// distance beyond the violated fence in IQR units, undefined when IQR is 0.
func IQROutliers(values []float64, k float64) ([]Outlier, error) {
	if k <= 0 {
		return nil, core.NewInvalidInputError("iqr_multiplier", "must be positive, got %g", k)
	}
	clean := finite(values)
	if len(clean) < 4 {
		return nil, nil
	}
	q, err := stats.Quartile(clean)
	if err != nil {
		return nil, err
	}
	iqr := q.Q3 - q.Q1
	lower, upper := q.Q1-k*iqr, q.Q3+k*iqr

	var out []Outlier
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		var beyond float64
		switch {
		case v < lower:
			beyond = lower - v
		case v > upper:
			beyond = v - upper
		default:
			continue
		}
		out = append(out, Outlier{Index: i, Value: v, Score: core.Ratio(beyond, iqr), Method: MethodIQR})
	}
	return out, nil
}
