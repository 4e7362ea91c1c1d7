package timeseries

import (
	"fmt"
	"math"

	"bizmetrics/domain/core"
)

// DefaultMovingAverageWindow is the smoothing window used when none is given
const DefaultMovingAverageWindow = 7

// TrendOptions parameterises AnalyzeTrend
type TrendOptions struct {
	Window      int     `json:"window"`
	ZThreshold  float64 `json:"z_threshold"`
	FlatEpsilon float64 `json:"flat_epsilon"`
}

// DefaultTrendOptions returns the documented defaults
func DefaultTrendOptions() TrendOptions {
	return TrendOptions{
		Window:      DefaultMovingAverageWindow,
		ZThreshold:  DefaultOutlierZThreshold,
		FlatEpsilon: DefaultTrendFlatEpsilon,
	}
}

// FlagKind names what a flag reports on
type FlagKind string

const (
	FlagOutlier FlagKind = "outlier"
	FlagTrend   FlagKind = "trend"
)

// TrendPoint is one annotated observation
type TrendPoint struct {
	Index         int        `json:"index"`
	Value         core.Value `json:"value"`
	MovingAverage core.Value `json:"moving_average"`
	ZScore        core.Value `json:"z_score"`
	Outlier       bool       `json:"outlier"`
}

// Flag is a notable feature of the series
type Flag struct {
	Kind    FlagKind `json:"kind"`
	Index   int      `json:"index"` // -1 for series-level flags
	Message string   `json:"message"`
}

// TrendAnalysis is the output of AnalyzeTrend
type TrendAnalysis struct {
	Points []TrendPoint `json:"points"`
	Flags  []Flag       `json:"flags"`
	Trend  Trend        `json:"trend"`
}

// AnalyzeTrend annotates every point with its trailing moving average and
// z-score, flags outliers beyond opts.ZThreshold and adds one series-level
// trend flag unless the series is flat or too short.
func AnalyzeTrend(series []float64, opts TrendOptions) (TrendAnalysis, error) {
	moving, err := MovingAverage(series, opts.Window)
	if err != nil {
		return TrendAnalysis{}, err
	}
	if opts.ZThreshold <= 0 {
		return TrendAnalysis{}, core.NewInvalidInputError("z_threshold", "must be positive, got %g", opts.ZThreshold)
	}
	trend, err := DetectTrend(series, opts.FlatEpsilon)
	if err != nil {
		return TrendAnalysis{}, err
	}

	z := ZScores(series)
	out := TrendAnalysis{Points: make([]TrendPoint, len(series)), Flags: []Flag{}, Trend: trend}
	for i, v := range series {
		point := TrendPoint{Index: i, Value: core.Some(v), MovingAverage: moving[i], ZScore: z[i]}
		if score, ok := z[i].Float(); ok && math.Abs(score) > opts.ZThreshold {
			point.Outlier = true
			out.Flags = append(out.Flags, Flag{
				Kind:    FlagOutlier,
				Index:   i,
				Message: fmt.Sprintf("value %g is %.2f standard deviations from the mean", v, score),
			})
		}
		out.Points[i] = point
	}

	if trend.Direction == DirectionUp || trend.Direction == DirectionDown {
		out.Flags = append(out.Flags, Flag{
			Kind:    FlagTrend,
			Index:   -1,
			Message: fmt.Sprintf("%s %s trend, slope %.4f per step", trend.Strength, trend.Direction, trend.Slope),
		})
	}
	return out, nil
}
