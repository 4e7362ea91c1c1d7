package timeseries

import (
	"math"

	"bizmetrics/domain/core"

	"gonum.org/v1/gonum/stat"
)

// DefaultTrendFlatEpsilon is the relative slope per step below which a series is flat
const DefaultTrendFlatEpsilon = 0.01

// minTrendPoints is the fewest defined points a fit is attempted on
const minTrendPoints = 3

// Direction of a fitted trend
type Direction string

const (
	DirectionUp               Direction = "up"
	DirectionDown             Direction = "down"
	DirectionFlat             Direction = "flat"
	DirectionInsufficientData Direction = "insufficient_data"
)

// Strength grades the absolute correlation of a fit
type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

// Trend is a least-squares line through a series indexed 0..n-1
type Trend struct {
	Direction      Direction  `json:"direction"`
	Strength       Strength   `json:"strength,omitempty"`
	Slope          float64    `json:"slope"`
	Intercept      float64    `json:"intercept"`
	RelativeSlope  core.Value `json:"relative_slope"`
	Correlation    core.Value `json:"correlation"`
	RSquared       core.Value `json:"r_squared"`
	FirstValue     core.Value `json:"first_value"`
	LastValue      core.Value `json:"last_value"`
	TotalChangePct core.Value `json:"total_change_pct"`
	Points         int        `json:"data_points"`
}

// DetectTrend fits a line through the defined points of values. NaN points are
// dropped but keep their index as x, so gaps do not compress time. The series
// is flat when |slope| / |mean| falls below flatEpsilon; a zero mean with a
// non-zero slope is never flat.
func DetectTrend(values []float64, flatEpsilon float64) (Trend, error) {
	if flatEpsilon < 0 {
		return Trend{}, core.NewInvalidInputError("flat_epsilon", "must not be negative, got %g", flatEpsilon)
	}

	xs := make([]float64, 0, len(values))
	ys := make([]float64, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, v)
	}

	t := Trend{Points: len(ys)}
	if len(ys) < minTrendPoints {
		t.Direction = DirectionInsufficientData
		return t, nil
	}

	t.Intercept, t.Slope = stat.LinearRegression(xs, ys, nil, false)
	t.FirstValue = core.Some(ys[0])
	t.LastValue = core.Some(ys[len(ys)-1])
	t.TotalChangePct = Growth(ys[len(ys)-1], ys[0])

	r := core.Some(stat.Correlation(xs, ys, nil))
	t.Correlation = r
	t.RSquared = core.Some(stat.RSquared(xs, ys, nil, t.Intercept, t.Slope))
	t.Strength = strength(r)

	mean := stat.Mean(ys, nil)
	t.RelativeSlope = core.Ratio(t.Slope, math.Abs(mean))

	switch rel, ok := t.RelativeSlope.Float(); {
	case t.Slope == 0:
		t.Direction = DirectionFlat
	case ok && math.Abs(rel) < flatEpsilon:
		t.Direction = DirectionFlat
	case t.Slope > 0:
		t.Direction = DirectionUp
	default:
		t.Direction = DirectionDown
	}
	return t, nil
}

func strength(r core.Value) Strength {
	c, ok := r.Float()
	switch {
	case !ok:
		return StrengthWeak
	case math.Abs(c) >= 0.7:
		return StrengthStrong
	case math.Abs(c) >= 0.3:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}
