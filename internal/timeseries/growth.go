package timeseries

import (
	"bizmetrics/domain/core"
)

// Growth is (current - previous) / previous expressed as a percentage. It is
// undefined when previous is zero.
func Growth(current, previous float64) core.Value {
	if previous == 0 {
		return core.Undefined()
	}
	return core.Some((current - previous) / previous * 100)
}

// GrowthPoint compares a bucket with the one lag positions earlier
type GrowthPoint struct {
	Label     string     `json:"label"`
	Value     core.Value `json:"value"`
	Previous  core.Value `json:"previous"`
	Change    core.Value `json:"change"`
	GrowthPct core.Value `json:"growth_pct"`
}

// GrowthSeries computes growth between each bucket and the bucket lag
// positions before it. The first lag points have no previous value.
func GrowthSeries(buckets []Bucket, lag int) ([]GrowthPoint, error) {
	if lag < 1 {
		return nil, core.NewInvalidInputError("lag", "must be at least 1, got %d", lag)
	}
	out := make([]GrowthPoint, len(buckets))
	for i, b := range buckets {
		point := GrowthPoint{Label: b.Label, Value: b.Value}
		if i >= lag {
			point.Previous = buckets[i-lag].Value
			point.Change, point.GrowthPct = compare(b.Value, point.Previous)
		}
		out[i] = point
	}
	return out, nil
}

func compare(current, previous core.Value) (change, growth core.Value) {
	c, okC := current.Float()
	p, okP := previous.Float()
	if !okC || !okP {
		return core.Undefined(), core.Undefined()
	}
	return core.Some(c - p), Growth(c, p)
}
