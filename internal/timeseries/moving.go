package timeseries

import (
	"math"

	"bizmetrics/domain/core"
)

// MovingAverage returns the trailing mean over window points. The first
// window-1 points, and any window containing NaN, are undefined.
func MovingAverage(values []float64, window int) ([]core.Value, error) {
	if window < 1 {
		return nil, core.NewInvalidInputError("window", "must be at least 1, got %d", window)
	}
	out := make([]core.Value, len(values))
	for i := range values {
		if i < window-1 {
			out[i] = core.Undefined()
			continue
		}
		sum := 0.0
		ok := true
		for _, v := range values[i-window+1 : i+1] {
			if math.IsNaN(v) {
				ok = false
				break
			}
			sum += v
		}
		if !ok {
			out[i] = core.Undefined()
			continue
		}
		out[i] = core.Some(sum / float64(window))
	}
	return out, nil
}
