package timeseries

import (
	"math"
	"testing"

	"bizmetrics/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowth(t *testing.T) {
	assert.InDelta(t, 25.0, Growth(125, 100).OrElse(math.NaN()), 1e-9)
	assert.InDelta(t, -50.0, Growth(50, 100).OrElse(math.NaN()), 1e-9)
	assert.False(t, Growth(10, 0).IsDefined(), "growth from zero is undefined")
	assert.False(t, Growth(0, 0).IsDefined())
}

func TestGrowthSeries(t *testing.T) {
	buckets := []Bucket{
		{Label: "2024-01", Value: core.Some(100)},
		{Label: "2024-02", Value: core.Some(0)},
		{Label: "2024-03", Value: core.Some(50)},
		{Label: "2024-04", Value: core.Some(75)},
	}
	points, err := GrowthSeries(buckets, 1)
	require.NoError(t, err)
	require.Len(t, points, 4)

	assert.False(t, points[0].Previous.IsDefined())
	assert.False(t, points[0].GrowthPct.IsDefined())
	assert.InDelta(t, -100.0, points[1].GrowthPct.OrElse(0), 1e-9)
	assert.False(t, points[2].GrowthPct.IsDefined(), "previous is zero")
	assert.InDelta(t, 50.0, points[2].Change.OrElse(0), 1e-9)
	assert.InDelta(t, 50.0, points[3].GrowthPct.OrElse(0), 1e-9)

	_, err = GrowthSeries(buckets, 0)
	assert.True(t, core.IsInvalidInputError(err))
}

func TestMovingAverage(t *testing.T) {
	got, err := MovingAverage([]float64{1, 2, 3, 4, math.NaN(), 6}, 3)
	require.NoError(t, err)
	require.Len(t, got, 6)

	assert.False(t, got[0].IsDefined())
	assert.False(t, got[1].IsDefined())
	assert.InDelta(t, 2.0, got[2].OrElse(0), 1e-9)
	assert.InDelta(t, 3.0, got[3].OrElse(0), 1e-9)
	assert.False(t, got[4].IsDefined(), "window containing NaN")
	assert.False(t, got[5].IsDefined())

	_, err = MovingAverage([]float64{1}, 0)
	assert.True(t, core.IsInvalidInputError(err))
}

func TestMovingAverage_WindowOfOneIsIdentity(t *testing.T) {
	got, err := MovingAverage([]float64{5, 7}, 1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got[0].OrElse(0))
	assert.Equal(t, 7.0, got[1].OrElse(0))
}
