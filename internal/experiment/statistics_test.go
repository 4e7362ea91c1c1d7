package experiment

import (
	"math"
	"testing"

	"bizmetrics/domain/core"
	"bizmetrics/domain/experiment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arm(name string, users, conversions int64) experiment.VariantResult {
	return experiment.VariantResult{Name: name, Users: users, Conversions: conversions}
}

func control(users, conversions int64) experiment.VariantResult {
	v := arm("control", users, conversions)
	v.IsControl = true
	return v
}

func TestTwoProportionTest_CheckoutScenario(t *testing.T) {
	res, err := TwoProportionTest(control(2000, 400), arm("variant_b", 2000, 520), Options{})
	require.NoError(t, err)

	assert.InDelta(t, 0.20, res.ControlRate, 1e-12)
	assert.InDelta(t, 0.26, res.TreatmentRate, 1e-12)
	assert.InDelta(t, 0.06, res.AbsoluteLift, 1e-12)
	assert.InDelta(t, 0.30, res.RelativeLift.OrElse(0), 1e-9)
	assert.InDelta(t, 0.23, res.PooledRate, 1e-12)
	assert.InDelta(t, 4.5086, res.ZScore, 1e-3)
	assert.InDelta(t, 6.5e-6, res.PValue, 0.2e-6)

	assert.InDelta(t, 0.0340, res.ConfidenceInterval[0], 1e-3)
	assert.InDelta(t, 0.0860, res.ConfidenceInterval[1], 1e-3)
	assert.Greater(t, res.Power, 0.99)
	assert.Equal(t, experiment.DefaultSignificanceLevel, res.SignificanceLevel)
	assert.Equal(t, experiment.DefaultConfidenceLevel, res.ConfidenceLevel)
	assert.Empty(t, res.Warnings)
}

func TestTwoProportionTest_SwappingArmsIsSymmetric(t *testing.T) {
	a, b := control(2000, 400), arm("variant_b", 2000, 520)
	forward, err := TwoProportionTest(a, b, Options{})
	require.NoError(t, err)
	backward, err := TwoProportionTest(b, a, Options{})
	require.NoError(t, err)

	assert.InDelta(t, -forward.ZScore, backward.ZScore, 1e-12)
	assert.InDelta(t, -forward.AbsoluteLift, backward.AbsoluteLift, 1e-12)
	assert.InDelta(t, forward.PValue, backward.PValue, 1e-15)
	assert.InDelta(t, forward.Power, backward.Power, 1e-12)
}

func TestTwoProportionTest_PValueShrinksWithSampleSize(t *testing.T) {
	prev := 1.0
	for _, n := range []int64{250, 500, 1000, 2000, 4000, 8000} {
		res, err := TwoProportionTest(control(n, n/10), arm("b", n, n*12/100), Options{})
		require.NoError(t, err)
		assert.Less(t, res.PValue, prev, "n=%d", n)
		prev = res.PValue
	}
}

func TestTwoProportionTest_ConfidenceLevelWidensInterval(t *testing.T) {
	narrow, err := TwoProportionTest(control(1000, 100), arm("b", 1000, 130), Options{ConfidenceLevel: 0.90})
	require.NoError(t, err)
	wide, err := TwoProportionTest(control(1000, 100), arm("b", 1000, 130), Options{ConfidenceLevel: 0.99})
	require.NoError(t, err)

	assert.Less(t, wide.ConfidenceInterval[0], narrow.ConfidenceInterval[0])
	assert.Greater(t, wide.ConfidenceInterval[1], narrow.ConfidenceInterval[1])
}

func TestTwoProportionTest_Validation(t *testing.T) {
	cases := []struct {
		name      string
		control   experiment.VariantResult
		treatment experiment.VariantResult
		opts      Options
	}{
		{"zero users", control(0, 0), arm("b", 10, 1), Options{}},
		{"negative users", control(-5, 0), arm("b", 10, 1), Options{}},
		{"negative conversions", control(10, -1), arm("b", 10, 1), Options{}},
		{"conversions exceed users", control(10, 1), arm("b", 10, 11), Options{}},
		{"alpha too large", control(10, 1), arm("b", 10, 1), Options{SignificanceLevel: 1}},
		{"negative alpha", control(10, 1), arm("b", 10, 1), Options{SignificanceLevel: -0.05}},
		{"confidence above one", control(10, 1), arm("b", 10, 1), Options{ConfidenceLevel: 1.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := TwoProportionTest(tc.control, tc.treatment, tc.opts)
			require.Error(t, err)
			assert.True(t, core.IsInvalidInputError(err))
		})
	}
}

func TestTwoProportionTest_DegenerateCounts(t *testing.T) {
	res, err := TwoProportionTest(control(500, 0), arm("b", 500, 0), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.ZScore)
	assert.Equal(t, 1.0, res.PValue)
	assert.Equal(t, [2]float64{0, 0}, res.ConfidenceInterval)
	assert.Equal(t, experiment.DefaultSignificanceLevel, res.Power)
	assert.False(t, res.RelativeLift.IsDefined())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, core.WarningZeroDenominator, res.Warnings[0].Code)

	all, err := TwoProportionTest(control(50, 50), arm("b", 80, 80), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, all.PValue)
	assert.InDelta(t, 0.0, all.RelativeLift.OrElse(math.NaN()), 1e-12)

	for _, f := range []float64{res.ZScore, res.PValue, res.Power, all.ZScore, all.Power} {
		assert.False(t, math.IsNaN(f) || math.IsInf(f, 0))
	}
}

func TestTwoProportionTest_ZeroControlWithConversions(t *testing.T) {
	res, err := TwoProportionTest(control(1000, 0), arm("b", 1000, 30), Options{})
	require.NoError(t, err)
	assert.Less(t, res.PValue, 0.001)
	assert.True(t, res.Power > 0.99 && res.Power <= 1, "power is a probability")
	assert.False(t, res.RelativeLift.IsDefined())
}

func TestRequiredSampleSize(t *testing.T) {
	n, err := RequiredSampleSize(0.20, 0.30, 0.05, 0.8)
	require.NoError(t, err)
	assert.InDelta(t, 772, float64(n), 1)

	bigger, err := RequiredSampleSize(0.20, 0.10, 0.05, 0.8)
	require.NoError(t, err)
	assert.Greater(t, bigger, n, "smaller effects need more users")

	_, err = RequiredSampleSize(0, 0.1, 0.05, 0.8)
	assert.Error(t, err)
	_, err = RequiredSampleSize(0.6, 1, 0.05, 0.8)
	assert.Error(t, err)
	_, err = RequiredSampleSize(0.2, 0, 0.05, 0.8)
	assert.Error(t, err)
}

func TestOptionsResolve(t *testing.T) {
	got, err := Options{}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), got)

	got, err = Options{SignificanceLevel: 0.01}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 0.01, got.SignificanceLevel)
	assert.Equal(t, 0.95, got.ConfidenceLevel)

	_, err = Options{ConfidenceLevel: 1.2}.Resolve()
	assert.True(t, core.IsInvalidInputError(err))
}
