package experiment

import (
	"testing"

	"bizmetrics/domain/core"
	"bizmetrics/domain/experiment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mde(f float64) *float64 { return &f }

func scenario(t *testing.T) experiment.TestResult {
	t.Helper()
	res, err := TwoProportionTest(control(2000, 400), arm("variant_b", 2000, 520), Options{})
	require.NoError(t, err)
	return res
}

func TestDecide_ShipsSignificantWinner(t *testing.T) {
	decision, why := Decide(scenario(t), experiment.Policy{SignificanceLevel: 0.05})
	assert.Equal(t, experiment.DecisionShipVariant, decision)
	assert.Contains(t, why, "variant_b converted at 26.00% vs 20.00% for control")
	assert.Contains(t, why, "+30.00% relative")
	assert.Contains(t, why, "Ship the variant.")
}

func TestDecide_MinimumDetectableEffect(t *testing.T) {
	res := scenario(t)

	decision, why := Decide(res, experiment.Policy{MinimumDetectableEffect: mde(0.5)})
	assert.Equal(t, experiment.DecisionHold, decision)
	assert.Contains(t, why, "below the minimum detectable effect of 50.00%")

	decision, _ = Decide(res, experiment.Policy{MinimumDetectableEffect: mde(0.30)})
	assert.Equal(t, experiment.DecisionShipVariant, decision, "a lift equal to the MDE ships")
}

func TestDecide_SignificantlyWorseHolds(t *testing.T) {
	res, err := TwoProportionTest(control(2000, 520), arm("variant_b", 2000, 400), Options{})
	require.NoError(t, err)

	decision, why := Decide(res, experiment.Policy{})
	assert.Equal(t, experiment.DecisionHold, decision)
	assert.Contains(t, why, "significantly worse")
}

func TestDecide_UndefinedRelativeLiftWithMDEHolds(t *testing.T) {
	res, err := TwoProportionTest(control(1000, 0), arm("b", 1000, 30), Options{})
	require.NoError(t, err)

	decision, _ := Decide(res, experiment.Policy{})
	assert.Equal(t, experiment.DecisionShipVariant, decision)

	decision, why := Decide(res, experiment.Policy{MinimumDetectableEffect: mde(0.1)})
	assert.Equal(t, experiment.DecisionHold, decision)
	assert.Contains(t, why, "control rate is zero")
}

func TestDecide_InconclusiveNotesPower(t *testing.T) {
	res, err := TwoProportionTest(control(100, 10), arm("b", 100, 12), Options{})
	require.NoError(t, err)

	decision, why := Decide(res, experiment.Policy{})
	assert.Equal(t, experiment.DecisionInconclusive, decision)
	assert.Contains(t, why, "not significant")
	assert.Contains(t, why, "underpowered")
	assert.Contains(t, why, "users per arm")
}

func TestDecide_IsDeterministic(t *testing.T) {
	res := scenario(t)
	d1, w1 := Decide(res, experiment.Policy{})
	d2, w2 := Decide(res, experiment.Policy{})
	assert.Equal(t, d1, d2)
	assert.Equal(t, w1, w2)
}

func TestDecide_PolicyAlphaOverridesTestAlpha(t *testing.T) {
	res, err := TwoProportionTest(control(1000, 100), arm("b", 1000, 128), Options{})
	require.NoError(t, err)
	require.Less(t, res.PValue, 0.05)
	require.Greater(t, res.PValue, 0.01)

	loose, _ := Decide(res, experiment.Policy{})
	strict, _ := Decide(res, experiment.Policy{SignificanceLevel: 0.01})
	assert.Equal(t, experiment.DecisionShipVariant, loose)
	assert.Equal(t, experiment.DecisionInconclusive, strict)
}

func TestAnalyze_OneSummaryPerTreatment(t *testing.T) {
	variants := []experiment.VariantResult{
		arm("variant_c", 2000, 410),
		control(2000, 400),
		arm("variant_b", 2000, 520),
	}
	summaries, err := Analyze(variants, Options{}, experiment.Policy{})
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "variant_c", summaries[0].TreatmentVariant)
	assert.Equal(t, experiment.DecisionInconclusive, summaries[0].Decision)
	assert.Equal(t, "variant_b", summaries[1].TreatmentVariant)
	assert.Equal(t, "control", summaries[1].ControlVariant)
	assert.Equal(t, experiment.DecisionShipVariant, summaries[1].Decision)
	assert.NotEmpty(t, summaries[1].Rationale)
}

func TestAnalyze_Validation(t *testing.T) {
	cases := map[string][]experiment.VariantResult{
		"no control":    {arm("a", 10, 1), arm("b", 10, 2)},
		"two controls":  {control(10, 1), control(10, 2)},
		"no treatment":  {control(10, 1)},
		"unnamed arm":   {control(10, 1), arm(" ", 10, 2)},
		"duplicate arm": {control(10, 1), arm("control", 10, 2)},
		"bad counts":    {control(10, 1), arm("b", 10, 20)},
	}
	for name, variants := range cases {
		_, err := Analyze(variants, Options{}, experiment.Policy{})
		assert.True(t, core.IsInvalidInputError(err), name)
	}

	_, err := Analyze([]experiment.VariantResult{control(10, 1), arm("b", 10, 2)}, Options{},
		experiment.Policy{MinimumDetectableEffect: mde(-0.1)})
	assert.True(t, core.IsInvalidInputError(err))
}
