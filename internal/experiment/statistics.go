// Package experiment implements the two-proportion z-test used to analyse A/B
// conversion experiments and the policy that turns a test into a decision.
package experiment

import (
	"fmt"
	"math"

	"bizmetrics/domain/core"
	"bizmetrics/domain/experiment"

	"gonum.org/v1/gonum/stat/distuv"
)

// Options carries the test levels. Zero values select the defaults.
type Options struct {
	SignificanceLevel float64 `json:"significance_level"`
	ConfidenceLevel   float64 `json:"confidence_level"`
}

// DefaultOptions returns alpha 0.05 and a 95% interval
func DefaultOptions() Options {
	return Options{
		SignificanceLevel: experiment.DefaultSignificanceLevel,
		ConfidenceLevel:   experiment.DefaultConfidenceLevel,
	}
}

func (o Options) withDefaults() Options {
	if o.SignificanceLevel == 0 {
		o.SignificanceLevel = experiment.DefaultSignificanceLevel
	}
	if o.ConfidenceLevel == 0 {
		o.ConfidenceLevel = experiment.DefaultConfidenceLevel
	}
	return o
}

// Resolve applies the defaults and validates the levels
func (o Options) Resolve() (Options, error) {
	o = o.withDefaults()
	return o, o.validate()
}

func (o Options) validate() error {
	if !inUnitInterval(o.SignificanceLevel) {
		return core.NewInvalidInputError("significance_level", "must be in (0, 1), got %g", o.SignificanceLevel)
	}
	if !inUnitInterval(o.ConfidenceLevel) {
		return core.NewInvalidInputError("confidence_level", "must be in (0, 1), got %g", o.ConfidenceLevel)
	}
	return nil
}

func inUnitInterval(f float64) bool {
	return f > 0 && f < 1
}

// ValidateVariant checks the counts of one arm
func ValidateVariant(v experiment.VariantResult) error {
	field := "variant"
	if v.Name != "" {
		field = fmt.Sprintf("variant %q", v.Name)
	}
	switch {
	case v.Users <= 0:
		return core.NewInvalidInputError(field, "users must be positive, got %d", v.Users)
	case v.Conversions < 0:
		return core.NewInvalidInputError(field, "conversions must not be negative, got %d", v.Conversions)
	case v.Conversions > v.Users:
		return core.NewInvalidInputError(field, "conversions (%d) exceed users (%d)", v.Conversions, v.Users)
	}
	return nil
}

// TwoProportionTest compares the conversion rate of treatment against control.
//
// The z statistic uses the pooled standard error (the null hypothesis says the
// rates are equal); the confidence interval and post-hoc power use the
// unpooled error. The p-value is two-sided.
func TwoProportionTest(control, treatment experiment.VariantResult, opts Options) (experiment.TestResult, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return experiment.TestResult{}, err
	}
	if err := ValidateVariant(control); err != nil {
		return experiment.TestResult{}, err
	}
	if err := ValidateVariant(treatment); err != nil {
		return experiment.TestResult{}, err
	}

	nc, nt := float64(control.Users), float64(treatment.Users)
	pc, pt := control.Rate(), treatment.Rate()
	delta := pt - pc

	res := experiment.TestResult{
		Control:           control,
		Treatment:         treatment,
		ControlRate:       pc,
		TreatmentRate:     pt,
		AbsoluteLift:      delta,
		ConfidenceLevel:   opts.ConfidenceLevel,
		SignificanceLevel: opts.SignificanceLevel,
	}

	res.PooledRate = float64(control.Conversions+treatment.Conversions) / (nc + nt)
	res.PooledSE = math.Sqrt(res.PooledRate * (1 - res.PooledRate) * (1/nc + 1/nt))
	if res.PooledSE == 0 {
		// every user converted or none did: the rates are identical
		res.ZScore = 0
		res.PValue = 1
	} else {
		res.ZScore = delta / res.PooledSE
		res.PValue = 2 * distuv.UnitNormal.Survival(math.Abs(res.ZScore))
	}

	res.UnpooledSE = math.Sqrt(pc*(1-pc)/nc + pt*(1-pt)/nt)
	zc := distuv.UnitNormal.Quantile(1 - (1-opts.ConfidenceLevel)/2)
	res.ConfidenceInterval = [2]float64{delta - zc*res.UnpooledSE, delta + zc*res.UnpooledSE}

	res.RelativeLift = core.Ratio(delta, pc)
	if !res.RelativeLift.IsDefined() {
		res.Warnings = append(res.Warnings, core.NewWarning(core.WarningZeroDenominator,
			"control conversion rate is zero; relative lift is undefined"))
	}

	res.Power = power(delta, res.UnpooledSE, opts.SignificanceLevel)
	return res, nil
}

// power is the post-hoc probability that a two-sided test at alpha rejects
// the null when the true difference equals delta.
func power(delta, se, alpha float64) float64 {
	if se == 0 {
		if delta != 0 {
			return 1
		}
		return alpha
	}
	za := distuv.UnitNormal.Quantile(1 - alpha/2)
	shift := math.Abs(delta) / se
	return distuv.UnitNormal.CDF(shift-za) + distuv.UnitNormal.CDF(-shift-za)
}

// RequiredSampleSize returns the users needed per arm for a two-sided test at
// alpha to reach targetPower when the treatment moves baselineRate by the
// relative lift relativeEffect.
func RequiredSampleSize(baselineRate, relativeEffect, alpha, targetPower float64) (int64, error) {
	if !inUnitInterval(baselineRate) {
		return 0, core.NewInvalidInputError("baseline_rate", "must be in (0, 1), got %g", baselineRate)
	}
	if !inUnitInterval(alpha) {
		return 0, core.NewInvalidInputError("significance_level", "must be in (0, 1), got %g", alpha)
	}
	if !inUnitInterval(targetPower) {
		return 0, core.NewInvalidInputError("power", "must be in (0, 1), got %g", targetPower)
	}
	p1 := baselineRate
	p2 := baselineRate * (1 + relativeEffect)
	if relativeEffect == 0 || p2 <= 0 || p2 >= 1 {
		return 0, core.NewInvalidInputError("effect", "relative effect %g moves the rate outside (0, 1) or not at all", relativeEffect)
	}

	za := distuv.UnitNormal.Quantile(1 - alpha/2)
	zb := distuv.UnitNormal.Quantile(targetPower)
	mean := (p1 + p2) / 2
	num := za*math.Sqrt(2*mean*(1-mean)) + zb*math.Sqrt(p1*(1-p1)+p2*(1-p2))
	n := num * num / ((p2 - p1) * (p2 - p1))
	return int64(math.Ceil(n)), nil
}
