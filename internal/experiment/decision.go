package experiment

import (
	"fmt"
	"math"
	"strings"

	"bizmetrics/domain/core"
	"bizmetrics/domain/experiment"
)

// liftTolerance absorbs floating point error when comparing a relative lift
// with the minimum detectable effect
const liftTolerance = 1e-9

// Decide applies policy to a test result:
//
//   - significant, positive and at least the MDE (or no MDE): ship_variant
//   - significant and positive but below the MDE, or the relative lift is
//     undefined while an MDE is set: hold
//   - significant and negative: hold
//   - not significant: inconclusive
//
// A zero policy significance level falls back to the level the test ran at.
func Decide(res experiment.TestResult, policy experiment.Policy) (experiment.Decision, string) {
	alpha := policy.SignificanceLevel
	if alpha == 0 {
		alpha = res.SignificanceLevel
	}
	w := rationale{res: res, alpha: alpha}

	if res.PValue >= alpha {
		return experiment.DecisionInconclusive, w.inconclusive(policy)
	}
	if res.AbsoluteLift <= 0 {
		return experiment.DecisionHold, w.worse()
	}
	if policy.MinimumDetectableEffect == nil {
		return experiment.DecisionShipVariant, w.ship()
	}

	mde := *policy.MinimumDetectableEffect
	rel, ok := res.RelativeLift.Float()
	if !ok {
		return experiment.DecisionHold, w.undefinedLift(mde)
	}
	if rel+liftTolerance < mde {
		return experiment.DecisionHold, w.belowMDE(rel, mde)
	}
	return experiment.DecisionShipVariant, w.ship()
}

// Summarize decides and flattens a test result for reporting
func Summarize(res experiment.TestResult, policy experiment.Policy) experiment.Summary {
	decision, why := Decide(res, policy)
	return experiment.Summary{
		ControlVariant:     res.Control.Name,
		TreatmentVariant:   res.Treatment.Name,
		ControlRate:        res.ControlRate,
		TreatmentRate:      res.TreatmentRate,
		AbsoluteLift:       res.AbsoluteLift,
		RelativeLift:       res.RelativeLift,
		ZScore:             res.ZScore,
		PValue:             res.PValue,
		ConfidenceInterval: res.ConfidenceInterval,
		ConfidenceLevel:    res.ConfidenceLevel,
		Power:              res.Power,
		Decision:           decision,
		Rationale:          why,
		Warnings:           res.Warnings,
	}
}

// Analyze tests every treatment against the single control and returns one
// summary per treatment in input order.
func Analyze(variants []experiment.VariantResult, opts Options, policy experiment.Policy) ([]experiment.Summary, error) {
	control, treatments, err := splitVariants(variants)
	if err != nil {
		return nil, err
	}
	if mde := policy.MinimumDetectableEffect; mde != nil && (*mde < 0 || math.IsNaN(*mde) || math.IsInf(*mde, 0)) {
		return nil, core.NewInvalidInputError("minimum_detectable_effect", "must be a non-negative fraction, got %g", *mde)
	}

	out := make([]experiment.Summary, 0, len(treatments))
	for _, t := range treatments {
		res, err := TwoProportionTest(control, t, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, Summarize(res, policy))
	}
	return out, nil
}

func splitVariants(variants []experiment.VariantResult) (experiment.VariantResult, []experiment.VariantResult, error) {
	var (
		control    experiment.VariantResult
		controls   int
		treatments []experiment.VariantResult
	)
	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return control, nil, core.NewInvalidInputError("variant_name", "must not be empty")
		}
		if _, dup := seen[name]; dup {
			return control, nil, core.NewInvalidInputError("variant_name", "duplicate variant %q", name)
		}
		seen[name] = struct{}{}
		if v.IsControl {
			control = v
			controls++
			continue
		}
		treatments = append(treatments, v)
	}
	if controls != 1 {
		return control, nil, core.NewInvalidInputError("variants", "need exactly one control, got %d", controls)
	}
	if len(treatments) == 0 {
		return control, nil, core.NewInvalidInputError("variants", "need at least one treatment")
	}
	return control, treatments, nil
}

type rationale struct {
	res   experiment.TestResult
	alpha float64
}

func pct(f float64) string    { return fmt.Sprintf("%.2f%%", f*100) }
func points(f float64) string { return fmt.Sprintf("%+.2f pp", f*100) }

func (w rationale) head() string {
	r := w.res
	return fmt.Sprintf("%s converted at %s vs %s for %s (%s",
		r.Treatment.Name, pct(r.TreatmentRate), pct(r.ControlRate), r.Control.Name, points(r.AbsoluteLift)) +
		w.relative() + ")."
}

func (w rationale) relative() string {
	if rel, ok := w.res.RelativeLift.Float(); ok {
		return fmt.Sprintf(", %+.2f%% relative", rel*100)
	}
	return ""
}

func (w rationale) significance() string {
	r := w.res
	return fmt.Sprintf("p = %.4g < alpha %.4g; the %.0f%% confidence interval for the difference is [%s, %s].",
		r.PValue, w.alpha, r.ConfidenceLevel*100, points(r.ConfidenceInterval[0]), points(r.ConfidenceInterval[1]))
}

func (w rationale) ship() string {
	return w.head() + " The difference is significant: " + w.significance() + " Ship the variant."
}

func (w rationale) worse() string {
	return w.head() + " The treatment is significantly worse: " + w.significance() + " Hold."
}

func (w rationale) belowMDE(rel, mde float64) string {
	return w.head() + " " + w.significance() +
		fmt.Sprintf(" The relative lift %+.2f%% is below the minimum detectable effect of %.2f%%. Hold.", rel*100, mde*100)
}

func (w rationale) undefinedLift(mde float64) string {
	return w.head() + " " + w.significance() +
		fmt.Sprintf(" The control rate is zero, so the relative lift cannot be compared with the minimum detectable effect of %.2f%%. Hold.", mde*100)
}

func (w rationale) inconclusive(policy experiment.Policy) string {
	r := w.res
	msg := w.head() + fmt.Sprintf(" The difference is not significant (p = %.4g >= alpha %.4g). Post-hoc power is %.0f%%",
		r.PValue, w.alpha, r.Power*100)
	if r.Power >= experiment.DefaultPowerTarget {
		return msg + "."
	}
	msg += fmt.Sprintf("; the test is underpowered (target %.0f%%)", experiment.DefaultPowerTarget*100)

	effect, ok := r.RelativeLift.Float()
	if policy.MinimumDetectableEffect != nil {
		effect, ok = *policy.MinimumDetectableEffect, true
	}
	if ok {
		if n, err := RequiredSampleSize(r.ControlRate, effect, w.alpha, experiment.DefaultPowerTarget); err == nil {
			msg += fmt.Sprintf(" and needs about %d users per arm to detect a %+.2f%% relative lift", n, effect*100)
		}
	}
	return msg + "."
}
