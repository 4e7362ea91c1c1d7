// Package report renders metric reports and experiment analyses as
// deterministic markdown, and markdown as HTML. The same input always
// produces byte-identical output.
package report

import (
	"fmt"
	"strings"

	"bizmetrics/domain/core"
	"bizmetrics/domain/experiment"
	"bizmetrics/domain/metric"
)

// FormatValue renders v with its unit: "$1200.50", "12.34%", "3.2 months".
// Undefined values render as "n/a".
func FormatValue(v core.Value, unit string) string {
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	switch unit {
	case "$":
		if f < 0 {
			return fmt.Sprintf("-$%.2f", -f)
		}
		return fmt.Sprintf("$%.2f", f)
	case "%":
		return fmt.Sprintf("%.2f%%", f)
	case "":
		return fmt.Sprintf("%.2f", f)
	default:
		return fmt.Sprintf("%.2f %s", f, unit)
	}
}

// MetricsMarkdown renders a batch report: one table of results, one of errors
func MetricsMarkdown(title string, r metric.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(title))

	if len(r.Results) == 0 {
		b.WriteString("No metrics could be calculated.\n\n")
	} else {
		b.WriteString("| Metric | Value | Period | Notes |\n")
		b.WriteString("|---|---:|---|---|\n")
		for _, res := range r.Results {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				escape(res.MetricName), FormatValue(res.Value, res.Unit), escape(res.Period), warnings(res.Warnings))
		}
		b.WriteString("\n")
	}

	if len(r.Errors) > 0 {
		b.WriteString("## Errors\n\n")
		b.WriteString("| Metric | Code | Reason |\n")
		b.WriteString("|---|---|---|\n")
		for _, e := range r.Errors {
			reason := e.Reason
			if len(e.Missing) > 0 {
				reason = "missing columns: " + strings.Join(e.Missing, ", ")
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", escape(e.MetricName), e.Code, escape(reason))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ExperimentMarkdown renders an experiment with its variants and the latest
// decision for every treatment
func ExperimentMarkdown(exp *experiment.Experiment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Experiment: %s\n\n", escape(exp.Name))
	if exp.Hypothesis != "" {
		fmt.Fprintf(&b, "> %s\n\n", escape(exp.Hypothesis))
	}
	fmt.Fprintf(&b, "- **Status:** %s\n", exp.Status)
	if exp.PrimaryMetric != "" {
		fmt.Fprintf(&b, "- **Primary metric:** %s\n", escape(exp.PrimaryMetric))
	}
	fmt.Fprintf(&b, "- **Significance level:** %s\n", trimFloat(exp.SignificanceLevel))
	fmt.Fprintf(&b, "- **Confidence level:** %s%%\n", trimFloat(exp.ConfidenceLevel*100))
	if exp.MinimumDetectableEffect != nil {
		fmt.Fprintf(&b, "- **Minimum detectable effect:** %s%% relative\n", trimFloat(*exp.MinimumDetectableEffect*100))
	}
	b.WriteString("\n")

	if len(exp.Variants) > 0 {
		b.WriteString("## Variants\n\n")
		b.WriteString("| Variant | Role | Users | Conversions | Rate |\n")
		b.WriteString("|---|---|---:|---:|---:|\n")
		for _, v := range exp.Variants {
			role := "treatment"
			if v.IsControl {
				role = "control"
			}
			rate := "n/a"
			if v.Users > 0 {
				rate = fmt.Sprintf("%.2f%%", v.Rate()*100)
			}
			fmt.Fprintf(&b, "| %s | %s | %d | %d | %s |\n", escape(v.Name), role, v.Users, v.Conversions, rate)
		}
		b.WriteString("\n")
	}

	if len(exp.Summaries) == 0 {
		b.WriteString("No results have been analyzed yet.\n")
		return b.String()
	}
	for _, s := range exp.Summaries {
		b.WriteString(SummaryMarkdown(s))
	}
	return b.String()
}

// SummaryMarkdown renders one treatment-versus-control analysis
func SummaryMarkdown(s experiment.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s vs %s: %s\n\n", escape(s.TreatmentVariant), escape(s.ControlVariant), decisionLabel(s.Decision))
	fmt.Fprintf(&b, "%s\n\n", escape(s.Rationale))
	b.WriteString("| Statistic | Value |\n")
	b.WriteString("|---|---:|\n")
	fmt.Fprintf(&b, "| Control rate | %.2f%% |\n", s.ControlRate*100)
	fmt.Fprintf(&b, "| Treatment rate | %.2f%% |\n", s.TreatmentRate*100)
	fmt.Fprintf(&b, "| Absolute lift | %+.2f pp |\n", s.AbsoluteLift*100)
	if rel, ok := s.RelativeLift.Float(); ok {
		fmt.Fprintf(&b, "| Relative lift | %+.2f%% |\n", rel*100)
	} else {
		b.WriteString("| Relative lift | n/a |\n")
	}
	fmt.Fprintf(&b, "| z | %.4f |\n", s.ZScore)
	fmt.Fprintf(&b, "| p-value | %s |\n", formatP(s.PValue))
	fmt.Fprintf(&b, "| %s%% CI (absolute) | [%+.2f pp, %+.2f pp] |\n",
		trimFloat(s.ConfidenceLevel*100), s.ConfidenceInterval[0]*100, s.ConfidenceInterval[1]*100)
	fmt.Fprintf(&b, "| Power | %.1f%% |\n", s.Power*100)
	b.WriteString("\n")
	if len(s.Warnings) > 0 {
		fmt.Fprintf(&b, "_Notes: %s_\n\n", warnings(s.Warnings))
	}
	return b.String()
}

func decisionLabel(d experiment.Decision) string {
	switch d {
	case experiment.DecisionShipVariant:
		return "ship variant"
	case experiment.DecisionHold:
		return "hold"
	default:
		return "inconclusive"
	}
}

func formatP(p float64) string {
	if p < 0.0001 {
		return "< 0.0001"
	}
	return fmt.Sprintf("%.4f", p)
}

func trimFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", core.Round(f, 4)), "0"), ".")
}

func warnings(ws []core.Warning) string {
	if len(ws) == 0 {
		return ""
	}
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = string(w.Code)
	}
	return strings.Join(parts, ", ")
}

// escape keeps user text from breaking tables or emphasis
func escape(s string) string {
	r := strings.NewReplacer("|", `\|`, "\n", " ", "\r", "", "*", `\*`, "_", `\_`, "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
