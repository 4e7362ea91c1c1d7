package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"bizmetrics/app"
	"bizmetrics/domain/experiment"
	abtest "bizmetrics/internal/experiment"
	"bizmetrics/internal/report"

	"github.com/spf13/cobra"
)

func newExperimentCmd(build builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "experiment",
		Aliases: []string{"ab"},
		Short:   "A/B test significance and sample sizing",
	}
	cmd.AddCommand(newAnalyzeCmd(build), newSampleSizeCmd())
	return cmd
}

func newAnalyzeCmd(build builder) *cobra.Command {
	var (
		control  string
		variants []string
		req      app.AnalyzeRequest
		mde      float64
		format   string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare treatment variants against a control",
		Long: `Run a two-proportion z-test for every treatment against the control and
print a ship/hold/inconclusive decision. Variants are name:users:conversions.

Example: bizmetrics ab analyze --control control:10000:1000 --variant green:10000:1200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := parseVariant(control)
			if err != nil {
				return err
			}
			ctrl.IsControl = true
			req.Variants = append(req.Variants, ctrl)
			for _, raw := range variants {
				v, err := parseVariant(raw)
				if err != nil {
					return err
				}
				req.Variants = append(req.Variants, v)
			}
			if cmd.Flags().Changed("mde") {
				req.MinimumDetectableEffect = &mde
			}

			c, err := build()
			if err != nil {
				return err
			}
			summaries, err := c.Experiments.Analyze(req)
			if err != nil {
				return err
			}
			if format == "markdown" {
				return writeSummaries(cmd.OutOrStdout(), summaries)
			}
			return writeJSON(cmd.OutOrStdout(), summaries)
		},
	}
	cmd.Flags().StringVar(&control, "control", "", "Control variant as name:users:conversions")
	cmd.Flags().StringArrayVar(&variants, "variant", nil, "Treatment variant as name:users:conversions (repeatable)")
	cmd.Flags().Float64Var(&req.SignificanceLevel, "alpha", 0, "Significance level (default SIGNIFICANCE_LEVEL)")
	cmd.Flags().Float64Var(&req.ConfidenceLevel, "confidence", 0, "Confidence level (default CONFIDENCE_LEVEL)")
	cmd.Flags().Float64Var(&mde, "mde", 0, "Minimum detectable effect as a relative fraction, e.g. 0.05")
	cmd.Flags().StringVar(&format, "format", "json", "Output format (json or markdown)")
	_ = cmd.MarkFlagRequired("control")
	return cmd
}

func writeSummaries(w io.Writer, summaries []experiment.Summary) error {
	for _, s := range summaries {
		if _, err := io.WriteString(w, report.SummaryMarkdown(s)); err != nil {
			return err
		}
	}
	return nil
}

func newSampleSizeCmd() *cobra.Command {
	var baseline, effect, alpha, power float64

	cmd := &cobra.Command{
		Use:     "sample-size",
		Short:   "Users needed per variant to detect a relative lift",
		Example: `  bizmetrics ab sample-size --baseline 0.1 --effect 0.05`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := abtest.RequiredSampleSize(baseline, effect, alpha, power)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d users per variant\n", n)
			return nil
		},
	}
	cmd.Flags().Float64Var(&baseline, "baseline", 0, "Control conversion rate, e.g. 0.1")
	cmd.Flags().Float64Var(&effect, "effect", 0, "Relative lift to detect, e.g. 0.05")
	cmd.Flags().Float64Var(&alpha, "alpha", experiment.DefaultSignificanceLevel, "Significance level")
	cmd.Flags().Float64Var(&power, "power", experiment.DefaultPowerTarget, "Target power")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("effect")
	return cmd
}

// parseVariant reads name:users:conversions
func parseVariant(raw string) (experiment.VariantResult, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
		return experiment.VariantResult{}, fmt.Errorf("variant %q must be name:users:conversions", raw)
	}
	users, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return experiment.VariantResult{}, fmt.Errorf("variant %q: users %q is not an integer", raw, parts[1])
	}
	conversions, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return experiment.VariantResult{}, fmt.Errorf("variant %q: conversions %q is not an integer", raw, parts[2])
	}
	return experiment.VariantResult{
		Name:        strings.TrimSpace(parts[0]),
		Users:       users,
		Conversions: conversions,
	}, nil
}
