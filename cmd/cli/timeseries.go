package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bizmetrics/app"

	"github.com/spf13/cobra"
)

func newTimeSeriesCmd(build builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "timeseries",
		Aliases: []string{"ts"},
		Short:   "Trend and growth analysis",
	}
	cmd.AddCommand(newTrendCmd(build), newGrowthCmd(build))
	return cmd
}

func newTrendCmd(build builder) *cobra.Command {
	var (
		window      int
		zThreshold  float64
		flatEpsilon float64
	)

	cmd := &cobra.Command{
		Use:   "trend [value...]",
		Short: "Moving average, outliers and trend direction of a series",
		Long: `Analyze an ordered series of numbers. Values may be separated by spaces
or commas.

Example: bizmetrics ts trend 10,12,11,13,40,14 --window 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSeries(args)
			if err != nil {
				return err
			}
			c, err := build()
			if err != nil {
				return err
			}
			var overrides app.TrendOverrides
			if cmd.Flags().Changed("window") {
				overrides.Window = &window
			}
			if cmd.Flags().Changed("z-threshold") {
				overrides.ZThreshold = &zThreshold
			}
			if cmd.Flags().Changed("flat-epsilon") {
				overrides.FlatEpsilon = &flatEpsilon
			}
			res, err := c.TimeSeries.Trend(values, overrides)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&window, "window", 0, "Moving average window (default MOVING_AVERAGE_WINDOW)")
	cmd.Flags().Float64Var(&zThreshold, "z-threshold", 0, "Outlier z-score threshold (default OUTLIER_Z_THRESHOLD)")
	cmd.Flags().Float64Var(&flatEpsilon, "flat-epsilon", 0, "Relative slope treated as flat (default TREND_FLAT_EPSILON)")
	return cmd
}

func newGrowthCmd(build builder) *cobra.Command {
	var (
		req         app.GrowthRequest
		flatEpsilon float64
	)

	cmd := &cobra.Command{
		Use:     "growth <file>",
		Short:   "Period-over-period growth of a value column",
		Example: `  bizmetrics ts growth orders.csv --value-column amount --period quarter`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := build()
			if err != nil {
				return err
			}
			ds, err := c.Reader.ReadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("flat-epsilon") {
				req.FlatEpsilon = &flatEpsilon
			}
			res, err := c.TimeSeries.Growth(ds, req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&req.DateColumn, "date-column", app.DefaultDateColumn, "Date column")
	cmd.Flags().StringVar(&req.ValueColumn, "value-column", "", "Numeric column to sum per period")
	cmd.Flags().StringVar(&req.Period, "period", "month", "Grouping period (day, week, month, quarter, year)")
	cmd.Flags().IntVar(&req.Lag, "lag", 1, "Periods between compared buckets")
	cmd.Flags().Float64Var(&flatEpsilon, "flat-epsilon", 0, "Relative slope treated as flat (default TREND_FLAT_EPSILON)")
	_ = cmd.MarkFlagRequired("value-column")
	return cmd
}

// parseSeries accepts "1 2 3", "1,2,3" or a mix
func parseSeries(args []string) ([]float64, error) {
	var out []float64
	for _, arg := range args {
		for _, field := range strings.FieldsFunc(arg, func(r rune) bool { return r == ',' || r == ' ' }) {
			f, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", field)
			}
			out = append(out, f)
		}
	}
	return out, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
