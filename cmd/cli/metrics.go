package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"bizmetrics/app"
	"bizmetrics/domain/metric"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newMetricsCmd(build builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "List and calculate business metrics",
	}
	cmd.AddCommand(newMetricsListCmd(build), newMetricsCalcCmd(build))
	return cmd
}

func newMetricsListCmd(build builder) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered metrics and their required columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := build()
			if err != nil {
				return err
			}
			defs, err := c.Metrics.ListMetrics(metric.Category(strings.ToLower(category)))
			if err != nil {
				return err
			}
			return printDefinitions(cmd.OutOrStdout(), defs)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only list one category (revenue, financial, marketing)")
	return cmd
}

func printDefinitions(w io.Writer, defs []metric.Definition) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tUNIT\tREQUIRED COLUMNS")
	for _, d := range defs {
		unit := d.Unit
		if unit == "" {
			unit = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Category, unit, strings.Join(d.RequiredColumns, ", "))
	}
	return tw.Flush()
}

type calcFlags struct {
	names    []string
	category string
	period   string
	lifespan int
	format   string
}

func newMetricsCalcCmd(build builder) *cobra.Command {
	var f calcFlags

	cmd := &cobra.Command{
		Use:   "calc [file...]",
		Short: "Calculate metrics for one or more CSV/XLSX files",
		Long: `Calculate metrics for each file. Files are processed in parallel up to
MAX_PARALLEL_FILES; without arguments EXCEL_FILE is used.

Example: bizmetrics metrics calc orders.csv --metrics total_revenue,mrr --period month`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.format != "json" && f.format != "markdown" {
				return fmt.Errorf("unknown format %q (json or markdown)", f.format)
			}
			c, err := build()
			if err != nil {
				return err
			}
			files := args
			if len(files) == 0 {
				if c.Config.Data.ExcelFile == "" {
					return fmt.Errorf("no input files given and EXCEL_FILE is not set")
				}
				files = []string{c.Config.Data.ExcelFile}
			}

			req := app.CalculateRequest{
				Names:    f.names,
				Category: metric.Category(strings.ToLower(f.category)),
				Options:  metric.Options{Period: f.period, LifespanMonths: f.lifespan},
			}
			reports, err := calculateFiles(cmd, c.Metrics, files, req, c.Config.Data.MaxParallelFiles)
			if err != nil {
				return err
			}
			return writeReports(cmd.OutOrStdout(), c.Metrics, reports, f.format)
		},
	}
	cmd.Flags().StringSliceVar(&f.names, "metrics", nil, "Metric names to calculate (default all)")
	cmd.Flags().StringVar(&f.category, "category", "", "Calculate one category")
	cmd.Flags().StringVar(&f.period, "period", "", "Grouping period (day, week, month, quarter, year)")
	cmd.Flags().IntVar(&f.lifespan, "lifespan-months", 0, "Customer lifespan for LTV (default LTV_LIFESPAN_MONTHS)")
	cmd.Flags().StringVar(&f.format, "format", "json", "Output format (json or markdown)")
	return cmd
}

// calculateFiles fans the files out over a bounded errgroup. Results keep
// the argument order; the first failure cancels the rest.
func calculateFiles(cmd *cobra.Command, svc *app.MetricsService, files []string, req app.CalculateRequest, limit int) ([]*metric.StoredReport, error) {
	g, ctx := errgroup.WithContext(cmd.Context())
	if limit > 0 {
		g.SetLimit(limit)
	}

	reports := make([]*metric.StoredReport, len(files))
	for i, path := range files {
		g.Go(func() error {
			stored, err := svc.CalculateFile(ctx, path, req)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reports[i] = stored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func writeReports(w io.Writer, svc *app.MetricsService, reports []*metric.StoredReport, format string) error {
	if format == "markdown" {
		for _, r := range reports {
			if _, err := io.WriteString(w, svc.Markdown(r)); err != nil {
				return err
			}
		}
		return nil
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(reports) == 1 {
		return enc.Encode(reports[0])
	}
	bySource := make(map[string]*metric.StoredReport, len(reports))
	for _, r := range reports {
		bySource[r.Source] = r
	}
	return enc.Encode(bySource)
}
