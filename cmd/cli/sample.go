package main

import (
	"fmt"
	"os"
	"time"

	"bizmetrics/internal/testkit"

	"github.com/spf13/cobra"
)

func newSampleCmd() *cobra.Command {
	cfg := testkit.DefaultConfig()
	var output, start, end string

	cmd := &cobra.Command{
		Use:   "sample <orders|marketing>",
		Short: "Write a synthetic CSV dataset for trying the metrics",
		Long: `Generate deterministic demo data. "orders" carries the revenue and
financial columns; "marketing" carries the marketing and funnel columns.

Example: bizmetrics sample orders --customers 500 -o orders.csv`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"orders", "marketing"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg.StartDate, err = time.Parse("2006-01-02", start); err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			if cfg.EndDate, err = time.Parse("2006-01-02", end); err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			g, err := testkit.NewGenerator(cfg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			switch args[0] {
			case "orders":
				return testkit.WriteCSV(w, g.Orders())
			case "marketing":
				return testkit.WriteCSV(w, g.Marketing())
			}
			return fmt.Errorf("unknown dataset %q (orders or marketing)", args[0])
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	cmd.Flags().IntVar(&cfg.CustomerCount, "customers", cfg.CustomerCount, "Number of customers")
	cmd.Flags().IntVar(&cfg.CampaignCount, "campaigns", cfg.CampaignCount, "Number of marketing campaigns")
	cmd.Flags().Float64Var(&cfg.MonthlyGrowth, "growth", cfg.MonthlyGrowth, "Month-over-month growth applied to amounts and leads")
	cmd.Flags().StringVar(&start, "start", cfg.StartDate.Format("2006-01-02"), "First day")
	cmd.Flags().StringVar(&end, "end", cfg.EndDate.Format("2006-01-02"), "Last day")
	return cmd
}
