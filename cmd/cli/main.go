package main

import (
	"context"
	"fmt"
	"os"

	"bizmetrics/internal"
	"bizmetrics/internal/config"
	"bizmetrics/internal/container"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:          "bizmetrics",
		Short:        "Business metrics, time-series and A/B test analysis from the command line",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (error, warn, info, debug, trace); defaults to LOG_LEVEL")

	// Commands are built lazily so --help works without a valid environment
	build := func() (*container.Container, error) {
		_ = godotenv.Load()
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		logger := internal.NewDefaultLogger()
		if logLevel != "" {
			level, ok := internal.ParseLogLevel(logLevel)
			if !ok {
				return nil, fmt.Errorf("unknown log level %q", logLevel)
			}
			logger = internal.NewWriterLogger(level, os.Stderr)
		}
		return container.New(cfg, logger)
	}

	rootCmd.AddCommand(
		newMetricsCmd(build),
		newTimeSeriesCmd(build),
		newExperimentCmd(build),
		newSampleCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type builder func() (*container.Container, error)
