package app

import (
	"context"
	"io"
	"strings"

	"bizmetrics/domain/core"
	"bizmetrics/domain/dataset"
	"bizmetrics/internal"
	"bizmetrics/internal/timeseries"
	"bizmetrics/ports"
)

// DefaultDateColumn is the date column assumed when a request names none
const DefaultDateColumn = "date"

// TimeSeriesService exposes trend and growth analysis over raw series and
// uploaded files
type TimeSeriesService struct {
	reader   ports.DatasetReader
	defaults timeseries.TrendOptions
	logger   *internal.Logger
}

// NewTimeSeriesService creates a time-series service. defaults applies to
// every trend option a request leaves unset.
func NewTimeSeriesService(reader ports.DatasetReader, defaults timeseries.TrendOptions, logger *internal.Logger) *TimeSeriesService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &TimeSeriesService{reader: reader, defaults: defaults, logger: logger.With("timeseries")}
}

// TrendOverrides replaces configured trend options field by field. A nil
// field keeps the default, so an explicit zero epsilon is honoured.
type TrendOverrides struct {
	Window      *int     `json:"window,omitempty"`
	ZThreshold  *float64 `json:"z_threshold,omitempty"`
	FlatEpsilon *float64 `json:"flat_epsilon,omitempty"`
}

// Trend annotates a raw series with moving averages, z-scores, outlier and
// trend flags
func (s *TimeSeriesService) Trend(series []float64, overrides TrendOverrides) (timeseries.TrendAnalysis, error) {
	if len(series) == 0 {
		return timeseries.TrendAnalysis{}, core.NewInvalidInputError("values", "series must not be empty")
	}
	return timeseries.AnalyzeTrend(series, s.trendOptions(overrides))
}

// GrowthRequest selects the columns and grain of a growth analysis
type GrowthRequest struct {
	DateColumn  string `json:"date_column"`
	ValueColumn string `json:"value_column"`
	Period      string `json:"period"`
	// Lag compares each period with the one Lag periods earlier; 0 means 1
	Lag int `json:"lag"`
	// FlatEpsilon overrides the configured flat-trend threshold when set
	FlatEpsilon *float64 `json:"flat_epsilon,omitempty"`
}

// GrowthReport is the per-period growth table plus summary statistics
type GrowthReport struct {
	DateColumn  string                      `json:"date_column"`
	ValueColumn string                      `json:"value_column"`
	Period      timeseries.Period           `json:"period"`
	Points      []timeseries.GrowthPoint    `json:"points"`
	Comparison  timeseries.PeriodComparison `json:"comparison"`
	Trend       timeseries.Trend            `json:"trend"`
	// Seasonal compares each period with the same point one cycle earlier
	Seasonal []timeseries.SeasonalPoint `json:"seasonal"`
	Profile  []timeseries.ProfileEntry  `json:"profile"`
	// Outliers are rows outside Tukey's fences
	Outliers  []timeseries.Outlier `json:"outliers"`
	DateRange timeseries.DateRange `json:"date_range"`
}

// Growth sums the value column per period and reports period-over-period growth
func (s *TimeSeriesService) Growth(ds *dataset.Dataset, req GrowthRequest) (*GrowthReport, error) {
	dateColumn := strings.TrimSpace(req.DateColumn)
	if dateColumn == "" {
		dateColumn = DefaultDateColumn
	}
	valueColumn := strings.TrimSpace(req.ValueColumn)
	if valueColumn == "" {
		return nil, core.NewInvalidInputError("value_column", "must not be empty")
	}
	if ds != nil {
		if missing := ds.Missing([]string{dateColumn, valueColumn}); len(missing) > 0 {
			return nil, &core.MissingColumnsError{Metric: "growth", Missing: missing}
		}
	}
	period, err := timeseries.ParsePeriod(req.Period)
	if err != nil {
		return nil, err
	}
	lag := req.Lag
	if lag == 0 {
		lag = 1
	}

	analyzer, err := timeseries.NewAnalyzer(ds, dateColumn)
	if err != nil {
		return nil, err
	}
	points, err := analyzer.Growth(valueColumn, period, lag)
	if err != nil {
		return nil, err
	}
	comparison, err := analyzer.Compare(valueColumn, period)
	if err != nil {
		return nil, err
	}
	trend, err := analyzer.Trend(valueColumn, period, s.trendOptions(TrendOverrides{FlatEpsilon: req.FlatEpsilon}).FlatEpsilon)
	if err != nil {
		return nil, err
	}

	seasonal, err := analyzer.Seasonal(valueColumn, period, 0)
	if err != nil {
		return nil, err
	}
	profile, err := analyzer.Profile(valueColumn, timeseries.ProfileFor(period))
	if err != nil {
		return nil, err
	}
	outliers, err := analyzer.Outliers(valueColumn, timeseries.MethodIQR, timeseries.DefaultIQRMultiplier)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("growth of %s by %s: %d periods", valueColumn, period, len(points))
	return &GrowthReport{
		DateColumn:  dateColumn,
		ValueColumn: valueColumn,
		Period:      period,
		Points:      points,
		Comparison:  comparison,
		Trend:       trend,
		Seasonal:    seasonal,
		Profile:     profile,
		Outliers:    outliers,
		DateRange:   analyzer.DateRange(),
	}, nil
}

// GrowthUpload reads an uploaded file and runs Growth over it
func (s *TimeSeriesService) GrowthUpload(ctx context.Context, name string, r io.Reader, req GrowthRequest) (*GrowthReport, error) {
	ds, err := s.reader.Read(ctx, name, r)
	if err != nil {
		return nil, err
	}
	return s.Growth(ds, req)
}

func (s *TimeSeriesService) trendOptions(o TrendOverrides) timeseries.TrendOptions {
	opts := s.defaults
	if o.Window != nil {
		opts.Window = *o.Window
	}
	if o.ZThreshold != nil {
		opts.ZThreshold = *o.ZThreshold
	}
	if o.FlatEpsilon != nil {
		opts.FlatEpsilon = *o.FlatEpsilon
	}
	return opts
}
