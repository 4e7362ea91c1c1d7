package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"bizmetrics/domain/core"
	"bizmetrics/domain/dataset"
	"bizmetrics/domain/metric"
	"bizmetrics/internal"
	"bizmetrics/internal/metrics"
	"bizmetrics/internal/report"
	"bizmetrics/ports"
)

// MetricsService runs the metrics engine over ingested files and, when a
// repository is configured, keeps the reports.
type MetricsService struct {
	engine  *metrics.Engine
	reader  ports.DatasetReader
	reports ports.MetricReportRepository
	clock   ports.Clock
	logger  *internal.Logger
	// defaults fills option fields the caller left zero
	defaults metric.Options
}

// CalculateRequest selects metrics and names the data source
type CalculateRequest struct {
	Source   string
	Names    []string
	Category metric.Category
	Options  metric.Options
	// Persist stores the report when a repository is configured
	Persist bool
}

// NewMetricsService creates a metrics service. reports may be nil, in which
// case nothing is persisted.
func NewMetricsService(engine *metrics.Engine, reader ports.DatasetReader, reports ports.MetricReportRepository,
	clock ports.Clock, logger *internal.Logger, defaults metric.Options) *MetricsService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &MetricsService{
		engine:   engine,
		reader:   reader,
		reports:  reports,
		clock:    clock,
		logger:   logger.With("metrics"),
		defaults: defaults,
	}
}

// ListMetrics returns definitions, optionally for one category
func (s *MetricsService) ListMetrics(category metric.Category) ([]metric.Definition, error) {
	return s.engine.ListMetrics(category)
}

// Available groups every definition by category name
func (s *MetricsService) Available() map[string][]metric.Definition {
	reg := s.engine.Registry()
	out := make(map[string][]metric.Definition)
	for _, c := range reg.Categories() {
		out[string(c)] = reg.Definitions(c)
	}
	return out
}

// Calculate runs the engine over ds and stores the report when asked to
func (s *MetricsService) Calculate(ctx context.Context, ds *dataset.Dataset, req CalculateRequest) (*metric.StoredReport, error) {
	opts := s.withDefaults(req.Options)
	rep, err := s.engine.Calculate(ds, metrics.Request{Names: req.Names, Category: req.Category, Options: opts})
	if err != nil {
		return nil, err
	}

	fingerprint, err := core.Fingerprint(rep)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint report: %w", err)
	}
	period := opts.Period
	if period == "" {
		period = metric.PeriodAll
	}
	stored := &metric.StoredReport{
		ID:          core.NewReportID(),
		Source:      req.Source,
		Names:       req.Names,
		Category:    req.Category,
		Period:      period,
		Report:      rep,
		Fingerprint: fingerprint,
		CreatedAt:   s.clock.Now().UTC(),
	}

	if req.Persist && s.reports != nil {
		if err := s.reports.SaveReport(ctx, stored); err != nil {
			return nil, fmt.Errorf("failed to save metric report: %w", err)
		}
		s.logger.Info("stored metric report %s for %s", stored.ID, stored.Source)
	}
	return stored, nil
}

// CalculateUpload reads an uploaded file and calculates over it
func (s *MetricsService) CalculateUpload(ctx context.Context, name string, r io.Reader, req CalculateRequest) (*metric.StoredReport, error) {
	ds, err := s.reader.Read(ctx, name, r)
	if err != nil {
		return nil, err
	}
	if req.Source == "" {
		req.Source = filepath.Base(name)
	}
	return s.Calculate(ctx, ds, req)
}

// CalculateFile reads a file from disk and calculates over it
func (s *MetricsService) CalculateFile(ctx context.Context, path string, req CalculateRequest) (*metric.StoredReport, error) {
	ds, err := s.reader.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if req.Source == "" {
		req.Source = path
	}
	return s.Calculate(ctx, ds, req)
}

// GetReport loads a stored report
func (s *MetricsService) GetReport(ctx context.Context, id core.ReportID) (*metric.StoredReport, error) {
	if s.reports == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrReportNotFound, id)
	}
	return s.reports.GetReport(ctx, id)
}

// ListReports returns stored reports newest first
func (s *MetricsService) ListReports(ctx context.Context, limit int) ([]*metric.StoredReport, error) {
	if s.reports == nil {
		return []*metric.StoredReport{}, nil
	}
	return s.reports.ListReports(ctx, limit)
}

// Markdown renders a report for people
func (s *MetricsService) Markdown(stored *metric.StoredReport) string {
	title := "Metrics report"
	if stored.Source != "" {
		title += ": " + stored.Source
	}
	return report.MetricsMarkdown(title, stored.Report)
}

func (s *MetricsService) withDefaults(opts metric.Options) metric.Options {
	if opts.LifespanMonths == 0 {
		opts.LifespanMonths = s.defaults.LifespanMonths
	}
	if opts.Period == "" {
		opts.Period = s.defaults.Period
	}
	if opts.CashBalance == nil && s.defaults.CashBalance != nil {
		cash := *s.defaults.CashBalance
		opts.CashBalance = &cash
	}
	if len(opts.FunnelStages) == 0 {
		opts.FunnelStages = s.defaults.FunnelStages
	}
	return opts
}
