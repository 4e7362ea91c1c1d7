package metrics

import (
	"errors"
	"fmt"
	"strings"

	"bizmetrics/domain/core"
	"bizmetrics/domain/dataset"
	"bizmetrics/domain/metric"
	"bizmetrics/internal"
	"bizmetrics/internal/timeseries"
	"bizmetrics/ports"
)

// Per-metric failure codes recorded in a report
const (
	CodeMissingColumns    = "MISSING_COLUMNS"
	CodeUnknownMetric     = "UNKNOWN_METRIC"
	CodeColumnType        = "COLUMN_TYPE"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeCalculationFailed = "CALCULATION_FAILED"
)

// Request selects the metrics of one batch. Explicit Names win over Category;
// with neither set, every registered metric runs.
type Request struct {
	Names    []string
	Category metric.Category
	Options  metric.Options
}

// Engine orchestrates metric calculations against a registry. It holds no
// per-call state and may be shared between goroutines.
type Engine struct {
	registry *Registry
	clock    ports.Clock
	logger   *internal.Logger
}

// NewEngine creates an engine. A nil clock reads the system clock and a nil
// logger uses internal.DefaultLogger.
func NewEngine(registry *Registry, clock ports.Clock, logger *internal.Logger) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{registry: registry, clock: clock, logger: logger}
}

// Registry exposes the engine's registry
func (e *Engine) Registry() *Registry { return e.registry }

// ListMetrics returns definitions, optionally restricted to one category.
func (e *Engine) ListMetrics(category metric.Category) ([]metric.Definition, error) {
	if category != "" && !category.Valid() {
		return nil, core.NewInvalidInputError("category", "unknown category %q", category)
	}
	return e.registry.Definitions(category), nil
}

// Calculate runs the requested metrics against ds. A failing metric becomes an
// entry in Report.Errors and never aborts its siblings; the returned error is
// reserved for a malformed request. Every result shares one timestamp read from
// the engine's clock, and ds is never modified.
func (e *Engine) Calculate(ds *dataset.Dataset, req Request) (metric.Report, error) {
	if ds == nil {
		return metric.Report{}, core.NewInvalidInputError("dataset", "is nil")
	}
	if req.Category != "" && !req.Category.Valid() {
		return metric.Report{}, core.NewInvalidInputError("category", "unknown category %q", req.Category)
	}
	if _, err := timeseries.ParsePeriod(req.Options.Period); err != nil {
		return metric.Report{}, err
	}

	names := e.selection(req)
	now := e.clock.Now()
	report := metric.Report{Results: []metric.Result{}, Errors: []metric.Error{}}

	e.logger.Debug("calculating %d metrics over %d rows", len(names), ds.Len())
	for _, name := range names {
		entry, ok := e.registry.Lookup(name)
		if !ok {
			report.Errors = append(report.Errors, metric.Error{
				MetricName: name,
				Code:       CodeUnknownMetric,
				Reason:     core.NewUnknownMetricError(name).Error(),
			})
			e.logger.Warn("metric %s: unknown metric", name)
			continue
		}

		res, err := run(entry, ds, req.Options)
		if err != nil {
			report.Errors = append(report.Errors, failure(name, err))
			e.logger.Warn("metric %s failed: %v", name, err)
			continue
		}
		res.CalculatedAt = now
		report.Results = append(report.Results, res)
	}
	e.logger.Info("metrics batch complete: %d results, %d errors", len(report.Results), len(report.Errors))
	return report, nil
}

// CalculateOne runs a single metric and returns its failure as an error.
func (e *Engine) CalculateOne(ds *dataset.Dataset, name string, opts metric.Options) (metric.Result, error) {
	entry, ok := e.registry.Lookup(name)
	if !ok {
		return metric.Result{}, core.NewUnknownMetricError(name)
	}
	if ds == nil {
		return metric.Result{}, core.NewInvalidInputError("dataset", "is nil")
	}
	res, err := run(entry, ds, opts)
	if err != nil {
		return metric.Result{}, err
	}
	res.CalculatedAt = e.clock.Now()
	return res, nil
}

// selection resolves a request into metric names. Explicit names keep their
// order with duplicates removed; otherwise registry order applies.
func (e *Engine) selection(req Request) []string {
	if len(req.Names) == 0 {
		return e.registry.Names(req.Category)
	}
	seen := make(map[string]struct{}, len(req.Names))
	out := make([]string, 0, len(req.Names))
	for _, n := range req.Names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func run(entry Entry, ds *dataset.Dataset, opts metric.Options) (res metric.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("metric %s panicked: %v", entry.Definition.Name, r)
		}
	}()
	return entry.New(ds).Calculate(opts)
}

func failure(name string, err error) metric.Error {
	me := metric.Error{MetricName: name, Reason: err.Error()}
	switch {
	case errors.Is(err, core.ErrMissingColumns):
		me.Code = CodeMissingColumns
		me.Missing, _ = core.MissingColumns(err)
	case errors.Is(err, core.ErrColumnType):
		me.Code = CodeColumnType
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrNotFound):
		me.Code = CodeInvalidInput
	default:
		me.Code = CodeCalculationFailed
	}
	return me
}
