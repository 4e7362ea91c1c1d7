// Package metrics computes business metrics from a tabular dataset. Each metric
// is a small value that validates its required columns before touching data
// and reports undefined results with a warning instead of inventing numbers.
package metrics

import (
	"fmt"
	"math"
	"strings"

	"bizmetrics/domain/core"
	"bizmetrics/domain/dataset"
	"bizmetrics/domain/metric"

	"github.com/montanaflynn/stats"
)

// Metric is one calculation bound to a dataset
type Metric interface {
	// Definition is pure and never reads the dataset
	Definition() metric.Definition
	// Calculate validates required columns then computes the result
	Calculate(opts metric.Options) (metric.Result, error)
}

// Factory binds a metric to a dataset
type Factory func(ds *dataset.Dataset) Metric

// resultDecimals is the rounding applied to every reported value
const resultDecimals = 2

var (
	paidStatuses   = statusSet("paid", "success", "completed", "active")
	activeStatuses = statusSet("active", "paid", "current")
)

func statusSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// base carries the definition and dataset shared by every metric
type base struct {
	def metric.Definition
	ds  *dataset.Dataset
}

func (b base) Definition() metric.Definition { return b.def }

func (b base) validate() error {
	if b.ds == nil {
		return core.NewInvalidInputError("dataset", "is nil")
	}
	if missing := b.ds.Missing(b.def.RequiredColumns); len(missing) > 0 {
		return &core.MissingColumnsError{Metric: b.def.Name, Missing: missing}
	}
	return nil
}

// result rounds value and guarantees an undefined value carries a warning.
func (b base) result(value core.Value, period string, meta map[string]interface{}, warnings ...core.Warning) metric.Result {
	if period == "" {
		period = metric.PeriodAll
	}
	if !value.IsDefined() && len(warnings) == 0 {
		warnings = append(warnings, core.NewWarning(core.WarningUndefinedResult,
			fmt.Sprintf("%s has no defined value for this dataset", b.def.Name)))
	}
	return metric.Result{
		MetricName: b.def.Name,
		Value:      value.Round(resultDecimals),
		Unit:       b.def.Unit,
		Period:     period,
		Metadata:   meta,
		Warnings:   warnings,
	}
}

func zeroDenominator(what string) core.Warning {
	return core.NewWarning(core.WarningZeroDenominator, what+" is zero; value is undefined")
}

// filterStatus keeps rows whose status is in allowed. Datasets without a
// status column pass through unchanged.
func filterStatus(ds *dataset.Dataset, allowed map[string]struct{}) (*dataset.Dataset, error) {
	if !ds.Has("status") {
		return ds, nil
	}
	statuses, err := ds.Labels("status")
	if err != nil {
		return nil, err
	}
	return ds.Filter(func(row int) bool {
		_, ok := allowed[strings.ToLower(strings.TrimSpace(statuses[row]))]
		return ok
	}), nil
}

// defined drops missing cells
func defined(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func sum(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s, _ := stats.Sum(values)
	return s
}

// columnSum sums the defined cells of a numeric column
func columnSum(ds *dataset.Dataset, name string) (float64, error) {
	values, err := ds.Numbers(name)
	if err != nil {
		return 0, err
	}
	return sum(defined(values)), nil
}

// optionalNumbers returns a numeric column when present with a numeric type
func optionalNumbers(ds *dataset.Dataset, name string) ([]float64, bool) {
	if t, ok := ds.Type(name); !ok || !t.IsNumeric() {
		return nil, false
	}
	values, err := ds.Numbers(name)
	return values, err == nil
}

func round(f float64) float64 {
	return core.Round(f, resultDecimals)
}

// percent returns num/den*100, undefined for a zero denominator
func percent(num, den float64) core.Value {
	r, ok := core.Ratio(num, den).Float()
	if !ok {
		return core.Undefined()
	}
	return core.Some(r * 100)
}
