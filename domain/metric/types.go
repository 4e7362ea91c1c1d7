package metric

import (
	"time"

	"bizmetrics/domain/core"
)

// Category groups metrics for listing and batch calculation
type Category string

const (
	CategoryRevenue   Category = "revenue"
	CategoryFinancial Category = "financial"
	CategoryMarketing Category = "marketing"
)

// Categories lists every category in canonical order
func Categories() []Category {
	return []Category{CategoryRevenue, CategoryFinancial, CategoryMarketing}
}

// Rank returns the canonical position of c, or len(Categories()) for unknown categories
func (c Category) Rank() int {
	for i, known := range Categories() {
		if c == known {
			return i
		}
	}
	return len(Categories())
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	return c.Rank() < len(Categories())
}

// PeriodAll labels results that cover the whole dataset
const PeriodAll = "all"

// Definition is the immutable identity of a metric. It never touches data.
type Definition struct {
	Name            string   `json:"name"`
	DisplayName     string   `json:"display_name"`
	Description     string   `json:"description"`
	Category        Category `json:"category"`
	Unit            string   `json:"unit"`
	Formula         string   `json:"formula"`
	RequiredColumns []string `json:"required_columns"`
}

// Result is one computed metric value.
// INVARIANTS:
// - Value is finite or explicitly undefined; an undefined Value always carries a Warning
// - Period is PeriodAll unless the metric was computed for a period grain
type Result struct {
	MetricName   string                 `json:"metric_name"`
	Value        core.Value             `json:"value"`
	Unit         string                 `json:"unit"`
	Period       string                 `json:"period"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Warnings     []core.Warning         `json:"warnings,omitempty"`
	CalculatedAt time.Time              `json:"calculated_at"`
}

// Options tunes a calculation. Zero values select documented defaults.
type Options struct {
	// Period is the grain for breakdown and growth metrics (day, week, month, quarter, year)
	Period string `json:"period,omitempty"`
	// LifespanMonths is the assumed customer lifetime for LTV (default 24)
	LifespanMonths int `json:"lifespan_months,omitempty"`
	// CashBalance feeds runway; absent means runway is undefined
	CashBalance *float64 `json:"cash_balance,omitempty"`
	// FunnelStages overrides the default funnel order
	FunnelStages []string `json:"funnel_stages,omitempty"`
}

// Error is a per-metric failure inside a batch
type Error struct {
	MetricName string `json:"metric_name"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
	// Missing lists absent columns for MISSING_COLUMNS failures
	Missing []string `json:"missing,omitempty"`
}

// Report aggregates a batch calculation. One failed metric never removes its
// siblings from Results.
type Report struct {
	Results []Result `json:"results"`
	Errors  []Error  `json:"errors"`
}

// Result looks up a computed result by metric name
func (r Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.MetricName == name {
			return res, true
		}
	}
	return Result{}, false
}

// Error looks up a failure by metric name
func (r Report) Error(name string) (Error, bool) {
	for _, e := range r.Errors {
		if e.MetricName == name {
			return e, true
		}
	}
	return Error{}, false
}

// StoredReport is a persisted batch calculation
type StoredReport struct {
	ID core.ReportID `json:"id" db:"id"`
	// Source names the uploaded file or dataset the report was computed from
	Source      string    `json:"source" db:"source"`
	Names       []string  `json:"metrics,omitempty" db:"-"`
	Category    Category  `json:"category,omitempty" db:"category"`
	Period      string    `json:"period" db:"period"`
	Report      Report    `json:"report" db:"-"`
	Fingerprint core.Hash `json:"fingerprint" db:"fingerprint"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
