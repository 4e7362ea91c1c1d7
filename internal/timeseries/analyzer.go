package timeseries

import (
	"fmt"
	"math"
	"time"

	"bizmetrics/domain/core"
	"bizmetrics/domain/dataset"
)

// Analyzer runs the series helpers over one date column of a dataset.
// It only reads from the dataset.
type Analyzer struct {
	ds         *dataset.Dataset
	dateColumn string
	dates      []time.Time
}

// NewAnalyzer binds a dataset to its date column
func NewAnalyzer(ds *dataset.Dataset, dateColumn string) (*Analyzer, error) {
	if ds == nil {
		return nil, core.NewInvalidInputError("dataset", "is nil")
	}
	dates, err := ds.Dates(dateColumn)
	if err != nil {
		return nil, err
	}
	return &Analyzer{ds: ds, dateColumn: dateColumn, dates: dates}, nil
}

// DateColumn returns the bound date column name
func (a *Analyzer) DateColumn() string { return a.dateColumn }

// GroupByPeriod aggregates valueColumn into calendar buckets
func (a *Analyzer) GroupByPeriod(valueColumn string, p Period, agg Aggregation, dense bool) ([]Bucket, error) {
	values, err := a.ds.Numbers(valueColumn)
	if err != nil {
		return nil, err
	}
	return GroupByPeriod(a.dates, values, p, agg, dense)
}

// Growth sums valueColumn per period and compares each period with the one lag periods before.
func (a *Analyzer) Growth(valueColumn string, p Period, lag int) ([]GrowthPoint, error) {
	buckets, err := a.GroupByPeriod(valueColumn, p, AggSum, true)
	if err != nil {
		return nil, err
	}
	return GrowthSeries(buckets, lag)
}

// Trend fits a line through the per-period sums of valueColumn
func (a *Analyzer) Trend(valueColumn string, p Period, flatEpsilon float64) (Trend, error) {
	buckets, err := a.GroupByPeriod(valueColumn, p, AggSum, true)
	if err != nil {
		return Trend{}, err
	}
	return DetectTrend(floats(Values(buckets)), flatEpsilon)
}

// MovingAverage smooths the per-period sums of valueColumn
func (a *Analyzer) MovingAverage(valueColumn string, p Period, window int) ([]Bucket, error) {
	buckets, err := a.GroupByPeriod(valueColumn, p, AggSum, true)
	if err != nil {
		return nil, err
	}
	avg, err := MovingAverage(floats(Values(buckets)), window)
	if err != nil {
		return nil, err
	}
	out := make([]Bucket, len(buckets))
	for i, b := range buckets {
		b.Value = avg[i]
		out[i] = b
	}
	return out, nil
}

// Outliers flags rows of valueColumn with the given method ("zscore" or "iqr").
func (a *Analyzer) Outliers(valueColumn, method string, threshold float64) ([]Outlier, error) {
	values, err := a.ds.Numbers(valueColumn)
	if err != nil {
		return nil, err
	}
	switch method {
	case MethodZScore:
		return DetectOutliers(values, threshold)
	case MethodIQR, "":
		return IQROutliers(values, threshold)
	default:
		return nil, core.NewInvalidInputError("method", "unknown outlier method %q", method)
	}
}

// Seasonal sums valueColumn per period and compares each bucket with the one
// lag periods earlier. Lag 0 picks SeasonalLag(p).
func (a *Analyzer) Seasonal(valueColumn string, p Period, lag int) ([]SeasonalPoint, error) {
	if lag == 0 {
		lag = SeasonalLag(p)
	}
	buckets, err := a.GroupByPeriod(valueColumn, p, AggSum, false)
	if err != nil {
		return nil, err
	}
	return SeasonalComparison(buckets, p, lag)
}

// Profile averages valueColumn by a cyclical calendar key
func (a *Analyzer) Profile(valueColumn string, by ProfileBy) ([]ProfileEntry, error) {
	values, err := a.ds.Numbers(valueColumn)
	if err != nil {
		return nil, err
	}
	return SeasonalProfile(a.dates, values, by)
}

// PeriodComparison contrasts the last two calendar periods of a series
type PeriodComparison struct {
	CurrentPeriod  string         `json:"current_period,omitempty"`
	PreviousPeriod string         `json:"previous_period,omitempty"`
	Current        core.Value     `json:"current"`
	Previous       core.Value     `json:"previous"`
	Change         core.Value     `json:"change"`
	ChangePct      core.Value     `json:"change_pct"`
	Periods        int            `json:"periods"`
	Warnings       []core.Warning `json:"warnings,omitempty"`
}

// Compare sums valueColumn per period and contrasts the last period with the
// adjacent one before it. Gaps count as zero-valued periods.
func (a *Analyzer) Compare(valueColumn string, p Period) (PeriodComparison, error) {
	buckets, err := a.GroupByPeriod(valueColumn, p, AggSum, true)
	if err != nil {
		return PeriodComparison{}, err
	}
	return ComparePeriods(buckets), nil
}

// ComparePeriods contrasts the last two buckets. Fewer than two buckets or a
// zero previous value leave the change percentage undefined with a warning.
func ComparePeriods(buckets []Bucket) PeriodComparison {
	pc := PeriodComparison{Periods: len(buckets)}
	if len(buckets) == 0 {
		pc.Warnings = append(pc.Warnings, core.NewWarning(core.WarningInsufficientPeriods, "series has no periods"))
		return pc
	}
	cur := buckets[len(buckets)-1]
	pc.CurrentPeriod = cur.Label
	pc.Current = cur.Value.Round(2)
	if len(buckets) < 2 {
		pc.Warnings = append(pc.Warnings, core.NewWarning(core.WarningInsufficientPeriods,
			fmt.Sprintf("need 2 periods to compare, have %d", len(buckets))))
		return pc
	}

	prev := buckets[len(buckets)-2]
	pc.PreviousPeriod = prev.Label
	pc.Previous = prev.Value.Round(2)
	change, growth := compare(cur.Value, prev.Value)
	pc.Change = change.Round(2)
	pc.ChangePct = growth.Round(2)
	if p, ok := prev.Value.Float(); ok && p == 0 {
		pc.Warnings = append(pc.Warnings, core.NewWarning(core.WarningZeroDenominator,
			fmt.Sprintf("previous period %s is zero; growth is undefined", prev.Label)))
	}
	return pc
}

// DateRange summarises the span of the date column
type DateRange struct {
	Min     time.Time `json:"min_date"`
	Max     time.Time `json:"max_date"`
	Days    int       `json:"days"`
	Records int       `json:"records"`
}

// DateRange reports the earliest and latest dates. Missing dates are ignored.
func (a *Analyzer) DateRange() DateRange {
	var r DateRange
	for _, d := range a.dates {
		if d.IsZero() {
			continue
		}
		if r.Records == 0 || d.Before(r.Min) {
			r.Min = d
		}
		if r.Records == 0 || d.After(r.Max) {
			r.Max = d
		}
		r.Records++
	}
	if r.Records > 0 {
		r.Days = int(r.Max.Sub(r.Min).Hours() / 24)
	}
	return r
}

func floats(values []core.Value) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		f, ok := v.Float()
		if !ok {
			f = math.NaN()
		}
		out[i] = f
	}
	return out
}
