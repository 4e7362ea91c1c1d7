package timeseries

import (
	"math"
	"sort"
	"time"

	"bizmetrics/domain/core"

	"github.com/montanaflynn/stats"
)

// Aggregation reduces the values that fall into one bucket
type Aggregation string

const (
	AggSum    Aggregation = "sum"
	AggMean   Aggregation = "mean"
	AggCount  Aggregation = "count"
	AggMin    Aggregation = "min"
	AggMax    Aggregation = "max"
	AggMedian Aggregation = "median"
)

// Bucket is one calendar period of an aggregated series
type Bucket struct {
	Label string     `json:"label"`
	Start time.Time  `json:"start"`
	Value core.Value `json:"value"`
	Count int        `json:"count"`
}

type accumulator struct {
	start  time.Time
	values []float64
}

// GroupByPeriod buckets values by the calendar period of the matching date.
// Rows with a missing date are skipped; NaN values do not contribute. Periods
// without rows are omitted unless dense is set, in which case they appear with
// Count 0, a zero sum/count and an undefined mean/min/max/median.
func GroupByPeriod(dates []time.Time, values []float64, p Period, agg Aggregation, dense bool) ([]Bucket, error) {
	if len(dates) != len(values) {
		return nil, core.NewInvalidInputError("values", "got %d values for %d dates", len(values), len(dates))
	}
	if _, err := ParsePeriod(string(p)); err != nil {
		return nil, err
	}
	if !agg.valid() {
		return nil, core.NewInvalidInputError("aggregation", "unknown aggregation %q", agg)
	}

	byLabel := make(map[string]*accumulator)
	for i, d := range dates {
		if d.IsZero() {
			continue
		}
		start := p.Start(d)
		label := p.Label(start)
		acc, ok := byLabel[label]
		if !ok {
			acc = &accumulator{start: start}
			byLabel[label] = acc
		}
		if !math.IsNaN(values[i]) {
			acc.values = append(acc.values, values[i])
		}
	}

	buckets := make([]Bucket, 0, len(byLabel))
	for label, acc := range byLabel {
		buckets = append(buckets, Bucket{
			Label: label,
			Start: acc.start,
			Value: aggregate(acc.values, agg),
			Count: len(acc.values),
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Start.Before(buckets[j].Start) })

	if dense && len(buckets) > 1 {
		buckets = fill(buckets, p, agg)
	}
	return buckets, nil
}

func fill(buckets []Bucket, p Period, agg Aggregation) []Bucket {
	present := make(map[string]Bucket, len(buckets))
	for _, b := range buckets {
		present[b.Label] = b
	}
	last := buckets[len(buckets)-1].Start
	var out []Bucket
	for start := buckets[0].Start; !start.After(last); start = p.Next(start) {
		label := p.Label(start)
		if b, ok := present[label]; ok {
			out = append(out, b)
			continue
		}
		out = append(out, Bucket{Label: label, Start: start, Value: aggregate(nil, agg)})
	}
	return out
}

func (a Aggregation) valid() bool {
	switch a {
	case AggSum, AggMean, AggCount, AggMin, AggMax, AggMedian:
		return true
	}
	return false
}

func aggregate(values []float64, agg Aggregation) core.Value {
	switch agg {
	case AggSum:
		if len(values) == 0 {
			return core.Some(0)
		}
		sum, _ := stats.Sum(values)
		return core.Some(sum)
	case AggCount:
		return core.Some(float64(len(values)))
	}

	if len(values) == 0 {
		return core.Undefined()
	}
	var (
		v   float64
		err error
	)
	switch agg {
	case AggMean:
		v, err = stats.Mean(values)
	case AggMin:
		v, err = stats.Min(values)
	case AggMax:
		v, err = stats.Max(values)
	case AggMedian:
		v, err = stats.Median(values)
	}
	if err != nil {
		return core.Undefined()
	}
	return core.Some(v)
}

// Values extracts bucket values in order
func Values(buckets []Bucket) []core.Value {
	out := make([]core.Value, len(buckets))
	for i, b := range buckets {
		out[i] = b.Value
	}
	return out
}
