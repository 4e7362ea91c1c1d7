package timeseries

import (
	"math"
	"strconv"
	"time"

	"bizmetrics/domain/core"
)

// SeasonalPoint compares a bucket with the bucket one calendar lag earlier.
type SeasonalPoint struct {
	Label     string     `json:"label"`
	Value     core.Value `json:"value"`
	Reference string     `json:"reference_label,omitempty"`
	Previous  core.Value `json:"previous"`
	GrowthPct core.Value `json:"growth_pct"`
}

// SeasonalComparison is a period-over-period comparison at a fixed calendar
// lag, e.g. a lag of 12 monthly buckets compares each month with the same month
// a year earlier. It is an approximation of seasonality, not a decomposition.
// Buckets are matched by calendar position, so gaps in a sparse series are
// handled correctly.
func SeasonalComparison(buckets []Bucket, p Period, lag int) ([]SeasonalPoint, error) {
	if lag < 1 {
		return nil, core.NewInvalidInputError("lag", "must be at least 1, got %d", lag)
	}
	if _, err := ParsePeriod(string(p)); err != nil {
		return nil, err
	}

	byLabel := make(map[string]Bucket, len(buckets))
	for _, b := range buckets {
		byLabel[b.Label] = b
	}

	out := make([]SeasonalPoint, len(buckets))
	for i, b := range buckets {
		point := SeasonalPoint{Label: b.Label, Value: b.Value}
		ref := p.Label(p.Shift(p.Start(b.Start), -lag))
		if prev, ok := byLabel[ref]; ok {
			point.Reference = ref
			point.Previous = prev.Value
			_, point.GrowthPct = compare(b.Value, prev.Value)
		}
		out[i] = point
	}
	return out, nil
}

// SeasonalLag is the number of p buckets in one seasonal cycle: a week of
// days, a year of weeks, months or quarters. Years compare year over year.
func SeasonalLag(p Period) int {
	switch p {
	case Day:
		return 7
	case Week:
		return 52
	case Month:
		return 12
	case Quarter:
		return 4
	default:
		return 1
	}
}

// ProfileFor picks the profile key that shows a cycle finer than p
func ProfileFor(p Period) ProfileBy {
	if p == Day || p == Week {
		return ByWeekday
	}
	return ByMonth
}

// ProfileBy selects the cyclical key of a seasonal profile
type ProfileBy string

const (
	ByWeekday ProfileBy = "day_of_week"
	ByMonth   ProfileBy = "month"
	ByHour    ProfileBy = "hour"
)

// ProfileEntry is the mean value observed for one cyclical key
type ProfileEntry struct {
	Key   string     `json:"key"`
	Mean  core.Value `json:"mean"`
	Count int        `json:"count"`
}

// SeasonalProfile averages values by weekday (Monday first), month (January
// first) or hour of day. Keys with no observations are omitted.
func SeasonalProfile(dates []time.Time, values []float64, by ProfileBy) ([]ProfileEntry, error) {
	if len(dates) != len(values) {
		return nil, core.NewInvalidInputError("values", "got %d values for %d dates", len(values), len(dates))
	}

	var (
		keys  []string
		index func(time.Time) int
	)
	switch by {
	case ByWeekday, "":
		for d := time.Monday; d <= time.Saturday; d++ {
			keys = append(keys, d.String())
		}
		keys = append(keys, time.Sunday.String())
		index = func(t time.Time) int { return (int(t.Weekday()) + 6) % 7 }
	case ByMonth:
		for m := time.January; m <= time.December; m++ {
			keys = append(keys, m.String())
		}
		index = func(t time.Time) int { return int(t.Month()) - 1 }
	case ByHour:
		for h := 0; h < 24; h++ {
			keys = append(keys, strconv.Itoa(h))
		}
		index = func(t time.Time) int { return t.Hour() }
	default:
		return nil, core.NewInvalidInputError("by", "unknown profile key %q (want day_of_week, month or hour)", by)
	}

	sums := make([]float64, len(keys))
	counts := make([]int, len(keys))
	for i, d := range dates {
		if d.IsZero() || math.IsNaN(values[i]) {
			continue
		}
		k := index(d)
		sums[k] += values[i]
		counts[k]++
	}

	var out []ProfileEntry
	for k, key := range keys {
		if counts[k] == 0 {
			continue
		}
		out = append(out, ProfileEntry{Key: key, Mean: core.Some(sums[k] / float64(counts[k])), Count: counts[k]})
	}
	return out, nil
}
