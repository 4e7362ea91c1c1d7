// Package timeseries holds stateless helpers for calendar bucketing, growth,
// moving averages, outlier, trend and seasonal comparison. Every function is
// pure: inputs are never mutated and undefined values are reported, not imputed.
package timeseries

import (
	"fmt"
	"strings"
	"time"

	"bizmetrics/domain/core"
)

// Period is a calendar grain
type Period string

const (
	Day     Period = "day"
	Week    Period = "week"
	Month   Period = "month"
	Quarter Period = "quarter"
	Year    Period = "year"
)

// DefaultPeriod is used when the caller supplies no grain
const DefaultPeriod = Month

// ParsePeriod validates a grain name; the empty string selects DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DefaultPeriod, nil
	case Day, Week, Month, Quarter, Year:
		return p, nil
	default:
		return "", core.NewInvalidInputError("period", "unknown period %q (want day, week, month, quarter or year)", s)
	}
}

// Start truncates t to the first instant of its bucket. Weeks start on Monday.
func (p Period) Start(t time.Time) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch p {
	case Day:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case Week:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case Quarter:
		return time.Date(y, ((m-1)/3)*3+1, 1, 0, 0, 0, 0, loc)
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	}
}

// Shift moves a bucket start by n buckets using calendar arithmetic.
func (p Period) Shift(start time.Time, n int) time.Time {
	switch p {
	case Day:
		return start.AddDate(0, 0, n)
	case Week:
		return start.AddDate(0, 0, 7*n)
	case Quarter:
		return start.AddDate(0, 3*n, 0)
	case Year:
		return start.AddDate(n, 0, 0)
	default:
		return start.AddDate(0, n, 0)
	}
}

// Next returns the start of the following bucket
func (p Period) Next(start time.Time) time.Time {
	return p.Shift(start, 1)
}

// Label renders a bucket start: 2024-01-15, 2024-01-15/2024-01-21, 2024-01, 2024Q1, 2024.
func (p Period) Label(start time.Time) string {
	switch p {
	case Day:
		return start.Format("2006-01-02")
	case Week:
		return start.Format("2006-01-02") + "/" + start.AddDate(0, 0, 6).Format("2006-01-02")
	case Quarter:
		return fmt.Sprintf("%dQ%d", start.Year(), (int(start.Month())-1)/3+1)
	case Year:
		return start.Format("2006")
	default:
		return start.Format("2006-01")
	}
}
