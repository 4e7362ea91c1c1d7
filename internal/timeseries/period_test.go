package timeseries

import (
	"testing"
	"time"

	"bizmetrics/domain/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want Period
		err  bool
	}{
		{"", Month, false},
		{"day", Day, false},
		{" Week ", Week, false},
		{"QUARTER", Quarter, false},
		{"year", Year, false},
		{"fortnight", "", true},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.in)
		if tc.err {
			if !core.IsInvalidInputError(err) {
				t.Errorf("ParsePeriod(%q): expected invalid input, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParsePeriod(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestPeriodStartAndLabel(t *testing.T) {
	// Thursday
	ts := time.Date(2024, time.February, 15, 13, 45, 0, 0, time.UTC)

	cases := []struct {
		p     Period
		start time.Time
		label string
	}{
		{Day, date(2024, time.February, 15), "2024-02-15"},
		{Week, date(2024, time.February, 12), "2024-02-12/2024-02-18"},
		{Month, date(2024, time.February, 1), "2024-02"},
		{Quarter, date(2024, time.January, 1), "2024Q1"},
		{Year, date(2024, time.January, 1), "2024"},
	}
	for _, tc := range cases {
		start := tc.p.Start(ts)
		if !start.Equal(tc.start) {
			t.Errorf("%s start = %v, want %v", tc.p, start, tc.start)
		}
		if label := tc.p.Label(start); label != tc.label {
			t.Errorf("%s label = %q, want %q", tc.p, label, tc.label)
		}
	}
}

func TestWeekStartsOnMonday(t *testing.T) {
	sunday := date(2024, time.March, 10)
	if got := Week.Start(sunday); !got.Equal(date(2024, time.March, 4)) {
		t.Errorf("Sunday should belong to the week starting Monday 4 March, got %v", got)
	}
}

func TestPeriodShift(t *testing.T) {
	start := date(2024, time.November, 1)
	if got := Quarter.Shift(Quarter.Start(start), 1); got.Format("2006-01-02") != "2025-01-01" {
		t.Errorf("next quarter = %v", got)
	}
	if got := Month.Shift(start, -12); got.Format("2006-01") != "2023-11" {
		t.Errorf("month shift -12 = %v", got)
	}
	if got := Week.Next(date(2024, time.December, 30)); got.Format("2006-01-02") != "2025-01-06" {
		t.Errorf("next week = %v", got)
	}
}
