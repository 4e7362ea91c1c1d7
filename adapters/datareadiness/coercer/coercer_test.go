package coercer

import (
	"math"
	"testing"
	"time"

	"bizmetrics/domain/dataset"
)

func TestParseNumber(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" -3.5 ", -3.5, true},
		{"$1,200.50", 1200.5, true},
		{"(250)", -250, true},
		{"1.234,56", 1234.56, true},
		{"1 234,5", 1234.5, true},
		{"12,5", 12.5, true},
		{"1,234", 1234, true},
		{"1,234,567", 1234567, true},
		{"15%", 15, true},
		{"€99", 99, true},
		{"1e3", 1000, true},
		{"", 0, false},
		{"paid", 0, false},
		{"2024-01-05", 0, false},
	}
	for _, tt := range tests {
		got, ok := c.ParseNumber(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseNumber(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())
	want := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-07", "03/07/2024", "3/7/2024", "2024/03/07", "07-Mar-2024", "Mar 7, 2024"} {
		got, ok := c.ParseTimestamp(in)
		if !ok || !got.Equal(want) {
			t.Errorf("ParseTimestamp(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := c.ParseTimestamp("next tuesday"); ok {
		t.Error("expected free text to be rejected")
	}
}

func TestAnalyzeTypeDistribution(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())
	tests := []struct {
		name   string
		values []string
		want   dataset.SemanticType
	}{
		{"plain numbers", []string{"1", "2.5", "", "4"}, dataset.TypeNumeric},
		{"money", []string{"$10", "$20.50", "30"}, dataset.TypeCurrency},
		{"zero one flags stay numeric", []string{"0", "1", "1", "0"}, dataset.TypeNumeric},
		{"yes no", []string{"yes", "no", "Y", "N"}, dataset.TypeBoolean},
		{"dates", []string{"2024-01-01", "2024-01-02", "bad", "2024-01-04", "2024-01-05"}, dataset.TypeDate},
		{"statuses", []string{"paid", "refunded", "paid"}, dataset.TypeCategory},
		{"mostly text", []string{"1", "a", "b", "c"}, dataset.TypeCategory},
		{"empty", []string{"", " "}, dataset.TypeCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.AnalyzeTypeDistribution(tt.values)
			if got.RecommendedType != tt.want {
				t.Errorf("RecommendedType = %s, want %s (%+v)", got.RecommendedType, tt.want, got)
			}
		})
	}
}

func TestCoerceColumnMarksUnparsableCellsMissing(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	col := c.CoerceColumn("amount", []string{"10", "20", "n/a", "30", "40"})
	if col.Type() != dataset.TypeNumeric {
		t.Fatalf("type = %s, want numeric", col.Type())
	}
	if !col.IsMissing(2) || col.IsMissing(0) {
		t.Error("expected only the n/a cell to be missing")
	}

	cat := c.CoerceColumn("product", []string{"  Pro   Plan ", "Basic"})
	ds := dataset.MustNew(cat)
	labels, err := ds.Labels("product")
	if err != nil {
		t.Fatal(err)
	}
	if labels[0] != "Pro Plan" || labels[1] != "Basic" {
		t.Errorf("labels = %q", labels)
	}
}
