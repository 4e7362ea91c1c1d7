package coercer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bizmetrics/domain/dataset"
)

// TypeCoercer handles deterministic type detection for raw text columns
// coming out of CSV and XLSX files.
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold   float64 `json:"numeric_threshold"`   // % of values that must parse as numbers
	BooleanThreshold   float64 `json:"boolean_threshold"`   // % of values that must parse as booleans
	TimestampThreshold float64 `json:"timestamp_threshold"` // % of values that must parse as timestamps
	CurrencyThreshold  float64 `json:"currency_threshold"`  // % of numeric values carrying a currency symbol
	NormalizeStrings   bool    `json:"normalize_strings"`   // Whether to trim and collapse whitespace
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold:   0.8, // 80% must parse as numbers
		BooleanThreshold:   0.9, // 90% must parse as booleans
		TimestampThreshold: 0.8, // 80% must parse as timestamps
		CurrencyThreshold:  0.5,
		NormalizeStrings:   true,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

var (
	currencySymbols = []string{"$", "€", "£", "¥", "USD", "EUR", "GBP", "JPY"}
	whitespace      = regexp.MustCompile(`\s+`)

	timestampFormats = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"01/02/2006",
		"1/2/2006",
		"1/2/06",
		"01-02-06",
		"2006/01/02",
		"02-Jan-2006",
		"Jan 2, 2006",
	}
)

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int                  `json:"total_count"`
	ValidCount      int                  `json:"valid_count"`
	NumericCount    int                  `json:"numeric_count"`
	CurrencyCount   int                  `json:"currency_count"`
	BooleanCount    int                  `json:"boolean_count"`
	TimestampCount  int                  `json:"timestamp_count"`
	NumericRatio    float64              `json:"numeric_ratio"`
	BooleanRatio    float64              `json:"boolean_ratio"`
	TimestampRatio  float64              `json:"timestamp_ratio"`
	RecommendedType dataset.SemanticType `json:"recommended_type"`
}

// AnalyzeTypeDistribution counts how many non-empty values parse as each type
// and recommends a semantic type for the column.
func (c *TypeCoercer) AnalyzeTypeDistribution(values []string) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(values)}

	for _, raw := range values {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		analysis.ValidCount++

		if _, ok := c.ParseNumber(val); ok {
			analysis.NumericCount++
			if hasCurrencySymbol(val) {
				analysis.CurrencyCount++
			}
		}
		if _, ok := c.ParseBool(val); ok {
			analysis.BooleanCount++
		}
		if _, ok := c.ParseTimestamp(val); ok {
			analysis.TimestampCount++
		}
	}

	if analysis.ValidCount == 0 {
		analysis.RecommendedType = dataset.TypeCategory
		return analysis
	}
	valid := float64(analysis.ValidCount)
	analysis.NumericRatio = float64(analysis.NumericCount) / valid
	analysis.BooleanRatio = float64(analysis.BooleanCount) / valid
	analysis.TimestampRatio = float64(analysis.TimestampCount) / valid
	analysis.RecommendedType = c.determineRecommendedType(analysis)
	return analysis
}

// CoerceColumn detects the type of raw and builds the typed column. Cells that
// do not parse as the detected type become missing.
func (c *TypeCoercer) CoerceColumn(name string, raw []string) *dataset.Column {
	return c.CoerceColumnAs(name, raw, c.AnalyzeTypeDistribution(raw).RecommendedType)
}

// CoerceColumnAs builds a column of the given type without detection
func (c *TypeCoercer) CoerceColumnAs(name string, raw []string, typ dataset.SemanticType) *dataset.Column {
	switch typ {
	case dataset.TypeNumeric, dataset.TypeCurrency:
		values := make([]float64, len(raw))
		for i, s := range raw {
			f, ok := c.ParseNumber(s)
			if !ok {
				f = math.NaN()
			}
			values[i] = f
		}
		if typ == dataset.TypeCurrency {
			return dataset.CurrencyColumn(name, values)
		}
		return dataset.NumericColumn(name, values)

	case dataset.TypeBoolean:
		values := make([]bool, len(raw))
		for i, s := range raw {
			values[i], _ = c.ParseBool(s)
		}
		return dataset.BooleanColumn(name, values)

	case dataset.TypeDate:
		values := make([]time.Time, len(raw))
		for i, s := range raw {
			values[i], _ = c.ParseTimestamp(s)
		}
		return dataset.DateColumn(name, values)
	}

	values := make([]string, len(raw))
	for i, s := range raw {
		values[i] = c.normalizeString(s)
	}
	return dataset.CategoryColumn(name, values)
}

// ParseNumber parses with lenient rules: parentheses for negatives, currency
// symbols, percent signs, thousands separators and European decimals.
func (c *TypeCoercer) ParseNumber(strVal string) (float64, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return 0, false
	}

	// (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range currencySymbols {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(strings.ReplaceAll(cleanVal, "%", ""))

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	switch {
	case hasComma && (hasPeriod || hasSpace):
		commaIdx := strings.LastIndex(cleanVal, ",")
		afterComma := cleanVal[commaIdx+1:]
		if commaIdx > strings.LastIndex(cleanVal, ".") && len(afterComma) <= 2 && allDigits(afterComma) {
			// 1.234,56 or 1 234,56
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
		}
	case hasComma:
		// 1,234 is a thousands separator, 12,5 a decimal comma
		commaIdx := strings.LastIndex(cleanVal, ",")
		if strings.Count(cleanVal, ",") == 1 && len(cleanVal)-commaIdx-1 != 3 {
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		}
	default:
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

// ParseBool accepts the usual spreadsheet spellings of true and false
func (c *TypeCoercer) ParseBool(strVal string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(strVal)) {
	case "true", "1", "yes", "y", "on":
		return true, true
	case "false", "0", "no", "n", "off":
		return false, true
	}
	return false, false
}

// ParseTimestamp tries the supported layouts in order. Results are UTC.
func (c *TypeCoercer) ParseTimestamp(strVal string) (time.Time, bool) {
	val := strings.TrimSpace(strVal)
	if val == "" {
		return time.Time{}, false
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, val); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// normalizeString applies deterministic string normalization. Case is kept:
// product and channel names are reported verbatim.
func (c *TypeCoercer) normalizeString(s string) string {
	if !c.config.NormalizeStrings {
		return s
	}
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// determineRecommendedType chooses the best type based on analysis
func (c *TypeCoercer) determineRecommendedType(analysis TypeAnalysis) dataset.SemanticType {
	// Booleans spelled 0/1 parse as numbers too; numbers win unless every
	// value is a word like yes/no.
	if analysis.NumericRatio >= c.config.NumericThreshold {
		if analysis.NumericCount > 0 &&
			float64(analysis.CurrencyCount)/float64(analysis.NumericCount) >= c.config.CurrencyThreshold {
			return dataset.TypeCurrency
		}
		return dataset.TypeNumeric
	}

	if analysis.BooleanRatio >= c.config.BooleanThreshold {
		return dataset.TypeBoolean
	}

	if analysis.TimestampRatio >= c.config.TimestampThreshold {
		return dataset.TypeDate
	}

	return dataset.TypeCategory
}

func hasCurrencySymbol(s string) bool {
	for _, symbol := range currencySymbols {
		if strings.Contains(s, symbol) {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
