package core

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is a number that may be mathematically undefined (zero-denominator
// ratios, growth from a zero base). An undefined Value marshals to JSON null
// and is never silently coerced to 0 or infinity.
type Value struct {
	n       float64
	defined bool
}

// Some wraps a finite number. NaN and ±Inf produce an undefined Value.
func Some(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{n: f, defined: true}
}

// Undefined returns the explicit "no value" marker.
func Undefined() Value {
	return Value{}
}

// Float returns the number and whether it is defined.
func (v Value) Float() (float64, bool) {
	return v.n, v.defined
}

// IsDefined reports whether v carries a number
func (v Value) IsDefined() bool {
	return v.defined
}

// OrElse returns the number, or fallback when undefined. Only presentation
// code should use it.
func (v Value) OrElse(fallback float64) float64 {
	if !v.defined {
		return fallback
	}
	return v.n
}

// Round returns v rounded half away from zero to the given decimals.
func (v Value) Round(decimals int) Value {
	if !v.defined {
		return v
	}
	return Some(Round(v.n, decimals))
}

func (v Value) String() string {
	if !v.defined {
		return "undefined"
	}
	return strconv.FormatFloat(v.n, 'f', -1, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.defined {
		return []byte("null"), nil
	}
	return json.Marshal(v.n)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// Round rounds f half away from zero to the given decimals.
func Round(f float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(f*p) / p
}

// Ratio divides num by den, returning undefined for a zero denominator.
func Ratio(num, den float64) Value {
	if den == 0 {
		return Undefined()
	}
	return Some(num / den)
}

// WarningCode classifies a non-fatal condition attached to a result
type WarningCode string

const (
	WarningUndefinedResult     WarningCode = "UNDEFINED_RESULT"
	WarningZeroDenominator     WarningCode = "ZERO_DENOMINATOR"
	WarningInsufficientPeriods WarningCode = "INSUFFICIENT_PERIODS"
	WarningMissingParameter    WarningCode = "MISSING_PARAMETER"
	WarningEmptySeries         WarningCode = "EMPTY_SERIES"
)

// Warning explains why a value is undefined or otherwise qualified. It never
// aborts a calculation.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// NewWarning builds a Warning
func NewWarning(code WarningCode, message string) Warning {
	return Warning{Code: code, Message: message}
}
