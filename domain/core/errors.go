package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound           = errors.New("resource not found")
	ErrExperimentNotFound = fmt.Errorf("%w: experiment", ErrNotFound)
	ErrReportNotFound     = fmt.Errorf("%w: metric report", ErrNotFound)

	ErrMissingColumns = errors.New("missing required columns")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownMetric  = errors.New("unknown metric")
	ErrColumnType     = errors.New("column has wrong semantic type")
	ErrInvalidState   = errors.New("invalid state transition")
)

// MissingColumnsError is returned when a metric is asked to run against a
// dataset that lacks some of its required columns. Missing lists exactly the
// absent names, in the metric's declaration order.
type MissingColumnsError struct {
	Metric  string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing columns for %s: [%s]", e.Metric, strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// InvalidInputError reports counts or parameters that make an analysis meaningless.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input for %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewInvalidInputError(field, format string, args ...interface{}) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func NewColumnTypeError(column string, want, got fmt.Stringer) error {
	return fmt.Errorf("%w: %s is %s, want %s", ErrColumnType, column, got, want)
}

func NewUnknownMetricError(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownMetric, name)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsMissingColumnsError(err error) bool {
	return errors.Is(err, ErrMissingColumns)
}

func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// MissingColumns extracts the missing column names from err, if any
func MissingColumns(err error) ([]string, bool) {
	var mce *MissingColumnsError
	if errors.As(err, &mce) {
		return mce.Missing, true
	}
	return nil, false
}
