package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"bizmetrics/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
	// Missing lists absent columns for CodeMissingColumns
	Missing []string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. Domain errors keep their
// classification so callers can still map them to a status.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
			Missing: appErr.Missing,
		}
	}
	code, missing := classify(err)
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Missing: missing,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
			Missing: appErr.Missing,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeMissingColumns  = "MISSING_COLUMNS"
	CodeUnknownMetric   = "UNKNOWN_METRIC"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// DatabaseError wraps a storage failure so it maps to DATABASE_ERROR
func DatabaseError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return WithCode(CodeDatabaseError, Wrapf(err, format, args...))
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// FromDomain converts any error into an AppError, classifying the domain
// sentinels from domain/core. Existing AppErrors pass through unchanged.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	code, missing := classify(err)
	return &AppError{Code: code, Message: err.Error(), Cause: err, Missing: missing}
}

func classify(err error) (string, []string) {
	switch {
	case core.IsMissingColumnsError(err):
		missing, _ := core.MissingColumns(err)
		return CodeMissingColumns, missing
	case core.IsNotFoundError(err):
		return CodeNotFound, nil
	case stderrors.Is(err, core.ErrUnknownMetric):
		return CodeUnknownMetric, nil
	case core.IsInvalidInputError(err), stderrors.Is(err, core.ErrColumnType):
		return CodeInvalidInput, nil
	case stderrors.Is(err, core.ErrInvalidState):
		return CodeValidationError, nil
	default:
		return CodeInternalError, nil
	}
}

// HTTPStatus maps an error code to the status the API answers with
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidInput, CodeValidationError, CodeMissingColumns, CodeUnknownMetric:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
