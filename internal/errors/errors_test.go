package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"bizmetrics/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDomainClassifiesSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"missing columns", &core.MissingColumnsError{Metric: "cac", Missing: []string{"spend"}}, CodeMissingColumns, http.StatusBadRequest},
		{"not found", fmt.Errorf("load: %w", core.ErrExperimentNotFound), CodeNotFound, http.StatusNotFound},
		{"unknown metric", core.NewUnknownMetricError("nps"), CodeUnknownMetric, http.StatusBadRequest},
		{"invalid input", core.NewInvalidInputError("users", "must be positive"), CodeInvalidInput, http.StatusBadRequest},
		{"column type", core.ErrColumnType, CodeInvalidInput, http.StatusBadRequest},
		{"state", core.ErrInvalidState, CodeValidationError, http.StatusBadRequest},
		{"other", stderrors.New("disk on fire"), CodeInternalError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromDomain(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, HTTPStatus(appErr.Code))
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestFromDomainCarriesMissingColumns(t *testing.T) {
	err := Wrap(&core.MissingColumnsError{Metric: "roas", Missing: []string{"revenue", "spend"}}, "calculate")
	appErr := FromDomain(err)
	assert.Equal(t, CodeMissingColumns, appErr.Code)
	assert.Equal(t, []string{"revenue", "spend"}, appErr.Missing)
	assert.Equal(t, "calculate: missing columns for roas: [revenue, spend]", err.Error())
}

func TestWrapKeepsAppErrorCode(t *testing.T) {
	base := NotFound("experiment")
	wrapped := Wrapf(base, "loading %s", "abc")
	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.Equal(t, "loading abc: experiment not found", wrapped.Error())
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, FromDomain(nil))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeDatabaseError, stderrors.New("connection refused"))
	assert.Equal(t, CodeDatabaseError, GetCode(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(GetCode(err)))
}

func TestDatabaseError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := DatabaseError(cause, "failed to get experiment %s", "abc")
	assert.Equal(t, CodeDatabaseError, GetCode(err))
	assert.Equal(t, "failed to get experiment abc: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, DatabaseError(nil, "ignored"))
}
