// Package errors tests for error code definitions and error handling.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrorCodeValues verifies all error codes have non-empty values.
func TestErrorCodeValues(t *testing.T) {
	codes := []ErrorCode{
		ErrInternal, ErrInvalid, ErrNotFound, ErrValidation, ErrConfig,
		ErrDatabase, ErrMigration, ErrUnknownField,
		ErrFetchFailed, ErrFetchTimeout,
	}
	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		assert.NotEmpty(t, string(code))
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestAppError_Error(t *testing.T) {
	err := New(ErrInvalid, "case number is required")
	assert.Equal(t, "[INVALID_INPUT] case number is required", err.Error())

	wrapped := Wrap(ErrDatabase, "upsert failed", stderrors.New("disk I/O error"))
	assert.Equal(t, "[DATABASE_ERROR] upsert failed: disk I/O error", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(ErrFetchFailed, "fetch", cause)
	assert.True(t, stderrors.Is(err, cause))
}

func TestIs(t *testing.T) {
	inner := Wrap(ErrFetchTimeout, "deadline", stderrors.New("context deadline exceeded"))
	outer := Wrap(ErrFetchFailed, "fetch failed", inner)
	fmtWrapped := fmt.Errorf("lookup: %w", outer)

	assert.True(t, Is(outer, ErrFetchFailed))
	assert.True(t, Is(outer, ErrFetchTimeout))
	assert.True(t, Is(fmtWrapped, ErrFetchTimeout))
	assert.False(t, Is(fmtWrapped, ErrDatabase))
	assert.False(t, Is(stderrors.New("plain"), ErrInternal))
	assert.False(t, Is(nil, ErrInternal))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrInvalid, "x"), http.StatusBadRequest},
		{New(ErrUnknownField, "x"), http.StatusBadRequest},
		{New(ErrNotFound, "x"), http.StatusNotFound},
		{New(ErrDatabase, "x"), http.StatusInternalServerError},
		{stderrors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestPublicMessage(t *testing.T) {
	err := fmt.Errorf("handler: %w", Wrap(ErrDatabase, "storage unavailable", stderrors.New("locked")))
	assert.Equal(t, "storage unavailable", PublicMessage(err))
	assert.Equal(t, "plain", PublicMessage(stderrors.New("plain")))
}
