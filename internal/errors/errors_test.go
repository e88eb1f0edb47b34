package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkedErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		check     func(error) bool
		status    int
		retryable bool
	}{
		{
			name:   "invalid event ordering",
			err:    NewError("duplicate sequence").Mark(ErrInvalidEventOrdering),
			check:  IsInvalidEventOrdering,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "proration",
			err:    NewError("bad bill cycle day").Mark(ErrProration),
			check:  IsProration,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:      "concurrent invoicing",
			err:       NewError("lease held").WithHint("retry later").Mark(ErrConcurrentInvoicing),
			check:     IsConcurrentInvoicing,
			status:    http.StatusConflict,
			retryable: true,
		},
		{
			name:      "persistence wraps database",
			err:       WithError(NewError("insert failed").Mark(ErrDatabase)).Mark(ErrPersistence),
			check:     IsPersistence,
			status:    http.StatusInternalServerError,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.status, HTTPStatusFromErr(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestIsNotFoundDoesNotMatchOtherCodes(t *testing.T) {
	err := NewError("missing").Mark(ErrNotFound)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConcurrentInvoicing(err))
	assert.False(t, IsRetryable(err))
}

func TestErrorCodePrefersInvoicingFailures(t *testing.T) {
	conflict := WithError(NewError("duplicate invoice").Mark(ErrAlreadyExists)).
		WithHint("Another invoicing run committed first").
		Mark(ErrConcurrentInvoicing)

	assert.Equal(t, ErrCodeConcurrentInvoicing, ErrorCode(conflict))
	assert.Equal(t, ErrCodeNotFound, ErrorCode(NewError("missing").Mark(ErrNotFound)))
	assert.Equal(t, ErrCodeSystemError, ErrorCode(NewError("plain").Error()))

	resp := NewErrorResponse(conflict, "Another invoicing run committed first", nil)
	assert.False(t, resp.Success)
	assert.True(t, resp.Error.Retryable)
	assert.Equal(t, ErrCodeConcurrentInvoicing, resp.Error.Code)
}
