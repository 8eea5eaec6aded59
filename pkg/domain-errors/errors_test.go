package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("keeps cause in chain", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodeUnavailable, "catalog unavailable")

		require.ErrorIs(t, err, cause)
		assert.Equal(t, "catalog unavailable: connection reset", err.Error())
		assert.True(t, Is(err, CodeUnavailable))
	})
}

func TestHasCode(t *testing.T) {
	inner := New(CodeNotFound, "authority not found")
	outer := Wrap(inner, CodeInternal, "load authority")
	wrapped := fmt.Errorf("generate: %w", outer)

	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.False(t, HasCode(wrapped, CodeTimeout))
	assert.True(t, Is(wrapped, CodeInternal))
	assert.False(t, Is(wrapped, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeValidation, http.StatusUnprocessableEntity},
		{CodeNotFound, http.StatusNotFound},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
		{Code("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(tt.code))
		})
	}
}
