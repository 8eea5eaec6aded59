package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lineacaptura/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok, "internal errors must not leak descriptions")
	})

	t.Run("plain error treated as internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("pq: connection refused"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "pq:")
	})

	t.Run("validation error includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeValidation, "quantity must be between 1 and 999"))

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, "quantity must be between 1 and 999", body["error_description"])
	})
}

type pingRequest struct {
	Name string `json:"name"`
}

func (r *pingRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
	}{
		{name: "valid body", body: `{"name":"  tramite "}`, wantOK: true},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest},
		{name: "malformed json", body: `{"name":`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"name":"x","extra":1}`, wantStatus: http.StatusBadRequest},
		{name: "fails validation", body: `{"name":"   "}`, wantStatus: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			req, ok := DecodeAndPrepare[pingRequest](w, r, logger, r.Context(), "req-1")

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, req)
				assert.Equal(t, "tramite", req.Name)
				return
			}
			assert.Nil(t, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

type quantityItem struct {
	Quantity int `json:"quantity" validate:"min=1,max=999"`
}

type quantityRequest struct {
	Kind  string         `json:"kind" validate:"required,oneof=F M"`
	Items []quantityItem `json:"items" validate:"required,min=1,dive"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateStruct(quantityRequest{Kind: "F", Items: []quantityItem{{Quantity: 2}}}))
	})

	t.Run("reports json field names", func(t *testing.T) {
		err := ValidateStruct(quantityRequest{Kind: "F", Items: []quantityItem{{Quantity: 1000}}})
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
		assert.Equal(t, "items[0].quantity must be at most 999", err.Error())
	})

	t.Run("oneof", func(t *testing.T) {
		err := ValidateStruct(quantityRequest{Kind: "X", Items: []quantityItem{{Quantity: 1}}})
		require.Error(t, err)
		assert.Equal(t, "kind must be one of [F M]", err.Error())
	})

	t.Run("empty list", func(t *testing.T) {
		err := ValidateStruct(quantityRequest{Kind: "M"})
		require.Error(t, err)
		assert.Equal(t, "items is required", err.Error())
	})
}
