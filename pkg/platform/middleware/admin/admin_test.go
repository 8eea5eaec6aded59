package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name     string
		expected string
		sent     string
		want     int
	}{
		{name: "matching token", expected: "s3cret", sent: "s3cret", want: http.StatusNoContent},
		{name: "wrong token", expected: "s3cret", sent: "nope", want: http.StatusUnauthorized},
		{name: "missing token", expected: "s3cret", want: http.StatusUnauthorized},
		{name: "disabled when unset", expected: "", sent: "", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/admin/cache/clear", nil)
			if tt.sent != "" {
				r.Header.Set("X-Admin-Token", tt.sent)
			}
			w := httptest.NewRecorder()
			RequireAdminToken(tt.expected, logger)(ok).ServeHTTP(w, r)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
