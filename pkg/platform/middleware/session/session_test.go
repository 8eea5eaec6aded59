package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lineacaptura/pkg/requestcontext"
)

func TestCookie(t *testing.T) {
	cfg := Config{CookieName: "lc_session", TTL: time.Hour}
	var seen string
	h := Cookie(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.SessionID(r.Context())
	}))

	t.Run("issues a new id", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inicio", nil))

		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, seen, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, 3600, cookies[0].MaxAge)
	})

	t.Run("keeps a valid id", func(t *testing.T) {
		existing := uuid.NewString()
		r := httptest.NewRequest(http.MethodGet, "/tramite", nil)
		r.AddCookie(&http.Cookie{Name: "lc_session", Value: existing})
		h.ServeHTTP(httptest.NewRecorder(), r)

		assert.Equal(t, existing, seen)
	})

	t.Run("replaces a forged id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/tramite", nil)
		r.AddCookie(&http.Cookie{Name: "lc_session", Value: "../../etc/passwd"})
		h.ServeHTTP(httptest.NewRecorder(), r)

		assert.NotEqual(t, "../../etc/passwd", seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	})
}
