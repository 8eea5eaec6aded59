// Package session issues the opaque cookie that keys server-side flow state.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"lineacaptura/pkg/requestcontext"
)

// Config controls the session cookie.
type Config struct {
	CookieName string
	Secure     bool
	TTL        time.Duration
}

// Cookie reads the session cookie, replacing missing or malformed values with
// a fresh random id, and exposes it through requestcontext.SessionID.
func Cookie(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cfg.CookieName); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil && parsed != uuid.Nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
			}
			// Refreshed on every request so the cookie outlives activity, not creation.
			http.SetCookie(w, &http.Cookie{
				Name:     cfg.CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cfg.TTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			ctx := requestcontext.WithSessionID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
