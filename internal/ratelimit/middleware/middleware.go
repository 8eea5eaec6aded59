// Package middleware applies a sliding-window limit per client IP.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"lineacaptura/internal/platform/metrics"
	"lineacaptura/internal/ratelimit/models"
	"lineacaptura/pkg/platform/httputil"
	"lineacaptura/pkg/platform/middleware/request"
	"lineacaptura/pkg/requestcontext"
)

// Store is implemented by the bucket stores.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

// Limit describes how many requests a client may make per window.
type Limit struct {
	Name     string
	Requests int
	Window   time.Duration
}

// Enabled reports whether the limit should be enforced.
func (l Limit) Enabled() bool {
	return l.Requests > 0 && l.Window > 0
}

type Middleware struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(store Store, logger *slog.Logger, m *metrics.Metrics) *Middleware {
	return &Middleware{store: store, logger: logger, metrics: m}
}

// ByIP limits requests per client IP. Store errors let the request through.
func (m *Middleware) ByIP(limit Limit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil || m.store == nil || !limit.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if ip == "" {
				ip = "unknown"
			}

			result, err := m.store.Allow(ctx, limit.Name+":ip:"+ip, limit.Requests, limit.Window)
			if err != nil {
				m.logger.WarnContext(ctx, "rate limit check failed, allowing request",
					"limiter", limit.Name,
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addHeaders(w, result)
			if !result.Allowed {
				m.metrics.IncrementRateLimited(limit.Name)
				m.logger.InfoContext(ctx, "rate limit exceeded",
					"limiter", limit.Name,
					"client_ip", ip,
					"request_id", request.GetRequestID(ctx),
				)
				writeExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, models.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
