package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lineacaptura/internal/platform/metrics"
	"lineacaptura/pkg/platform/httputil"
	"lineacaptura/pkg/platform/middleware/metadata"
	"lineacaptura/pkg/platform/middleware/request"
	"lineacaptura/pkg/platform/middleware/requesttime"
	"lineacaptura/pkg/platform/middleware/session"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Config carries the cross-cutting pieces of the router.
type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Session        session.Config
	RequestTimeout time.Duration
	Checks         map[string]Check
}

// NewRouter assembles the public wizard and the operator routes. The wizard
// group carries the session cookie; /health, /metrics and /admin do not.
func NewRouter(cfg Config, wizard, admin Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(cfg.Logger))
	r.Use(metrics.LatencyMiddleware(cfg.Metrics))

	r.Get("/health", health(cfg.Checks))
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(request.Timeout(cfg.RequestTimeout))
		}
		r.Use(request.ContentTypeJSON)
		r.Use(session.Cookie(cfg.Session))
		wizard.Register(r)
	})
	if admin != nil {
		r.Group(func(r chi.Router) {
			r.Use(request.ContentTypeJSON)
			admin.Register(r)
		})
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func health(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
