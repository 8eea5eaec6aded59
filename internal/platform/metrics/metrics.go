package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus metrics for the application.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	FlowRedirects   *prometheus.CounterVec
	RateLimited     *prometheus.CounterVec
}

// New creates and registers HTTP metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lineacaptura_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"route", "method", "status"}),
		FlowRedirects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lineacaptura_flow_redirects_total",
			Help: "Requests redirected because they reached a stage out of order",
		}, []string{"requested", "derived"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lineacaptura_rate_limited_total",
			Help: "Requests rejected by a rate limit, by limiter name",
		}, []string{"limiter"}),
	}
}

// IncrementFlowRedirect records a stage guard redirect.
func (m *Metrics) IncrementFlowRedirect(requested, derived string) {
	if m != nil {
		m.FlowRedirects.WithLabelValues(requested, derived).Inc()
	}
}

// IncrementRateLimited records a request rejected by the named limiter.
func (m *Metrics) IncrementRateLimited(limiter string) {
	if m != nil {
		m.RateLimited.WithLabelValues(limiter).Inc()
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// LatencyMiddleware observes request duration labelled by chi route pattern.
func LatencyMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.RequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}
