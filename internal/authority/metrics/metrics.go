package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks calls to the payment authority.
type Metrics struct {
	Calls        *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
}

// New registers authority client metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Calls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lineacaptura_authority_calls_total",
			Help: "Calls to the payment authority by outcome",
		}, []string{"outcome"}), // outcome: "success" or a failure category
		CallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lineacaptura_authority_call_duration_seconds",
			Help:    "Round trip latency of payment authority calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveCall(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(outcome).Inc()
	m.CallDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
