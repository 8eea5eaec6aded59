package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit publishing.
type Metrics struct {
	Emitted               *prometheus.CounterVec
	Dropped               prometheus.Counter
	PersistFailures       prometheus.Counter
	CircuitBreakerDropped prometheus.Counter
	CircuitBreakerState   prometheus.Gauge
}

// New registers audit metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Emitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lineacaptura_audit_events_emitted_total",
			Help: "Audit events accepted by the publisher",
		}, []string{"category"}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "lineacaptura_audit_events_dropped_total",
			Help: "Audit events dropped because the async buffer was full",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "lineacaptura_audit_persist_failures_total",
			Help: "Audit events a store failed to persist",
		}),
		CircuitBreakerDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "lineacaptura_audit_circuit_breaker_dropped_total",
			Help: "Audit events skipped by a sink while its circuit breaker was open",
		}),
		CircuitBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "lineacaptura_audit_circuit_breaker_state",
			Help: "Sink circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

func (m *Metrics) IncEmitted(category string) {
	if m != nil {
		m.Emitted.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) IncDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) IncPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) IncCircuitBreakerDropped() {
	if m != nil {
		m.CircuitBreakerDropped.Inc()
	}
}

// SetCircuitBreakerState sets the circuit breaker state gauge.
func (m *Metrics) SetCircuitBreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}
