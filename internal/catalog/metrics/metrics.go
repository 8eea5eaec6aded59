package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks catalog cache effectiveness.
type Metrics struct {
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
}

// New registers catalog metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lineacaptura_catalog_cache_hits_total",
			Help: "Catalog lookups served from cache",
		}, []string{"kind"}), // kind: "authority", "authorities", "services", "authority_services"
		CacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lineacaptura_catalog_cache_misses_total",
			Help: "Catalog lookups that fell through to the store",
		}, []string{"kind"}),
		LookupDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lineacaptura_catalog_lookup_duration_seconds",
			Help:    "Catalog lookup latency including cache population",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}, []string{"kind", "source"}),
	}
}

func (m *Metrics) RecordHit(kind string, d time.Duration) {
	if m != nil {
		m.CacheHits.WithLabelValues(kind).Inc()
		m.LookupDuration.WithLabelValues(kind, "cache").Observe(d.Seconds())
	}
}

func (m *Metrics) RecordMiss(kind string, d time.Duration) {
	if m != nil {
		m.CacheMisses.WithLabelValues(kind).Inc()
		m.LookupDuration.WithLabelValues(kind, "store").Observe(d.Seconds())
	}
}
