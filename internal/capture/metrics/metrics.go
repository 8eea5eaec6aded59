package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks capture-line generations.
type Metrics struct {
	Generations        *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	GrandTotal         prometheus.Histogram
}

// New registers capture metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Generations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lineacaptura_generations_total",
			Help: "Capture-line generations by outcome",
		}, []string{"outcome"}), // outcome: "success", "rejected", or an authority failure category
		GenerationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lineacaptura_generation_duration_seconds",
			Help:    "End to end generation latency including the authority call",
			Buckets: prometheus.DefBuckets,
		}),
		GrandTotal: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lineacaptura_generation_grand_total_pesos",
			Help:    "Rounded grand total of generated capture lines",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000},
		}),
	}
}

func (m *Metrics) ObserveGeneration(outcome string, d time.Duration, grandTotal float64) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(outcome).Inc()
	m.GenerationDuration.Observe(d.Seconds())
	if outcome == "success" {
		m.GrandTotal.Observe(grandTotal)
	}
}
