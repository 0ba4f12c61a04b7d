package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus instruments. A nil *Metrics is
// valid and records nothing, which keeps tests free of registry conflicts.
type Metrics struct {
	calculations *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	duration     prometheus.Histogram
}

// NewMetrics registers the engine metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		calculations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonledger_calculations_total",
			Help: "Completed emission calculations by backend.",
		}, []string{"backend"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonledger_backend_rejections_total",
			Help: "Backend rejections that triggered fallback.",
		}, []string{"backend"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "carbonledger_calculation_duration_seconds",
			Help:    "End to end calculation latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observeCalculation(backend BackendKind, seconds float64) {
	if m == nil {
		return
	}
	m.calculations.WithLabelValues(backend.String()).Inc()
	m.duration.Observe(seconds)
}

func (m *Metrics) observeRejection(backend BackendKind) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(backend.String()).Inc()
}
