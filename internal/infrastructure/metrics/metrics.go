package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "waste_service"

// PredictionMetrics counts pipeline outcomes. It implements core.PredictionRecorder.
type PredictionMetrics struct {
	registry  *prometheus.Registry
	served    *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	zones     prometheus.Counter
}

// NewPredictionMetrics registers the collectors on a fresh registry.
func NewPredictionMetrics() *PredictionMetrics {
	m := &PredictionMetrics{
		registry: prometheus.NewRegistry(),
		served: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions served, by whether the fallback estimate was used.",
		}, []string{"fallback"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_fallbacks_total",
			Help:      "Fallback estimates, by failing stage and reason.",
		}, []string{"stage", "reason"}),
		zones: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zone_encoding_fallbacks_total",
			Help:      "Zone names encoded as the reference code 0.",
		}),
	}
	m.registry.MustRegister(
		m.served,
		m.fallbacks,
		m.zones,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *PredictionMetrics) PredictionServed(fallback bool) {
	m.served.WithLabelValues(strconv.FormatBool(fallback)).Inc()
}

func (m *PredictionMetrics) FallbackUsed(stage, reason string) {
	m.fallbacks.WithLabelValues(stage, reason).Inc()
}

func (m *PredictionMetrics) ZoneFallback() { m.zones.Inc() }

// Handler serves the registry in the Prometheus exposition format.
func (m *PredictionMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Served is exported for tests.
func (m *PredictionMetrics) Served() *prometheus.CounterVec { return m.served }

// Fallbacks is exported for tests.
func (m *PredictionMetrics) Fallbacks() *prometheus.CounterVec { return m.fallbacks }
