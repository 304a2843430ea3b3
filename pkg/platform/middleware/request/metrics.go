package request

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// latencyBuckets span a cache hit (milliseconds) up to a lookup that paces
// and retries against the balance API (tens of seconds).
var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 160}

type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the collectors on reg. Tests pass a fresh registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		EndpointLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saldo_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: latencyBuckets,
		}, []string{"endpoint", "status"}),
	}
}

func (m *Metrics) ObserveEndpointLatency(endpoint string, status int, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint, strconv.Itoa(status)).Observe(durationSeconds)
}
