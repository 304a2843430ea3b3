// Package metrics provides Prometheus metrics for the benefit query flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the orchestrator, external client and queue collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	QueriesTotal          *prometheus.CounterVec
	QueryDurationSeconds  *prometheus.HistogramVec
	CacheLookupsTotal     *prometheus.CounterVec
	DebitsTotal           *prometheus.CounterVec
	ExternalAttemptsTotal *prometheus.CounterVec
	ExternalCallSeconds   prometheus.Histogram
	BreakerOpen           prometheus.Gauge
	QueueActiveKeys       prometheus.Gauge
	QueueWaitingTasks     prometheus.Gauge
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the collectors on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		QueriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "saldo_queries_total",
			Help: "Balance queries by terminal outcome",
		}, []string{"outcome"}),

		QueryDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saldo_query_duration_seconds",
			Help:    "End-to-end orchestration duration by source",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 3, 5, 10, 30, 60, 120},
		}, []string{"source"}),

		CacheLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "saldo_cache_lookups_total",
			Help: "Result store cache lookups by result (hit, miss, invalid, expired)",
		}, []string{"result"}),

		DebitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "saldo_debits_total",
			Help: "Credit debits by result (ok, skipped, insufficient, error)",
		}, []string{"result"}),

		ExternalAttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "saldo_external_attempts_total",
			Help: "External balance API attempts by result category",
		}, []string{"result"}),

		ExternalCallSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "saldo_external_call_duration_seconds",
			Help:    "Duration of single external balance API calls",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "saldo_external_breaker_open",
			Help: "1 while the external API circuit breaker is open",
		}),

		QueueActiveKeys: f.NewGauge(prometheus.GaugeOpts{
			Name: "saldo_dispatch_active_keys",
			Help: "Keys with an orchestration in flight",
		}),

		QueueWaitingTasks: f.NewGauge(prometheus.GaugeOpts{
			Name: "saldo_dispatch_waiting_tasks",
			Help: "Orchestrations queued behind an in-flight one",
		}),
	}
}

func (m *Metrics) RecordQuery(outcome, source string, seconds float64) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	if source != "" {
		m.QueryDurationSeconds.WithLabelValues(source).Observe(seconds)
	}
}

func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordDebit(result string) {
	if m == nil {
		return
	}
	m.DebitsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordExternalAttempt(result string, seconds float64) {
	if m == nil {
		return
	}
	m.ExternalAttemptsTotal.WithLabelValues(result).Inc()
	m.ExternalCallSeconds.Observe(seconds)
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}

func (m *Metrics) SetQueue(activeKeys, waiting int) {
	if m == nil {
		return
	}
	m.QueueActiveKeys.Set(float64(activeKeys))
	m.QueueWaitingTasks.Set(float64(waiting))
}
