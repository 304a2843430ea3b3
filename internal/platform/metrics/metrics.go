// Package metrics exposes process-wide infrastructure gauges.
package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds infrastructure gauges that are not owned by a domain package.
type Metrics struct {
	BuildInfo       *prometheus.GaugeVec
	DBOpenConns     prometheus.Gauge
	DBInUseConns    prometheus.Gauge
	DBWaitCount     prometheus.Gauge
	DBWaitDuration  prometheus.Gauge
	BackendsEnabled *prometheus.GaugeVec
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BuildInfo: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "saldo_build_info",
			Help: "Build information, value is always 1",
		}, []string{"version", "environment"}),
		DBOpenConns: f.NewGauge(prometheus.GaugeOpts{
			Name: "saldo_db_open_connections",
			Help: "Open connections in the database pool",
		}),
		DBInUseConns: f.NewGauge(prometheus.GaugeOpts{
			Name: "saldo_db_in_use_connections",
			Help: "Connections currently in use",
		}),
		DBWaitCount: f.NewGauge(prometheus.GaugeOpts{
			Name: "saldo_db_wait_count",
			Help: "Total connections waited for",
		}),
		DBWaitDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "saldo_db_wait_duration_seconds",
			Help: "Total time blocked waiting for a connection",
		}),
		BackendsEnabled: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "saldo_backend_enabled",
			Help: "1 when the named backend is configured, 0 when its in-memory fallback is used",
		}, []string{"backend"}),
	}
}

// SetBuildInfo publishes the version label.
func (m *Metrics) SetBuildInfo(version, environment string) {
	m.BuildInfo.WithLabelValues(version, environment).Set(1)
}

// SetBackend records whether a backend is live or replaced by memory.
func (m *Metrics) SetBackend(name string, enabled bool) {
	v := 0.0
	if enabled {
		v = 1
	}
	m.BackendsEnabled.WithLabelValues(name).Set(v)
}

// RecordDBStats copies a pool snapshot into the gauges.
func (m *Metrics) RecordDBStats(stats sql.DBStats) {
	m.DBOpenConns.Set(float64(stats.OpenConnections))
	m.DBInUseConns.Set(float64(stats.InUse))
	m.DBWaitCount.Set(float64(stats.WaitCount))
	m.DBWaitDuration.Set(stats.WaitDuration.Seconds())
}
