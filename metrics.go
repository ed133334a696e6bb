package acceptord

import (
	"github.com/ehrlich-b/acceptord/internal/iface"
	"github.com/ehrlich-b/acceptord/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is acceptord's Prometheus-backed collector set, re-exported at
// the root so callers constructing a Server don't need to import
// internal/metrics directly.
type Metrics = metrics.Metrics

// NewMetrics constructs a fresh, unregistered Metrics.
func NewMetrics() *Metrics { return metrics.New() }

// NewRegisteredMetrics constructs a Metrics and registers it with reg in
// one step, the common case for main().
func NewRegisteredMetrics(reg prometheus.Registerer) *Metrics {
	m := metrics.New()
	m.MustRegister(reg)
	return m
}

var _ iface.Observer = (*Metrics)(nil)
