// Package metrics exposes acceptord's operational counters as Prometheus
// collectors satisfying internal/iface.Observer, so a /metrics endpoint
// can be scraped directly instead of reading hand-rolled atomic counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector acceptord registers. Register it with a
// prometheus.Registerer once at startup.
type Metrics struct {
	AcceptTotal     *prometheus.CounterVec
	HandoffTotal    *prometheus.CounterVec
	TaskSubmitTotal *prometheus.CounterVec
	TaskExecLatency prometheus.Histogram
	LogWriteTotal   *prometheus.CounterVec
	LogWriteBytes   prometheus.Counter
}

// New constructs a fresh, unregistered Metrics.
func New() *Metrics {
	return &Metrics{
		AcceptTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acceptord",
			Name:      "accept_total",
			Help:      "Total TCP accept attempts, labeled by outcome.",
		}, []string{"result"}),
		HandoffTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acceptord",
			Name:      "handoff_total",
			Help:      "Total client fd handoffs to a business subprocess, labeled by outcome.",
		}, []string{"result"}),
		TaskSubmitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acceptord",
			Name:      "task_submit_total",
			Help:      "Total task bus submissions, labeled by outcome.",
		}, []string{"result"}),
		TaskExecLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "acceptord",
			Name:      "task_exec_latency_seconds",
			Help:      "Task execution latency on the bus.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 8),
		}),
		LogWriteTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acceptord",
			Name:      "logsrv_write_total",
			Help:      "Total log record writes, labeled by outcome.",
		}, []string{"result"}),
		LogWriteBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "acceptord",
			Name:      "logsrv_write_bytes_total",
			Help:      "Total bytes written to the log file.",
		}),
	}
}

// MustRegister registers every collector with reg, panicking on conflict
// the way main() is expected to call it once at startup.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.AcceptTotal,
		m.HandoffTotal,
		m.TaskSubmitTotal,
		m.TaskExecLatency,
		m.LogWriteTotal,
		m.LogWriteBytes,
	)
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// ObserveAccept records one accept attempt.
func (m *Metrics) ObserveAccept(success bool) {
	m.AcceptTotal.WithLabelValues(resultLabel(success)).Inc()
}

// ObserveHandoff records one fd handoff attempt.
func (m *Metrics) ObserveHandoff(success bool) {
	m.HandoffTotal.WithLabelValues(resultLabel(success)).Inc()
}

// ObserveTaskSubmit records one bus submission attempt.
func (m *Metrics) ObserveTaskSubmit(success bool) {
	m.TaskSubmitTotal.WithLabelValues(resultLabel(success)).Inc()
}

// ObserveTaskExec records one task's execution latency.
func (m *Metrics) ObserveTaskExec(latencyNs uint64) {
	m.TaskExecLatency.Observe(float64(latencyNs) / 1e9)
}

// ObserveLogWrite records one log-record write.
func (m *Metrics) ObserveLogWrite(bytes int, success bool) {
	m.LogWriteTotal.WithLabelValues(resultLabel(success)).Inc()
	if success {
		m.LogWriteBytes.Add(float64(bytes))
	}
}
