package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestObserveAcceptIncrementsLabeledCounter(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	m.MustRegister(reg)

	m.ObserveAccept(true)
	m.ObserveAccept(false)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "acceptord_accept_total" {
			found = true
			require.Len(t, f.GetMetric(), 2)
		}
	}
	require.True(t, found, "expected acceptord_accept_total to be registered")
}

func TestObserveTaskExecRecordsLatency(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	m.MustRegister(reg)

	m.ObserveTaskExec(2_000_000)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "acceptord_task_exec_latency_seconds" {
			found = true
			require.EqualValues(t, 1, f.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	require.True(t, found, "expected acceptord_task_exec_latency_seconds to be registered")
}

func TestObserveLogWriteRecordsBytesOnSuccess(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	m.MustRegister(reg)

	m.ObserveLogWrite(12, true)
	m.ObserveLogWrite(5, false)

	families, err := reg.Gather()
	require.NoError(t, err)

	var foundTotal, foundBytes bool
	for _, f := range families {
		switch f.GetName() {
		case "acceptord_logsrv_write_total":
			foundTotal = true
			require.Len(t, f.GetMetric(), 2)
		case "acceptord_logsrv_write_bytes_total":
			foundBytes = true
			require.EqualValues(t, 12, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	require.True(t, foundTotal, "expected acceptord_logsrv_write_total to be registered")
	require.True(t, foundBytes, "expected acceptord_logsrv_write_bytes_total to be registered")
}

func TestMustRegisterPanicsOnDoubleRegistration(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	m.MustRegister(reg)

	require.Panics(t, func() { m.MustRegister(reg) })
}
