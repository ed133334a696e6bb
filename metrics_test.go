package acceptord

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewRegisteredMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegisteredMetrics(reg)

	m.ObserveAccept(true)
	m.ObserveHandoff(false)
	m.ObserveTaskSubmit(true)
	m.ObserveTaskExec(1_500_000)
	m.ObserveLogWrite(42, true)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
