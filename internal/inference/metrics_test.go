package inference

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varelim/internal/factor"
	fixtures "github.com/roach88/varelim/internal/testutil"
)

func TestMetricsRecorderCountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetricsRecorder(reg, "varelim")
	require.NoError(t, err)

	net := fixtures.NewRainUmbrella(t)
	_, joined, err := JoinFactorsByVariable([]factor.Factor{net.Rain, net.Umbrella}, "Rain", metrics)
	require.NoError(t, err)
	_, err = Eliminate(joined, "Rain", metrics)
	require.NoError(t, err)
	_, err = Eliminate(joined, "Umbrella", metrics)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("join", "Rain")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("eliminate", "Rain")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("eliminate", "Umbrella")))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "varelim_factor_operations_total", families[0].GetName())
	assert.Len(t, families[0].GetMetric(), 3)
}

func TestMetricsRecorderRejectedCallsNotCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetricsRecorder(reg, "varelim")
	require.NoError(t, err)

	net := fixtures.NewRainUmbrella(t)
	_, err = Eliminate(net.Rain, "Rain", metrics)
	require.Error(t, err)

	assert.Equal(t, 0, testutil.CollectAndCount(metrics.operations))
}

func TestMetricsRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetricsRecorder(reg, "varelim")
	require.NoError(t, err)

	_, err = NewMetricsRecorder(reg, "varelim")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register factor operation metrics")
}
