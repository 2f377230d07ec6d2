package inference

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/varelim/internal/factor"
)

// MetricsRecorder counts engine invocations per operation and variable.
//
// Thread-safety: safe for concurrent use; prometheus collectors are.
type MetricsRecorder struct {
	operations *prometheus.CounterVec
}

var _ Recorder = (*MetricsRecorder)(nil)

// NewMetricsRecorder creates a MetricsRecorder and registers its collectors
// on reg. The namespace prefixes every metric name (e.g. "varelim").
func NewMetricsRecorder(reg prometheus.Registerer, namespace string) (*MetricsRecorder, error) {
	m := &MetricsRecorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "factor_operations_total",
				Help:      "Total number of factor join and eliminate operations",
			},
			[]string{"operation", "variable"},
		),
	}
	if err := reg.Register(m.operations); err != nil {
		return nil, fmt.Errorf("register factor operation metrics: %w", err)
	}
	return m, nil
}

// Record implements Recorder.
func (m *MetricsRecorder) Record(op Operation, v factor.Variable) {
	m.operations.WithLabelValues(string(op), string(v)).Inc()
}
