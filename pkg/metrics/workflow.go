package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// WorkflowMetrics counts application mutations by operation and outcome.
type WorkflowMetrics struct {
	transitions *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow counters on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "application_transitions_total",
		Help: "Application mutations, by operation and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(transitions)
	return &WorkflowMetrics{transitions: transitions}
}

// Record increments the counter for operation with an outcome derived from err.
func (m *WorkflowMetrics) Record(operation string, err error) {
	if m == nil || m.transitions == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.transitions.WithLabelValues(normalizeLabel(operation), outcome).Inc()
}
