package forum

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts ledger operations by outcome.
type Metrics struct {
	operations *prometheus.CounterVec
	overflows  *prometheus.CounterVec
}

// NewMetrics creates the ledger collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_operations_total",
			Help: "Ledger operations by operation and result.",
		}, []string{"op", "result"}),
		overflows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_counter_overflows_total",
			Help: "Create operations rejected because a counter was at its maximum.",
		}, []string{"scope"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.overflows)
	}
	return m
}

// observe records one operation. Safe on a nil receiver.
func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
	if errors.Is(err, ErrCounterOverflow) {
		scope := "thread"
		if op == opCreateThreadElement {
			scope = "element"
		}
		m.overflows.WithLabelValues(scope).Inc()
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCounterOverflow):
		return "overflow"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	default:
		return "error"
	}
}
