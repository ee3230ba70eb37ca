// Package metrics exposes Prometheus instruments for lending operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics groups the service collectors.
type Metrics struct {
	Borrows           *prometheus.CounterVec
	Returns           *prometheus.CounterVec
	LateReturns       prometheus.Counter
	OperationDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Borrows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "library_borrows_total",
			Help: "Borrow attempts by outcome.",
		}, []string{"outcome"}),
		Returns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "library_returns_total",
			Help: "Return attempts by outcome.",
		}, []string{"outcome"}),
		LateReturns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "library_late_returns_total",
			Help: "Books returned after their due date.",
		}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "library_operation_duration_seconds",
			Help:    "Duration of catalogue, member and lending operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	if reg != nil {
		reg.MustRegister(m.Borrows, m.Returns, m.LateReturns, m.OperationDuration)
	}
	return m
}

// Outcome classifies an operation result. Domain rejections are told apart
// from failures by isDomain.
func Outcome(err error, isDomain func(error) bool) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case isDomain(err):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// Observe records how long operation took since start.
func (m *Metrics) Observe(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
