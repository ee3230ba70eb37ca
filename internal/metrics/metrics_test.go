package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDomain = errors.New("domain")

func isDomain(err error) bool { return errors.Is(err, errDomain) }

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Borrows.WithLabelValues(OutcomeSuccess).Inc()
	m.Returns.WithLabelValues(OutcomeRejected).Inc()
	m.LateReturns.Inc()
	m.Observe("borrow", time.Now())

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"library_borrows_total",
		"library_returns_total",
		"library_late_returns_total",
		"library_operation_duration_seconds",
	}, names)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Borrows.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LateReturns))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}

func TestNewMetricsWithoutRegistry(t *testing.T) {
	m := NewMetrics(nil)
	m.Borrows.WithLabelValues(OutcomeError).Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Borrows.WithLabelValues(OutcomeError)))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil, isDomain))
	assert.Equal(t, OutcomeRejected, Outcome(errDomain, isDomain))
	assert.Equal(t, OutcomeError, Outcome(errors.New("disk on fire"), isDomain))
}
