package jobmetrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("groups:reconcile").End(nil))
	boom := errors.New("boom")
	assert.Same(t, boom, m.Track("groups:reconcile").End(boom))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("groups:reconcile", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("groups:reconcile", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("groups:reconcile")))
}

func TestJobCollectorsLabelOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	_ = m.Track("reports:export").End(errors.New("render failed"))

	expected := `
# HELP budget_jobs_total Worker task runs by asynq task type and outcome.
# TYPE budget_jobs_total counter
budget_jobs_total{job="reports:export",outcome="failure"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "budget_jobs_total"))
}

func TestAddItemsIgnoresEmpty(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddItems("revenues:recurring", 0)
	m.AddItems("revenues:recurring", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.items.WithLabelValues("revenues:recurring")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	err := errors.New("x")
	assert.Same(t, err, m.Track("job").End(err))
	m.AddItems("job", 2)
}
