package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopMetrics(t *testing.T) {
	var c Collector = NewNop()
	assert.NotPanics(t, func() {
		c.RecordSave(OutcomeCreated)
		c.ObserveSaveLatency(0.01)
		c.RecordTasksCreated(3)
		c.RecordPartition(3)
		c.RecordExport("csv", 10)
		c.ObserveRequest("/api/tasks", "GET", 200, 0.002)
	})
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordSave(OutcomeCreated)
	p.RecordSave(OutcomeCreated)
	p.RecordSave(OutcomeUpdated)
	p.RecordTasksCreated(4)
	p.RecordPartition(3)
	p.RecordExport("jsonl", 7)
	p.ObserveRequest("/api/leaderboard", "GET", 200, 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.saves.WithLabelValues(OutcomeCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.saves.WithLabelValues(OutcomeUpdated)))
	assert.Equal(t, 4.0, testutil.ToFloat64(p.tasksCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.partitions))
	assert.Equal(t, 7.0, testutil.ToFloat64(p.exportRows.WithLabelValues("jsonl")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.requests.WithLabelValues("/api/leaderboard", "GET", "200")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_ledger_saves_total")
	assert.Contains(t, names, "test_http_requests_total")
}
