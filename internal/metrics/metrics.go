// Package metrics records annotation activity counters.
package metrics

// Collector receives instrumentation events from the service and HTTP layers
type Collector interface {
	// RecordSave counts a save attempt by outcome (created, updated, rejected, error).
	RecordSave(outcome string)
	ObserveSaveLatency(seconds float64)
	// RecordTasksCreated counts persisted tasks, shards included.
	RecordTasksCreated(count int)
	RecordPartition(shards int)
	RecordExport(format string, rows int)
	ObserveRequest(route, method string, status int, seconds float64)
}

// Save outcomes
const (
	OutcomeCreated  = "created"
	OutcomeUpdated  = "updated"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// NopMetrics discards everything.
type NopMetrics struct{}

var _ Collector = (*NopMetrics)(nil)

// NewNop creates a no-op collector
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordSave discards the save outcome.
func (n *NopMetrics) RecordSave(_ string) {}

// ObserveSaveLatency discards the latency.
func (n *NopMetrics) ObserveSaveLatency(_ float64) {}

// RecordTasksCreated discards the count.
func (n *NopMetrics) RecordTasksCreated(_ int) {}

// RecordPartition discards the shard count.
func (n *NopMetrics) RecordPartition(_ int) {}

// RecordExport discards the export.
func (n *NopMetrics) RecordExport(_ string, _ int) {}

// ObserveRequest discards the request.
func (n *NopMetrics) ObserveRequest(_, _ string, _ int, _ float64) {}
