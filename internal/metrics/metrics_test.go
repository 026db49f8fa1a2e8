package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	collector := NewCollector()

	require.NotNil(t, collector)
	assert.NotNil(t, collector.walBytesWritten)
	assert.NotNil(t, collector.walRotations)
	assert.NotNil(t, collector.walRecordsRead)
	assert.NotNil(t, collector.batchesCommitted)
	assert.NotNil(t, collector.batchesFailed)
	assert.NotNil(t, collector.batchLatency)
	assert.NotNil(t, collector.receiversRegistered)
	assert.NotNil(t, collector.receiversTerminated)
	assert.NotNil(t, collector.stateStoreCommits)
	assert.NotNil(t, collector.stateStoreAborts)
}

func TestCollectorRecordWALActivity(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordWALWrite(128)
		collector.RecordWALRotation()
		collector.RecordWALReplay(5)
	})
}

func TestCollectorRecordBatchOutcomes(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	for _, latency := range []float64{0.0, 0.001, 0.5, 2.0} {
		assert.NotPanics(t, func() {
			collector.RecordBatchCommitted(latency)
		})
	}
	assert.NotPanics(t, func() {
		collector.RecordBatchFailed()
	})
}

func TestCollectorReceiverGauges(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.SetReceiversRegistered(3)
		collector.RecordReceiverTerminated()
		collector.SetReceiversRegistered(0)
	})
}

func TestCollectorStateStoreCounters(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordStateStoreCommit()
		collector.RecordStateStoreAbort()
	})
}

func TestCollectorIsolation(t *testing.T) {
	// A second collector on the same registry panics on duplicate
	// registration; a process is expected to build exactly one.
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	collector1 := NewCollector()
	require.NotNil(t, collector1)

	assert.Panics(t, func() {
		NewCollector()
	})
}

func TestCollectorConcurrentUpdates(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	done := make(chan struct{}, 100)
	for i := 0; i < 100; i++ {
		go func() {
			collector.RecordWALWrite(64)
			collector.RecordBatchCommitted(0.1)
			collector.SetReceiversRegistered(1)
			collector.RecordStateStoreCommit()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 100; i++ {
		<-done
	}
}
