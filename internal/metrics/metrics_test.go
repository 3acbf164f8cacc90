package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_SnapshotReflectsGaugesAndCounters(t *testing.T) {
	m := New()
	m.MessagesProcessed.Add(42)
	m.MessagesThrottled.Add(3)
	m.SetCurrentThroughput(123.5)
	m.SetQueueDepth(7)
	m.SetMicroburstActive(true)
	m.SetCPUUsagePercent(12.25)
	m.SetMemoryUsageBytes(4096)
	m.SetUptimeSeconds(60)

	s := m.Snapshot()
	assert.Equal(t, uint64(42), s.MessagesProcessed)
	assert.Equal(t, uint64(3), s.MessagesThrottled)
	assert.Equal(t, 123.5, s.CurrentThroughput)
	assert.Equal(t, int64(7), s.QueueDepth)
	assert.True(t, s.MicroburstActive)
	assert.Equal(t, 12.25, s.CPUUsagePercent)
	assert.Equal(t, uint64(4096), s.MemoryUsageBytes)
	assert.Equal(t, uint64(60), s.UptimeSeconds)
}

func TestMetrics_ResetZeroesCountersOnly(t *testing.T) {
	m := New()
	m.MessagesProcessed.Add(10)
	m.MessagesThrottled.Add(5)
	m.TotalLatencyNs.Add(1000)
	m.SetQueueDepth(9)

	m.Reset()

	assert.Equal(t, uint64(0), m.MessagesProcessed.Load())
	assert.Equal(t, uint64(0), m.MessagesThrottled.Load())
	assert.Equal(t, uint64(0), m.TotalLatencyNs.Load())
	assert.Equal(t, int64(9), m.QueueDepth())
}

func TestSampler_SampleUpdatesGauges(t *testing.T) {
	m := New()
	s := NewSampler(m)
	s.Sample()
	assert.Greater(t, m.MemoryUsageBytes(), uint64(0))
}

func TestExporter_NilIsNoOp(t *testing.T) {
	var e *Exporter
	assert.Nil(t, NewExporter("", "key"))
	e.Export(Snapshot{})
	assert.NoError(t, e.Close())
}
