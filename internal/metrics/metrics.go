// Package metrics holds the process-wide counter/gauge aggregate and
// the sampling and export side-cars around it. Per the design notes in
// spec.md §9, it is a single aggregate of atomic counters owned by the
// Runtime and handed out by reference — never a package-level
// singleton — and readers take lock-free snapshots.
package metrics

import (
	"math"
	"sync/atomic"
)

// Metrics is the process-wide aggregate. Counters (MessagesProcessed,
// MessagesThrottled, TotalLatencyNs) are monotonic; the rest are
// gauges refreshed by the metrics loop once per interval.
type Metrics struct {
	MessagesProcessed atomic.Uint64
	MessagesThrottled atomic.Uint64
	TotalLatencyNs    atomic.Uint64

	currentThroughput atomic.Uint64 // float64 bits
	queueDepth        atomic.Int64
	microburstActive  atomic.Bool
	cpuUsagePercent   atomic.Uint64 // float64 bits
	memoryUsageBytes  atomic.Uint64
	uptimeSeconds     atomic.Uint64
}

// New returns a zeroed Metrics aggregate.
func New() *Metrics { return &Metrics{} }

// SetCurrentThroughput updates the messages/sec gauge.
func (m *Metrics) SetCurrentThroughput(v float64) {
	m.currentThroughput.Store(math.Float64bits(v))
}

// CurrentThroughput returns the last-sampled messages/sec gauge.
func (m *Metrics) CurrentThroughput() float64 {
	return math.Float64frombits(m.currentThroughput.Load())
}

// SetQueueDepth updates the publish-queue depth gauge.
func (m *Metrics) SetQueueDepth(n int) { m.queueDepth.Store(int64(n)) }

// QueueDepth returns the last-sampled publish-queue depth.
func (m *Metrics) QueueDepth() int64 { return m.queueDepth.Load() }

// SetMicroburstActive updates the burst-active gauge.
func (m *Metrics) SetMicroburstActive(active bool) { m.microburstActive.Store(active) }

// MicroburstActive reports whether a burst was active as of the last sample.
func (m *Metrics) MicroburstActive() bool { return m.microburstActive.Load() }

// SetCPUUsagePercent updates the process CPU-usage gauge.
func (m *Metrics) SetCPUUsagePercent(v float64) {
	m.cpuUsagePercent.Store(math.Float64bits(v))
}

// CPUUsagePercent returns the last-sampled process CPU percentage.
func (m *Metrics) CPUUsagePercent() float64 {
	return math.Float64frombits(m.cpuUsagePercent.Load())
}

// SetMemoryUsageBytes updates the RSS-proxy gauge.
func (m *Metrics) SetMemoryUsageBytes(v uint64) { m.memoryUsageBytes.Store(v) }

// MemoryUsageBytes returns the last-sampled RSS-proxy gauge.
func (m *Metrics) MemoryUsageBytes() uint64 { return m.memoryUsageBytes.Load() }

// SetUptimeSeconds updates the process-uptime gauge.
func (m *Metrics) SetUptimeSeconds(v uint64) { m.uptimeSeconds.Store(v) }

// UptimeSeconds returns the last-sampled process uptime.
func (m *Metrics) UptimeSeconds() uint64 { return m.uptimeSeconds.Load() }

// Reset zeroes the monotonic counters, matching Runtime's
// reset_counters control operation. Gauges are left alone — they get
// overwritten on the next metrics-loop tick regardless.
func (m *Metrics) Reset() {
	m.MessagesProcessed.Store(0)
	m.MessagesThrottled.Store(0)
	m.TotalLatencyNs.Store(0)
}

// Snapshot is a point-in-time copy of every field, safe to read
// without holding any lock — the point of expressing the aggregate as
// plain atomics rather than a mutex-guarded struct.
type Snapshot struct {
	MessagesProcessed uint64
	MessagesThrottled uint64
	TotalLatencyNs    uint64
	CurrentThroughput float64
	QueueDepth        int64
	MicroburstActive  bool
	CPUUsagePercent   float64
	MemoryUsageBytes  uint64
	UptimeSeconds     uint64
}

// Snapshot copies every counter and gauge into a Snapshot value.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		MessagesProcessed: m.MessagesProcessed.Load(),
		MessagesThrottled: m.MessagesThrottled.Load(),
		TotalLatencyNs:    m.TotalLatencyNs.Load(),
		CurrentThroughput: m.CurrentThroughput(),
		QueueDepth:        m.QueueDepth(),
		MicroburstActive:  m.MicroburstActive(),
		CPUUsagePercent:   m.CPUUsagePercent(),
		MemoryUsageBytes:  m.MemoryUsageBytes(),
		UptimeSeconds:     m.UptimeSeconds(),
	}
}
