// Package burst maintains a sliding one-second arrival-rate window and
// raises/clears burst events when the observed rate crosses configured
// thresholds.
package burst

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	windowSizeMs = 1000
	bucketSizeMs = 10
	numBuckets   = windowSizeMs / bucketSizeMs // 100
	maxEvents    = 100
)

// Config holds the detector's thresholds, all with spec-mandated
// defaults.
type Config struct {
	StartThreshold uint32 // Quiet -> Burst crossing
	EndThreshold   uint32 // Burst -> Quiet crossing
	MinDurationMs  uint64
}

// DefaultConfig returns the original detector's defaults.
func DefaultConfig() Config {
	return Config{StartThreshold: 50000, EndThreshold: 30000, MinDurationMs: 100}
}

// Event is recorded when a detected burst closes.
type Event struct {
	StartTimeMs         uint64
	EndTimeMs           uint64
	PeakRateMsgPerSec   uint32
	ApproxTotalMessages uint32
	Severity            string // low | medium | high
}

type rateBucket struct {
	count atomic.Uint32
	epoch atomic.Uint64
}

// Detector is safe for concurrent use: per-bucket counters are atomic,
// and only the event history takes a mutex.
type Detector struct {
	cfg     Config
	buckets [numBuckets]rateBucket

	currentRate   atomic.Uint32
	lastRecompute atomic.Uint64 // ms, throttles recompute to every 10ms

	inBurst     atomic.Bool
	startTimeMs atomic.Uint64
	peakRate    atomic.Uint32
	approxCount atomic.Uint32

	eventsMu sync.Mutex
	events   []Event

	nowMs func() uint64 // overridable for tests
}

// New returns a detector with the given configuration.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg, nowMs: wallClockMs}
}

func wallClockMs() uint64 {
	return uint64(time.Now().UnixNano() / int64(time.Millisecond))
}

// Check records one admitted tick's arrival and, at most every 10ms,
// recomputes the rolling rate and advances the burst state machine.
func (d *Detector) Check() {
	now := d.nowMs()
	idx := (now / bucketSizeMs) % numBuckets
	epoch := (now / bucketSizeMs) * bucketSizeMs

	b := &d.buckets[idx]
	if b.epoch.Load() != epoch {
		b.epoch.Store(epoch)
		b.count.Store(0)
	}
	b.count.Add(1)

	last := d.lastRecompute.Load()
	if now < last+bucketSizeMs {
		return
	}
	d.lastRecompute.Store(now)

	rate := d.sumWindow(now)
	d.currentRate.Store(rate)
	d.advanceStateMachine(now, rate)
}

func (d *Detector) sumWindow(now uint64) uint32 {
	lowBound := int64(now) - windowSizeMs
	var sum uint32
	for i := range d.buckets {
		epoch := d.buckets[i].epoch.Load()
		if int64(epoch) >= lowBound && epoch <= now {
			sum += d.buckets[i].count.Load()
		}
	}
	return sum
}

func (d *Detector) advanceStateMachine(now uint64, rate uint32) {
	if !d.inBurst.Load() {
		if rate > d.cfg.StartThreshold {
			d.inBurst.Store(true)
			d.startTimeMs.Store(now)
			d.peakRate.Store(rate)
			d.approxCount.Store(0)
		}
		return
	}

	if rate > d.peakRate.Load() {
		d.peakRate.Store(rate)
	}
	d.approxCount.Add(rate / 100)

	if rate < d.cfg.EndThreshold && now-d.startTimeMs.Load() >= d.cfg.MinDurationMs {
		d.closeBurst(now)
	}
}

func (d *Detector) closeBurst(now uint64) {
	peak := d.peakRate.Load()
	ev := Event{
		StartTimeMs:         d.startTimeMs.Load(),
		EndTimeMs:           now,
		PeakRateMsgPerSec:   peak,
		ApproxTotalMessages: d.approxCount.Load(),
		Severity:            severityFor(peak),
	}

	d.eventsMu.Lock()
	d.events = append(d.events, ev)
	if len(d.events) > maxEvents {
		d.events = d.events[len(d.events)-maxEvents:]
	}
	d.eventsMu.Unlock()

	d.inBurst.Store(false)
	d.peakRate.Store(0)
	d.approxCount.Store(0)
}

func severityFor(peak uint32) string {
	switch {
	case peak > 200000:
		return "high"
	case peak > 100000:
		return "medium"
	default:
		return "low"
	}
}

// IsActive reports whether a burst is currently in progress.
func (d *Detector) IsActive() bool {
	return d.inBurst.Load()
}

// CurrentRate returns the most recently computed rolling rate.
func (d *Detector) CurrentRate() uint32 {
	return d.currentRate.Load()
}

// RecentEvents returns a copy of the bounded event history.
func (d *Detector) RecentEvents() []Event {
	d.eventsMu.Lock()
	defer d.eventsMu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}
