package burst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClock(start uint64) (*Detector, *uint64) {
	d := New(Config{StartThreshold: 50, EndThreshold: 20, MinDurationMs: 50})
	now := start
	d.nowMs = func() uint64 { return now }
	return d, &now
}

func TestDetector_StaysQuietBelowStartThreshold(t *testing.T) {
	d, now := testClock(0)
	for i := 0; i < 5; i++ {
		d.Check()
		*now += bucketSizeMs
	}
	assert.False(t, d.IsActive())
	assert.Empty(t, d.RecentEvents())
}

func TestDetector_EntersBurstAboveStartThreshold(t *testing.T) {
	d, now := testClock(0)
	// Flood a single 10ms bucket past the start threshold (50).
	for i := 0; i < 60; i++ {
		d.Check()
	}
	*now += bucketSizeMs
	d.Check() // forces a recompute past the throttle window
	assert.True(t, d.IsActive())
	assert.GreaterOrEqual(t, d.CurrentRate(), uint32(51))
}

func TestDetector_MinDurationPreventsEarlyClose(t *testing.T) {
	d, now := testClock(0)
	d.advanceStateMachine(*now, 100) // enters burst, peak=100
	require.True(t, d.IsActive())

	*now += 10
	d.advanceStateMachine(*now, 5) // rate collapses but min duration (50ms) not met
	assert.True(t, d.IsActive(), "burst must not close before min_duration_ms elapses")
	assert.Empty(t, d.RecentEvents())

	*now += 50
	d.advanceStateMachine(*now, 5) // now min duration satisfied and rate below end threshold
	assert.False(t, d.IsActive())
	events := d.RecentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, uint32(100), events[0].PeakRateMsgPerSec)
}

func TestDetector_PeakRateTracksMaximumDuringBurst(t *testing.T) {
	d, now := testClock(0)
	d.advanceStateMachine(*now, 60)
	*now += 10
	d.advanceStateMachine(*now, 90)
	*now += 10
	d.advanceStateMachine(*now, 70)
	*now += 100
	d.advanceStateMachine(*now, 1)

	events := d.RecentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, uint32(90), events[0].PeakRateMsgPerSec)
}

func TestSeverityFor_Thresholds(t *testing.T) {
	assert.Equal(t, "low", severityFor(100))
	assert.Equal(t, "low", severityFor(100000))
	assert.Equal(t, "medium", severityFor(100001))
	assert.Equal(t, "medium", severityFor(200000))
	assert.Equal(t, "high", severityFor(200001))
}

func TestDetector_EventHistoryBoundedAt100(t *testing.T) {
	d, now := testClock(0)
	for i := 0; i < 150; i++ {
		d.advanceStateMachine(*now, 100)
		*now += 60
		d.advanceStateMachine(*now, 1)
		*now += 1
	}
	events := d.RecentEvents()
	assert.Len(t, events, maxEvents)
}

func TestDetector_NeverEmitsEventBelowStartThreshold(t *testing.T) {
	d, now := testClock(0)
	for i := 0; i < 150; i++ {
		d.advanceStateMachine(*now, 100)
		*now += 60
		d.advanceStateMachine(*now, 1)
		*now += 1
	}
	for _, ev := range d.RecentEvents() {
		assert.GreaterOrEqual(t, ev.PeakRateMsgPerSec, d.cfg.StartThreshold)
	}
}
