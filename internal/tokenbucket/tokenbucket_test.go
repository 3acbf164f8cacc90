package tokenbucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket_AdmitsUpToCapacityBurst(t *testing.T) {
	b := New(1000)
	admitted := 0
	for i := 0; i < 10000; i++ {
		if b.Admit() {
			admitted++
		}
	}
	// Starts with min(rate, Capacity) = 1000 tokens and elapsed time
	// across a tight loop is negligible, so admission is capacity-bound.
	assert.LessOrEqual(t, admitted, int(Capacity))
	assert.Greater(t, admitted, 0)
}

func TestBucket_SetRateRejectsOutOfRange(t *testing.T) {
	b := New(1000)
	err := b.SetRate(0)
	assert.ErrorIs(t, err, ErrConfigInvalid)
	assert.Equal(t, float64(1000), b.Rate())

	err = b.SetRate(2_000_000)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestBucket_SetRateRefillsToAvoidStall(t *testing.T) {
	b := New(10)
	for i := 0; i < 20; i++ {
		b.Admit()
	}
	require.NoError(t, b.SetRate(500))
	admitted := 0
	for i := 0; i < 500; i++ {
		if b.Admit() {
			admitted++
		}
	}
	assert.Greater(t, admitted, 0)
}

func TestBucket_ResetCountersZeroes(t *testing.T) {
	b := New(1000)
	b.Admit()
	b.ResetCounters()
	assert.Equal(t, uint64(0), b.ProcessedCount())
	assert.Equal(t, uint64(0), b.ThrottledCount())
}

func TestBucket_SteadyStateRateBound(t *testing.T) {
	b := New(1000)
	start := time.Now()
	admitted := 0
	for time.Since(start) < 50*time.Millisecond {
		if b.Admit() {
			admitted++
		}
	}
	elapsed := time.Since(start).Seconds()
	// admitted <= rate*T + capacity
	assert.LessOrEqual(t, float64(admitted), 1000*elapsed+Capacity)
}
