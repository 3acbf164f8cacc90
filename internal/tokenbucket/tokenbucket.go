// Package tokenbucket implements the outbound admission controller: a
// continuous-refill token bucket shared by every worker.
package tokenbucket

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrConfigInvalid is returned by SetRate when the requested rate falls
// outside the accepted range; the prior rate is retained.
var ErrConfigInvalid = errors.New("tokenbucket: rate out of range")

const (
	// Capacity is the maximum token balance, matching the original
	// throttle controller's MAX_TOKENS.
	Capacity = 200000.0

	// CostPerMessage is the number of tokens an admitted message spends.
	CostPerMessage = 1.0

	minRate = 1.0
	maxRate = 1_000_000.0
)

// Bucket admits or throttles at a configured per-second rate. A single
// mutex serializes the whole decision; contention is acceptable because
// the operation is constant-time.
type Bucket struct {
	mu       sync.Mutex
	rate     float64
	tokens   float64
	lastCall time.Time

	processedCount  atomic.Uint64
	throttledCount  atomic.Uint64
}

// New returns a Bucket starting at rate tokens/sec with a balance of
// min(rate, Capacity) tokens.
func New(rate float64) *Bucket {
	b := &Bucket{
		rate:     clamp(rate),
		lastCall: time.Now(),
	}
	b.tokens = minF(b.rate, Capacity)
	return b
}

// Admit credits tokens for the elapsed time since the previous call,
// then spends one if the balance allows it.
func (b *Bucket) Admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsedUs := float64(now.Sub(b.lastCall).Microseconds())
	b.lastCall = now

	b.tokens = minF(Capacity, b.tokens+b.rate*elapsedUs/1e6)

	if b.tokens >= CostPerMessage {
		b.tokens -= CostPerMessage
		b.processedCount.Add(1)
		return true
	}
	b.throttledCount.Add(1)
	return false
}

// SetRate replaces the admission rate and refills the balance to
// min(r, Capacity) so a rate increase doesn't stall behind the old,
// lower balance. Rejects r outside [1, 1_000_000].
func (b *Bucket) SetRate(r float64) error {
	if r < minRate || r > maxRate {
		return ErrConfigInvalid
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rate = r
	b.tokens = minF(r, Capacity)
	return nil
}

// Rate returns the current admission rate.
func (b *Bucket) Rate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rate
}

// ProcessedCount returns the running count of admitted messages.
func (b *Bucket) ProcessedCount() uint64 {
	return b.processedCount.Load()
}

// ThrottledCount returns the running count of rejected messages.
func (b *Bucket) ThrottledCount() uint64 {
	return b.throttledCount.Load()
}

// ResetCounters zeroes ProcessedCount and ThrottledCount, matching the
// 1-second reset cadence the runtime's bucket-reset loop drives.
func (b *Bucket) ResetCounters() {
	b.processedCount.Store(0)
	b.throttledCount.Store(0)
}

func clamp(r float64) float64 {
	if r < minRate {
		return minRate
	}
	if r > maxRate {
		return maxRate
	}
	return r
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
