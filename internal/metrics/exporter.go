package metrics

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Exporter best-effort mirrors periodic Snapshots into a Redis hash
// for an external dashboard, grounded on the teacher's sibling
// rate-limiter module's go-redis/v9 client. It is disabled (nil) unless
// configured with a metrics_redis_addr; a nil Exporter's Export is a
// no-op so callers don't need to branch on whether it's configured.
type Exporter struct {
	client *redis.Client
	key    string
}

// NewExporter returns nil if addr is empty, otherwise an Exporter
// ready to mirror snapshots under key.
func NewExporter(addr, key string) *Exporter {
	if addr == "" {
		return nil
	}
	return &Exporter{
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		}),
		key: key,
	}
}

// Export writes s into the configured Redis hash. Failures are logged
// and otherwise ignored — this mirror is a convenience for an external
// dashboard, never load-bearing for the pipeline itself.
func (e *Exporter) Export(s Snapshot) {
	if e == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := e.client.HSet(ctx, e.key, map[string]any{
		"messages_processed": s.MessagesProcessed,
		"messages_throttled": s.MessagesThrottled,
		"current_throughput": strconv.FormatFloat(s.CurrentThroughput, 'f', 2, 64),
		"queue_depth":        s.QueueDepth,
		"microburst_active":  s.MicroburstActive,
		"cpu_usage_percent":  strconv.FormatFloat(s.CPUUsagePercent, 'f', 2, 64),
		"memory_usage_bytes": s.MemoryUsageBytes,
		"uptime_seconds":     s.UptimeSeconds,
	}).Err()
	if err != nil {
		log.Printf("metrics: redis export failed (best-effort, continuing): %v", err)
	}
}

// Close releases the underlying Redis client. Safe to call on a nil Exporter.
func (e *Exporter) Close() error {
	if e == nil {
		return nil
	}
	return e.client.Close()
}
