// Package runtime owns worker goroutines, the replay-clock pacer, the
// metrics loop, and the lifecycle of every other component, mirroring
// the teacher's Server type (order-matching-engine/cmd/server) as the
// single owner of its pipeline's pieces. Per spec.md §9, components
// get non-owning handles back into Runtime's aggregates; nothing here
// is a package-level singleton.
package runtime

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	goruntime "runtime"

	"github.com/siri1404/ITCHFlow/internal/burst"
	"github.com/siri1404/ITCHFlow/internal/config"
	"github.com/siri1404/ITCHFlow/internal/itch"
	"github.com/siri1404/ITCHFlow/internal/metrics"
	"github.com/siri1404/ITCHFlow/internal/orderbook"
	"github.com/siri1404/ITCHFlow/internal/processor"
	"github.com/siri1404/ITCHFlow/internal/publish"
	"github.com/siri1404/ITCHFlow/internal/ring"
	"github.com/siri1404/ITCHFlow/internal/symboltable"
	"github.com/siri1404/ITCHFlow/internal/tick"
	"github.com/siri1404/ITCHFlow/internal/tokenbucket"
)

// shmDir is the POSIX shared-memory mount point the ring segment is
// created under, matching the conventional path ring.Create's doc
// comment names. Not a config key: spec.md §6 fixes the segment's
// name pattern, not its mount point.
const shmDir = "/dev/shm"

// minSharedMemorySize is the floor applied to a misconfigured (<= 0)
// shared_memory_size, so the ring always gets a usable segment rather
// than failing Create outright on an empty config value.
const minSharedMemorySize = 1 << 20

// Runtime wires the decode -> throttle -> process -> publish pipeline
// (with burst detection on each published tick) and owns the worker,
// metrics, and publisher goroutines that drive it.
type Runtime struct {
	cfg config.Config

	decoder   *itch.Decoder
	book      *orderbook.Book
	symbols   *symboltable.Table
	processor *processor.Processor
	bucket    *tokenbucket.Bucket
	detector  *burst.Detector
	queue     *publish.Queue
	publisher *publish.Publisher
	ringBuf   *ring.Buffer
	metrics   *metrics.Metrics
	sampler   *metrics.Sampler
	exporter  *metrics.Exporter

	replaySpeedBits atomic.Uint64 // float64 bits, clamped to (0, 100]
	running         atomic.Bool

	startedAt time.Time
	wg        sync.WaitGroup
}

// New builds every component from cfg and wires them together. A
// missing input file is not an initialization failure: the decoder
// falls back to its synthetic generator and the pipeline proceeds. A
// publisher bind failure is fatal, matching spec.md §7's disposition
// for FatalSend at startup.
func New(cfg config.Config) (*Runtime, error) {
	dec, err := itch.Open(cfg.InputFile)
	if err != nil {
		if !errors.Is(err, itch.ErrNotFound) {
			return nil, fmt.Errorf("runtime: decoder: %w", err)
		}
		log.Printf("runtime: input file unavailable (%v); switching to synthetic generator", err)
		var specs []itch.SymbolSpec
		if cfg.SymbolsFile != "" {
			specs, err = itch.LoadSymbolsCSV(cfg.SymbolsFile)
			if err != nil {
				log.Printf("runtime: symbols csv: %v; using default universe", err)
				specs = nil
			}
		}
		dec = itch.NewSynthetic(itch.NewGenerator(specs, time.Now().UnixNano()))
	}

	book := orderbook.New()
	symbols := symboltable.New()
	proc := processor.New(book, symbols)
	bucket := tokenbucket.New(cfg.DefaultThrottleRate)

	detectorCfg := burst.DefaultConfig()
	detectorCfg.StartThreshold = cfg.MicroburstThreshold
	detector := burst.New(detectorCfg)

	queue := publish.NewQueue(publish.Capacity)
	pub, err := publish.NewPublisher(queue, cfg.ZMQEndpoint)
	if err != nil {
		return nil, fmt.Errorf("runtime: publisher: %w", err)
	}

	shmSize := cfg.SharedMemorySize
	if shmSize <= 0 {
		shmSize = minSharedMemorySize
	}
	shmName := fmt.Sprintf("tickshaper_shm_%04d", time.Now().UnixNano()%10000)
	ringBuf, err := ring.Create(shmDir, shmName, uint64(shmSize))
	if err != nil {
		pub.Close()
		return nil, fmt.Errorf("runtime: shared memory: %w", err)
	}
	log.Printf("runtime: shared-memory ring %s/%s (%d bytes)", shmDir, shmName, shmSize)

	m := metrics.New()
	sampler := metrics.NewSampler(m)
	exporter := metrics.NewExporter(cfg.MetricsRedisAddr, "tickshaper:metrics")

	r := &Runtime{
		cfg:       cfg,
		decoder:   dec,
		book:      book,
		symbols:   symbols,
		processor: proc,
		bucket:    bucket,
		detector:  detector,
		queue:     queue,
		publisher: pub,
		ringBuf:   ringBuf,
		metrics:   m,
		sampler:   sampler,
		exporter:  exporter,
	}
	r.replaySpeedBits.Store(math.Float64bits(clampReplaySpeed(cfg.DefaultReplaySpeed)))
	return r, nil
}

// Run starts every worker, the token-bucket reset loop, the metrics
// loop (if enabled), and the publisher, then blocks until Stop is
// called and all goroutines have exited.
func (r *Runtime) Run() error {
	r.running.Store(true)
	r.startedAt = time.Now()

	workers := r.cfg.ResolvedWorkerThreads()
	log.Printf("runtime: starting %d worker(s), replay_speed=%.3f, throttle_rate=%.0f",
		workers, r.ReplaySpeed(), r.bucket.Rate())

	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.workerLoop(i)
	}

	r.wg.Add(1)
	go r.bucketResetLoop()

	if r.cfg.EnableMonitoring {
		r.wg.Add(1)
		go r.metricsLoop()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.publisher.Run()
	}()

	r.wg.Wait()
	if err := r.publisher.Close(); err != nil {
		log.Printf("runtime: publisher close: %v", err)
	}
	if err := r.ringBuf.Close(); err != nil {
		log.Printf("runtime: ring close: %v", err)
	}
	if err := r.exporter.Close(); err != nil {
		log.Printf("runtime: exporter close: %v", err)
	}
	return nil
}

// Stop flips the running flag and closes the publish queue so every
// loop observes shutdown at its next check and the publisher drains
// what remains before exiting.
func (r *Runtime) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	r.queue.Close()
}

func (r *Runtime) workerLoop(id int) {
	defer r.wg.Done()

	if r.cfg.CPUAffinity {
		goruntime.LockOSThread()
		pinCPU(id)
	}

	var lastIterAt time.Time
	for r.running.Load() {
		rec, err := r.decoder.Next()
		if err != nil {
			if errors.Is(err, itch.ErrCorrupt) {
				log.Printf("runtime: worker %d: %v", id, err)
			}
			time.Sleep(100 * time.Microsecond)
			continue
		}

		start := time.Now()
		r.pace(&lastIterAt)

		if !r.bucket.Admit() {
			r.metrics.MessagesThrottled.Add(1)
			continue
		}

		t, err := r.processor.Process(rec)
		if err != nil {
			// MalformedRecord: dropped, pipeline continues.
			continue
		}

		r.queue.Push(t)
		r.publishToRing(t)
		r.detector.Check()

		r.metrics.MessagesProcessed.Add(1)
		r.metrics.TotalLatencyNs.Add(uint64(time.Since(start)))
	}
}

// publishToRing mirrors t onto the shared-memory ring, the alternate
// hand-off surface alongside the ZMQ bus. BufferFull/WouldWrap are
// expected back-pressure, not failures: per spec.md §7's disposition
// for RingBuffer writes, the producer decides, and this producer's
// decision is to drop and keep serving the ZMQ path rather than block.
func (r *Runtime) publishToRing(t tick.Tick) {
	data, err := t.Serialize()
	if err != nil {
		return
	}
	_ = r.ringBuf.Write(data)
}

// pace sleeps enough to keep iterations spaced at 1000/replay_speed
// microseconds apart, implementing the replay-clock described in
// spec.md §4.8. lastIterAt is per-worker, not shared.
func (r *Runtime) pace(lastIterAt *time.Time) {
	target := time.Duration(1000.0/r.ReplaySpeed()) * time.Microsecond
	if !lastIterAt.IsZero() {
		if elapsed := time.Since(*lastIterAt); elapsed < target {
			time.Sleep(target - elapsed)
		}
	}
	*lastIterAt = time.Now()
}

func (r *Runtime) bucketResetLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for r.running.Load() {
		<-ticker.C
		if !r.running.Load() {
			return
		}
		r.bucket.ResetCounters()
	}
}

func (r *Runtime) metricsLoop() {
	defer r.wg.Done()

	interval := time.Duration(r.cfg.MonitoringInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastProcessed uint64
	lastAt := time.Now()

	for r.running.Load() {
		<-ticker.C
		if !r.running.Load() {
			return
		}

		now := time.Now()
		processed := r.metrics.MessagesProcessed.Load()
		if dt := now.Sub(lastAt).Seconds(); dt > 0 {
			r.metrics.SetCurrentThroughput(float64(processed-lastProcessed) / dt)
		}
		lastProcessed = processed
		lastAt = now

		r.metrics.SetQueueDepth(r.queue.Depth())
		r.metrics.SetMicroburstActive(r.detector.IsActive())
		r.metrics.SetUptimeSeconds(uint64(now.Sub(r.startedAt).Seconds()))
		r.sampler.Sample()

		r.exporter.Export(r.metrics.Snapshot())
	}
}

// SetReplaySpeed validates and applies a new replay multiplier. It is
// safe to call while workers run; the next pacing check picks it up.
func (r *Runtime) SetReplaySpeed(v float64) error {
	if v <= 0 || v > 100 {
		return fmt.Errorf("runtime: replay speed %v out of (0,100]", v)
	}
	r.replaySpeedBits.Store(math.Float64bits(v))
	return nil
}

// ReplaySpeed returns the current replay multiplier.
func (r *Runtime) ReplaySpeed() float64 {
	return math.Float64frombits(r.replaySpeedBits.Load())
}

// SetThrottleRate validates and applies a new token-bucket rate.
func (r *Runtime) SetThrottleRate(v float64) error {
	return r.bucket.SetRate(v)
}

// ResetCounters zeroes the metrics aggregate's monotonic counters, the
// processor's per-type counters, and the token bucket's admission
// counters, matching the operator console's "reset" command.
func (r *Runtime) ResetCounters() {
	r.metrics.Reset()
	r.processor.Counters().Reset()
	r.bucket.ResetCounters()
}

// Metrics returns a point-in-time snapshot of the metrics aggregate.
func (r *Runtime) Metrics() metrics.Snapshot {
	return r.metrics.Snapshot()
}

// DepthSnapshot exposes the order book's price-level view for the
// operator console's "book <symbol>" command.
func (r *Runtime) DepthSnapshot(symbol uint32, n int) (bids, asks []orderbook.DepthLevel) {
	return r.book.DepthSnapshot(symbol, n)
}

// ResolveSymbol maps a ticker to its interned id, or false if never seen.
func (r *Runtime) ResolveSymbol(ticker string) (uint32, bool) {
	return r.symbols.Find(ticker)
}

func clampReplaySpeed(v float64) float64 {
	if v <= 0 {
		return 0.01
	}
	if v > 100 {
		return 100
	}
	return v
}
