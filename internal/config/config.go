// Package config loads the line-oriented key=value configuration file
// described in spec.md §6, in the spirit of the teacher's getEnv*
// helpers (rate-limiter/gateway/main.go) adapted from environment
// variables to a scanned file.
package config

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Config holds every recognized key, each defaulted per spec.md §6.
type Config struct {
	InputFile           string
	SymbolsFile         string
	ZMQEndpoint         string
	SharedMemorySize    int64
	WorkerThreads       int
	CPUAffinity         bool
	DefaultThrottleRate float64
	DefaultReplaySpeed  float64
	MicroburstThreshold uint32
	LogLevel            string
	EnableMonitoring    bool
	MonitoringInterval  int

	// MetricsRedisAddr is an ambient extension beyond spec.md §6's
	// table: the optional best-effort metrics mirror described in
	// SPEC_FULL.md §5. Empty disables it.
	MetricsRedisAddr string
}

// Default returns the configuration spec.md §6 specifies when no file
// is loaded and no key overrides it.
func Default() Config {
	return Config{
		InputFile:           "data/sample.itch",
		SymbolsFile:         "",
		ZMQEndpoint:         "tcp://*:5555",
		SharedMemorySize:    1 << 30,
		WorkerThreads:       0,
		CPUAffinity:         true,
		DefaultThrottleRate: 100000,
		DefaultReplaySpeed:  1.0,
		MicroburstThreshold: 50000,
		LogLevel:            "INFO",
		EnableMonitoring:    true,
		MonitoringInterval:  1,
	}
}

// ResolvedWorkerThreads returns WorkerThreads, or hardware concurrency
// when it is <= 0.
func (c Config) ResolvedWorkerThreads() int {
	if c.WorkerThreads <= 0 {
		return runtime.NumCPU()
	}
	return c.WorkerThreads
}

// Load reads path, applying each recognized key=value line over the
// defaults. Blank lines and lines starting with '#' are skipped;
// unrecognized keys are ignored rather than rejected, so a newer
// config file still loads against an older binary.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		cfg.apply(key, val)
	}
	if err := sc.Err(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) apply(key, val string) {
	switch key {
	case "input_file":
		c.InputFile = val
	case "symbols_file":
		c.SymbolsFile = val
	case "zmq_endpoint":
		c.ZMQEndpoint = val
	case "shared_memory_size":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.SharedMemorySize = v
		}
	case "worker_threads":
		if v, err := strconv.Atoi(val); err == nil {
			c.WorkerThreads = v
		}
	case "cpu_affinity":
		c.CPUAffinity = val == "true"
	case "default_throttle_rate":
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.DefaultThrottleRate = v
		}
	case "default_replay_speed":
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.DefaultReplaySpeed = v
		}
	case "microburst_threshold":
		if v, err := strconv.ParseUint(val, 10, 32); err == nil {
			c.MicroburstThreshold = uint32(v)
		}
	case "log_level":
		c.LogLevel = val
	case "enable_monitoring":
		c.EnableMonitoring = val == "true"
	case "monitoring_interval":
		if v, err := strconv.Atoi(val); err == nil {
			c.MonitoringInterval = v
		}
	case "metrics_redis_addr":
		c.MetricsRedisAddr = val
	}
}
