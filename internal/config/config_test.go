package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_OverridesDefaultsAndSkipsComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickshaper.conf")
	contents := `# sample config
input_file=data/nasdaq.itch
worker_threads=4
cpu_affinity=false
default_throttle_rate=50000
microburst_threshold=75000

# trailing comment
monitoring_interval=5
metrics_redis_addr=localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/nasdaq.itch", cfg.InputFile)
	assert.Equal(t, 4, cfg.WorkerThreads)
	assert.False(t, cfg.CPUAffinity)
	assert.Equal(t, 50000.0, cfg.DefaultThrottleRate)
	assert.Equal(t, uint32(75000), cfg.MicroburstThreshold)
	assert.Equal(t, 5, cfg.MonitoringInterval)
	assert.Equal(t, "localhost:6379", cfg.MetricsRedisAddr)
	// untouched keys keep spec.md §6 defaults
	assert.Equal(t, "tcp://*:5555", cfg.ZMQEndpoint)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/path/tickshaper.conf")
	assert.Error(t, err)
}

func TestResolvedWorkerThreads_NonPositiveFallsBackToHardwareConcurrency(t *testing.T) {
	cfg := Default()
	cfg.WorkerThreads = 0
	assert.Greater(t, cfg.ResolvedWorkerThreads(), 0)

	cfg.WorkerThreads = 3
	assert.Equal(t, 3, cfg.ResolvedWorkerThreads())
}
