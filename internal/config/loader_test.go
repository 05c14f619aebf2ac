package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
engine:
  max_clique_results: 500
  connect_distance: 3.5
  cavity:
    grid_spacing: 0.5
batch:
  concurrency: 8
  timeout: 30s
redis:
  addr: "cache:6379"
  db: 2
metrics:
  enabled: true
  namespace: "mq"
log:
  level: "debug"
  format: "console"
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Engine.MaxCliqueResults)
	assert.Equal(t, 3.5, cfg.Engine.ConnectDistance)
	assert.Equal(t, 0.5, cfg.Engine.Cavity.GridSpacing)
	assert.Equal(t, DefaultCavityProbeRadius, cfg.Engine.Cavity.ProbeRadius)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Batch.Timeout)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "mq", cfg.Metrics.Namespace)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "engine: [")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	path := createTempConfigFile(t, "batch:\n  concurrency: -2\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("MOTIVEQ_BATCH_CONCURRENCY", "3")
	t.Setenv("MOTIVEQ_ENGINE_CAVITY_PROBE_RADIUS", "4.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Batch.Concurrency)
	assert.Equal(t, 4.5, cfg.Engine.Cavity.ProbeRadius)
}

func TestLoadFromEnv_NoFile(t *testing.T) {
	t.Setenv("MOTIVEQ_REDIS_ADDR", "env-redis:6379")
	t.Setenv("MOTIVEQ_LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, DefaultEVDMaxIterations, cfg.Engine.EVDMaxIterations)
	assert.Equal(t, DefaultBatchTimeout, cfg.Batch.Timeout)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchConcurrency, cfg.Batch.Concurrency)

	path := createTempConfigFile(t, validConfigYAML)
	cfg, err = LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
}

func TestMustLoad_Success(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() {
		cfg := MustLoad(path)
		assert.NotNil(t, cfg)
	})
}

func TestMustLoad_Panic(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}

func TestWatch_InvokesCallbackOnChange(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 1)
	Watch(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	updated := strings.Replace(validConfigYAML, `level: "debug"`, `level: "error"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, "error", cfg.Log.Level)
	case <-time.After(5 * time.Second):
		t.Skip("filesystem notifications not delivered in this environment")
	}
}
