package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/turtacn/motivequery/internal/config"
)

// validConfig returns a Config that passes Validate() with all defaults set.
func validConfig() *config.Config {
	return config.Default()
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"negative clique cap", func(c *config.Config) { c.Engine.MaxCliqueResults = -1 }, "max_clique_results"},
		{"zero evd iterations", func(c *config.Config) { c.Engine.EVDMaxIterations = 0 }, "evd_max_iterations"},
		{"zero connect distance", func(c *config.Config) { c.Engine.ConnectDistance = 0 }, "connect_distance"},
		{"negative grid spacing", func(c *config.Config) { c.Engine.Cavity.GridSpacing = -0.5 }, "grid_spacing"},
		{"probe below interior", func(c *config.Config) {
			c.Engine.Cavity.ProbeRadius = 1
			c.Engine.Cavity.InteriorThreshold = 2
		}, "probe_radius"},
		{"zero concurrency", func(c *config.Config) { c.Batch.Concurrency = 0 }, "batch.concurrency"},
		{"negative timeout", func(c *config.Config) { c.Batch.Timeout = -1 }, "batch.timeout"},
		{"store without redis", func(c *config.Config) {
			c.Batch.StoreResults = true
			c.Redis.Addr = ""
		}, "redis.addr"},
		{"negative redis db", func(c *config.Config) { c.Redis.DB = -1 }, "redis.db"},
		{"metrics without namespace", func(c *config.Config) {
			c.Metrics.Enabled = true
			c.Metrics.Namespace = ""
		}, "metrics.namespace"},
		{"bad log level", func(c *config.Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_UppercaseLogLevel(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Log.Level = "WARN"
	assert.NoError(t, cfg.Validate())
}

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	assert.Equal(t, config.DefaultMaxCliqueResults, cfg.Engine.MaxCliqueResults)
	assert.Equal(t, config.DefaultEVDMaxIterations, cfg.Engine.EVDMaxIterations)
	assert.Equal(t, config.DefaultConnectDistance, cfg.Engine.ConnectDistance)
	assert.Equal(t, config.DefaultCavityProbeRadius, cfg.Engine.Cavity.ProbeRadius)
	assert.Equal(t, config.DefaultBatchConcurrency, cfg.Batch.Concurrency)
	assert.Equal(t, config.DefaultBatchTimeout, cfg.Batch.Timeout)
	assert.Equal(t, config.DefaultRedisKeyPrefix, cfg.Redis.KeyPrefix)
	assert.Equal(t, config.DefaultMetricsNamespace, cfg.Metrics.Namespace)
	assert.Equal(t, config.DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, config.DefaultLogFormat, cfg.Log.Format)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.Engine.EVDMaxIterations = 50
	cfg.Batch.Concurrency = 16
	cfg.Redis.Addr = "redis:6380"
	cfg.Log.Format = "console"

	config.ApplyDefaults(cfg)

	assert.Equal(t, 50, cfg.Engine.EVDMaxIterations)
	assert.Equal(t, 16, cfg.Batch.Concurrency)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestApplyDefaults_Nil(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { config.ApplyDefaults(nil) })
}
