// Package config provides configuration loading, defaults, and validation for
// motivequery.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/motivequery/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Section types
// ─────────────────────────────────────────────────────────────────────────────

// EngineConfig tunes the query execution engine.
type EngineConfig struct {
	// MaxCliqueResults caps the number of cliques DistanceCluster enumerates
	// per level.  Zero means unlimited.
	MaxCliqueResults int `mapstructure:"max_clique_results" yaml:"max_clique_results"`

	// EVDMaxIterations bounds the implicit QL iteration of the plane fit.
	EVDMaxIterations int `mapstructure:"evd_max_iterations" yaml:"evd_max_iterations"`

	// ConnectDistance is the proximity radius used when looking for bonded
	// neighbours between two motives (IsConnectedTo).
	ConnectDistance float64 `mapstructure:"connect_distance" yaml:"connect_distance"`

	Cavity CavityConfig `mapstructure:"cavity" yaml:"cavity"`
}

// CavityConfig holds the defaults of the grid cavity detector.
type CavityConfig struct {
	GridSpacing       float64 `mapstructure:"grid_spacing" yaml:"grid_spacing"`
	ProbeRadius       float64 `mapstructure:"probe_radius" yaml:"probe_radius"`
	InteriorThreshold float64 `mapstructure:"interior_threshold" yaml:"interior_threshold"`
	BottleneckRadius  float64 `mapstructure:"bottleneck_radius" yaml:"bottleneck_radius"`
}

// BatchConfig controls the multi-structure batch runner.
type BatchConfig struct {
	Concurrency  int           `mapstructure:"concurrency" yaml:"concurrency"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	StoreResults bool          `mapstructure:"store_results" yaml:"store_results"`
}

// RedisConfig holds connection parameters for the batch result store.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr" yaml:"addr"`
	Password    string        `mapstructure:"password" yaml:"password"`
	DB          int           `mapstructure:"db" yaml:"db"`
	PoolSize    int           `mapstructure:"pool_size" yaml:"pool_size"`
	KeyPrefix   string        `mapstructure:"key_prefix" yaml:"key_prefix"`
	ResultTTL   time.Duration `mapstructure:"result_ttl" yaml:"result_ttl"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
}

// MetricsConfig controls Prometheus metric registration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	Subsystem string `mapstructure:"subsystem" yaml:"subsystem"`
	Addr      string `mapstructure:"addr" yaml:"addr"`
}

// Config is the root configuration object.
type Config struct {
	Engine  EngineConfig      `mapstructure:"engine" yaml:"engine"`
	Batch   BatchConfig       `mapstructure:"batch" yaml:"batch"`
	Redis   RedisConfig       `mapstructure:"redis" yaml:"redis"`
	Metrics MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Log     logging.LogConfig `mapstructure:"log" yaml:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate checks cross-field invariants.  It must be called after
// ApplyDefaults.
func (c *Config) Validate() error {
	// Engine
	if c.Engine.MaxCliqueResults < 0 {
		return fmt.Errorf("config: engine.max_clique_results must be ≥ 0, got %d", c.Engine.MaxCliqueResults)
	}
	if c.Engine.EVDMaxIterations < 1 {
		return fmt.Errorf("config: engine.evd_max_iterations must be ≥ 1, got %d", c.Engine.EVDMaxIterations)
	}
	if c.Engine.ConnectDistance <= 0 {
		return fmt.Errorf("config: engine.connect_distance must be > 0, got %g", c.Engine.ConnectDistance)
	}
	if c.Engine.Cavity.GridSpacing <= 0 {
		return fmt.Errorf("config: engine.cavity.grid_spacing must be > 0, got %g", c.Engine.Cavity.GridSpacing)
	}
	if c.Engine.Cavity.ProbeRadius < c.Engine.Cavity.InteriorThreshold {
		return fmt.Errorf("config: engine.cavity.probe_radius %g is smaller than interior_threshold %g",
			c.Engine.Cavity.ProbeRadius, c.Engine.Cavity.InteriorThreshold)
	}

	// Batch
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("config: batch.concurrency must be ≥ 1, got %d", c.Batch.Concurrency)
	}
	if c.Batch.Timeout < 0 {
		return fmt.Errorf("config: batch.timeout must not be negative")
	}

	// Redis
	if c.Batch.StoreResults && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when batch.store_results is enabled")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("config: metrics.namespace is required when metrics are enabled")
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error|fatal", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}
	return nil
}
