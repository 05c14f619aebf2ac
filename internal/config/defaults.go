package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultMaxCliqueResults = 0
	DefaultEVDMaxIterations = 1000
	DefaultConnectDistance  = 4.0

	DefaultCavityGridSpacing       = 0.7
	DefaultCavityProbeRadius       = 3.0
	DefaultCavityInteriorThreshold = 1.25
	DefaultCavityBottleneckRadius  = 1.25

	DefaultBatchConcurrency = 4
	DefaultBatchTimeout     = 5 * time.Minute

	DefaultRedisAddr        = "localhost:6379"
	DefaultRedisDB          = 0
	DefaultRedisPoolSize    = 10
	DefaultRedisKeyPrefix   = "motiveq:"
	DefaultRedisResultTTL   = 24 * time.Hour
	DefaultRedisDialTimeout = 5 * time.Second

	DefaultMetricsNamespace = "motiveq"
	DefaultMetricsSubsystem = "engine"
	DefaultMetricsAddr      = ":9090"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the built-in default.
// Fields that have already been set (non-zero values) are left unchanged so
// that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	if cfg.Engine.EVDMaxIterations == 0 {
		cfg.Engine.EVDMaxIterations = DefaultEVDMaxIterations
	}
	if cfg.Engine.ConnectDistance == 0 {
		cfg.Engine.ConnectDistance = DefaultConnectDistance
	}
	if cfg.Engine.Cavity.GridSpacing == 0 {
		cfg.Engine.Cavity.GridSpacing = DefaultCavityGridSpacing
	}
	if cfg.Engine.Cavity.ProbeRadius == 0 {
		cfg.Engine.Cavity.ProbeRadius = DefaultCavityProbeRadius
	}
	if cfg.Engine.Cavity.InteriorThreshold == 0 {
		cfg.Engine.Cavity.InteriorThreshold = DefaultCavityInteriorThreshold
	}
	if cfg.Engine.Cavity.BottleneckRadius == 0 {
		cfg.Engine.Cavity.BottleneckRadius = DefaultCavityBottleneckRadius
	}

	// ── Batch ─────────────────────────────────────────────────────────────────
	if cfg.Batch.Concurrency == 0 {
		cfg.Batch.Concurrency = DefaultBatchConcurrency
	}
	if cfg.Batch.Timeout == 0 {
		cfg.Batch.Timeout = DefaultBatchTimeout
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.ResultTTL == 0 {
		cfg.Redis.ResultTTL = DefaultRedisResultTTL
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// Default returns a Config populated entirely with defaults.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
