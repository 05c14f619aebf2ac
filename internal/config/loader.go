package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all motiveq settings.
const envPrefix = "MOTIVEQ"

// newViper builds a pre-configured Viper instance: YAML file type, MOTIVEQ_
// env prefix, automatic env binding, and a key replacer that maps "." → "_"
// so that nested keys like "engine.connect_distance" resolve to
// "MOTIVEQ_ENGINE_CONNECT_DISTANCE".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys seeds viper with every known key.  AutomaticEnv only resolves
// keys viper already knows about, so without this an env-only configuration
// would unmarshal to zero values.
func registerKeys(v *viper.Viper) {
	d := Default()

	v.SetDefault("engine.max_clique_results", d.Engine.MaxCliqueResults)
	v.SetDefault("engine.evd_max_iterations", d.Engine.EVDMaxIterations)
	v.SetDefault("engine.connect_distance", d.Engine.ConnectDistance)
	v.SetDefault("engine.cavity.grid_spacing", d.Engine.Cavity.GridSpacing)
	v.SetDefault("engine.cavity.probe_radius", d.Engine.Cavity.ProbeRadius)
	v.SetDefault("engine.cavity.interior_threshold", d.Engine.Cavity.InteriorThreshold)
	v.SetDefault("engine.cavity.bottleneck_radius", d.Engine.Cavity.BottleneckRadius)

	v.SetDefault("batch.concurrency", d.Batch.Concurrency)
	v.SetDefault("batch.timeout", d.Batch.Timeout)
	v.SetDefault("batch.store_results", d.Batch.StoreResults)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)
	v.SetDefault("redis.result_ttl", d.Redis.ResultTTL)
	v.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.subsystem", d.Metrics.Subsystem)
	v.SetDefault("metrics.addr", d.Metrics.Addr)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the YAML file at configPath, merges any MOTIVEQ_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from MOTIVEQ_* environment variables,
// with no config file required.
//
//	MOTIVEQ_<SECTION>_<FIELD>   e.g.  MOTIVEQ_BATCH_CONCURRENCY, MOTIVEQ_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrDefault loads configPath when it is non-empty and falls back to
// LoadFromEnv otherwise.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  Only the log level
// is safe to apply at runtime; callers pick what they honour.
//
// If the changed file fails to parse or validate, onChange is NOT called.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
