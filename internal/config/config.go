// Package config loads netqualctl's YAML configuration into a
// netqual.Options via viper: env-prefixed overrides layered over a
// defaulted struct, decoded into the pipeline/log/metrics schema below.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"netqual.dev/netqual/internal/log"
	"netqual.dev/netqual/pkg/netqual"
)

// envPrefix is the environment-variable prefix viper checks for every key,
// e.g. NETQUAL_REPORTER_SCHEDULE overrides reporter_schedule.
const envPrefix = "NETQUAL"

// MetricsConfig configures the optional Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Addr string `yaml:"addr" mapstructure:"addr"`
	Path string `yaml:"path" mapstructure:"path"`
}

// Config is netqualctl's on-disk configuration schema.
type Config struct {
	AggregationInterval time.Duration `yaml:"aggregation_interval" mapstructure:"aggregation_interval"`
	ReporterSchedule string `yaml:"reporter_schedule" mapstructure:"reporter_schedule"`
	ReporterMinBatches int `yaml:"reporter_min_batches" mapstructure:"reporter_min_batches"`
	MeasureLoss bool `yaml:"measure_loss" mapstructure:"measure_loss"`
	MeasureReorderExtent bool `yaml:"measure_reorder_extent" mapstructure:"measure_reorder_extent"`
	MeasureReorderDensity bool `yaml:"measure_reorder_density" mapstructure:"measure_reorder_density"`
	KeySize int `yaml:"key_size" mapstructure:"key_size"`
	PushThreshold int `yaml:"push_threshold" mapstructure:"push_threshold"`

	Log log.LoggerConfig `yaml:"log" mapstructure:"log"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// Default returns netqualctl's built-in configuration: one fan-out report
// slot every 5 seconds, all three estimators enabled.
func Default() *Config {
	return &Config{
		AggregationInterval: time.Second,
		ReporterSchedule: "c,5,0",
		ReporterMinBatches: 2,
		MeasureLoss: true,
		MeasureReorderExtent: true,
		MeasureReorderDensity: true,
		KeySize: netqual.DefaultKeySize,
		Log: log.LoggerConfig{
			Level: "info",
			Pattern: "%time [%level] %field %msg\n",
			Time: time.RFC3339,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr: ":9090",
			Path: "/metrics",
		},
	}
}

// Load reads path (YAML) over Default's values, honoring NETQUAL_*
// environment overrides for every key.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling %s: %w", path, err)
	}
	return cfg, nil
}

// bindDefaults seeds viper with cfg's zero-config defaults so unset keys in
// the file (or absent env vars) fall back to Default() rather than to Go's
// zero values.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("aggregation_interval", cfg.AggregationInterval)
	v.SetDefault("reporter_schedule", cfg.ReporterSchedule)
	v.SetDefault("reporter_min_batches", cfg.ReporterMinBatches)
	v.SetDefault("measure_loss", cfg.MeasureLoss)
	v.SetDefault("measure_reorder_extent", cfg.MeasureReorderExtent)
	v.SetDefault("measure_reorder_density", cfg.MeasureReorderDensity)
	v.SetDefault("key_size", cfg.KeySize)
	v.SetDefault("push_threshold", cfg.PushThreshold)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.pattern", cfg.Log.Pattern)
	v.SetDefault("log.time", cfg.Log.Time)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

// ToOptions builds a netqual.Options from c. Logger/Registerer are left for
// the caller to attach (they depend on the already-initialized log/metrics
// subsystems).
func (c *Config) ToOptions() netqual.Options {
	return netqual.Options{
		AggregationInterval: c.AggregationInterval,
		ReporterSchedule: c.ReporterSchedule,
		ReporterMinBatches: c.ReporterMinBatches,
		MeasureLoss: c.MeasureLoss,
		MeasureReorderExtent: c.MeasureReorderExtent,
		MeasureReorderDensity: c.MeasureReorderDensity,
		KeySize: c.KeySize,
		PushThreshold: c.PushThreshold,
	}
}
