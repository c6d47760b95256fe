package config

import "errors"

// Config is the top-level configuration struct for commitflow.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Store         StoreConfig         `mapstructure:"store"`
	Stats         StatsConfig         `mapstructure:"stats"`
	Notify        NotifyConfig        `mapstructure:"notify"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig holds HTTP server knobs.
type ServerConfig struct {
	Addr            string `mapstructure:"addr"`
	ShutdownSeconds int    `mapstructure:"shutdown_seconds"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// StatsConfig holds remote commit-detail fetch settings.
type StatsConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Token          string `mapstructure:"token"`
}

// NotifyConfig holds notification emitter settings.
type NotifyConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// CacheConfig holds lookup cache settings.
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// ObservabilityConfig holds telemetry export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	Environment  string  `mapstructure:"environment"`
	LogLevel     string  `mapstructure:"log_level"`
	LogJSON      bool    `mapstructure:"log_json"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// sampleRatioMax is the upper bound for the trace sampling ratio.
const sampleRatioMax = 1.0

// Sentinel errors for configuration validation.
var (
	// ErrEmptyServerAddr indicates the server listen address is empty.
	ErrEmptyServerAddr = errors.New("server.addr must not be empty")
	// ErrEmptyStorePath indicates the store path is empty.
	ErrEmptyStorePath = errors.New("store.path must not be empty")
	// ErrInvalidStatsTimeout indicates the stats timeout is negative.
	ErrInvalidStatsTimeout = errors.New("stats.timeout_seconds must be non-negative")
	// ErrInvalidNotifyBuffer indicates the notify buffer size is not positive.
	ErrInvalidNotifyBuffer = errors.New("notify.buffer_size must be positive")
	// ErrInvalidCacheTTL indicates the cache TTL is negative.
	ErrInvalidCacheTTL = errors.New("cache.ttl_seconds must be non-negative")
	// ErrInvalidSampleRatio indicates the sampling ratio is out of range.
	ErrInvalidSampleRatio = errors.New("observability.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return ErrEmptyServerAddr
	}

	if c.Store.Path == "" {
		return ErrEmptyStorePath
	}

	if c.Stats.TimeoutSeconds < 0 {
		return ErrInvalidStatsTimeout
	}

	if c.Notify.BufferSize <= 0 {
		return ErrInvalidNotifyBuffer
	}

	if c.Cache.TTLSeconds < 0 {
		return ErrInvalidCacheTTL
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > sampleRatioMax {
		return ErrInvalidSampleRatio
	}

	return nil
}
