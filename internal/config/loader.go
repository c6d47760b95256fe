package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".commitflow"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for commitflow settings.
const envPrefix = "COMMITFLOW"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default configuration values.
const (
	DefaultServerAddr      = ":8080"
	DefaultShutdownSeconds = 10
	DefaultStorePath       = "commitflow.db"
	DefaultStatsTimeoutSec = 5
	DefaultNotifyBuffer    = 256
	DefaultCacheTTLSec     = 300
	DefaultLogLevel        = "info"
	DefaultSampleRatio     = 0.0
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("server.addr", DefaultServerAddr)
	viperCfg.SetDefault("server.shutdown_seconds", DefaultShutdownSeconds)

	viperCfg.SetDefault("store.path", DefaultStorePath)

	viperCfg.SetDefault("stats.timeout_seconds", DefaultStatsTimeoutSec)
	viperCfg.SetDefault("stats.token", "")

	viperCfg.SetDefault("notify.buffer_size", DefaultNotifyBuffer)

	viperCfg.SetDefault("cache.ttl_seconds", DefaultCacheTTLSec)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.environment", "")
	viperCfg.SetDefault("observability.log_level", DefaultLogLevel)
	viperCfg.SetDefault("observability.log_json", false)
	viperCfg.SetDefault("observability.sample_ratio", DefaultSampleRatio)
}
