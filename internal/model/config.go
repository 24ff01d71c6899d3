package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig points the client at the backend.
type ServerConfig struct {
	// URL is the base URL of the API server, e.g. "https://api.boardhub.dev".
	URL string `mapstructure:"url" yaml:"url"`

	// SocketURL is the base URL for realtime channels. Empty means derive
	// from URL (https -> wss, http -> ws).
	SocketURL string `mapstructure:"socket_url" yaml:"socket_url"`
}

// RealtimeConfig tunes the channel layer.
type RealtimeConfig struct {
	// Preferences is the per-feature realtime preference map. Empty means
	// everything enabled.
	Preferences map[string]bool `mapstructure:"preferences" yaml:"preferences"`

	// BackoffBaseMS is the initial reconnect delay in milliseconds.
	BackoffBaseMS int `mapstructure:"backoff_base_ms" yaml:"backoff_base_ms"`

	// BackoffGrowth is the multiplier applied per failed attempt.
	BackoffGrowth float64 `mapstructure:"backoff_growth" yaml:"backoff_growth"`

	// BackoffCapMS bounds the reconnect delay in milliseconds.
	BackoffCapMS int `mapstructure:"backoff_cap_ms" yaml:"backoff_cap_ms"`

	// MaxAttempts is the number of automatic reconnect attempts before the
	// connection surfaces a terminal error state.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`

	// ConnectTimeoutSec bounds a single connection attempt.
	ConnectTimeoutSec int `mapstructure:"connect_timeout_sec" yaml:"connect_timeout_sec"`
}

// PushConfig tunes the local alert bridge.
type PushConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// MinIntervalSec is the minimum gap between local alerts.
	MinIntervalSec int `mapstructure:"min_interval_sec" yaml:"min_interval_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Realtime RealtimeConfig `mapstructure:"realtime" yaml:"realtime"`
	Push     PushConfig     `mapstructure:"push" yaml:"push"`

	// DatabasePath locates the local SQLite database. Empty means the
	// default next to the config file.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// ConnectTimeout returns the per-attempt dial timeout as a duration.
func (c RealtimeConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/boardhub/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "boardhub", "config.yaml")
}

// DefaultDatabasePath returns the default SQLite path next to the config.
func DefaultDatabasePath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "boardhub.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			URL: "http://localhost:8080",
		},
		Realtime: RealtimeConfig{
			BackoffBaseMS:     2000,
			BackoffGrowth:     1.5,
			BackoffCapMS:      30000,
			MaxAttempts:       5,
			ConnectTimeoutSec: 20,
		},
		Push: PushConfig{
			Enabled:        true,
			MinIntervalSec: 3,
		},
		LogLevel: "info",
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("server.url", "http://localhost:8080")
	v.SetDefault("realtime.backoff_base_ms", 2000)
	v.SetDefault("realtime.backoff_growth", 1.5)
	v.SetDefault("realtime.backoff_cap_ms", 30000)
	v.SetDefault("realtime.max_attempts", 5)
	v.SetDefault("realtime.connect_timeout_sec", 20)
	v.SetDefault("push.enabled", true)
	v.SetDefault("push.min_interval_sec", 3)
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("realtime", cfg.Realtime)
	v.Set("push", cfg.Push)
	v.Set("database_path", cfg.DatabasePath)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
