// Package config loads profsim settings from defaults, an optional YAML file
// and PROFSIM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// PROFSIM_API_BASE_URL for api.base_url.
const EnvPrefix = "PROFSIM"

// Config holds all client configuration.
type Config struct {
	API   APIConfig   `mapstructure:"api"`
	Retry RetryConfig `mapstructure:"retry"`
	Log   LogConfig   `mapstructure:"log"`
	Store StoreConfig `mapstructure:"store"`
	Auth  AuthConfig  `mapstructure:"auth"`
}

// APIConfig describes the server.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Mode is "stream" or "plain".
	Mode string `mapstructure:"mode"`
}

// RetryConfig configures retries of idempotent requests.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// LogConfig configures the zap logger. An empty OutputPaths logs to a file
// under the data directory.
type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// StoreConfig locates the local database. An empty Path uses the default.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig configures where the bearer token comes from.
type AuthConfig struct {
	TokenEnv  string        `mapstructure:"token_env"`
	TokenFile string        `mapstructure:"token_file"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000",
			RequestTimeout: 30 * time.Second,
			Mode:           "stream",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
		Auth: AuthConfig{
			TokenEnv: "PROFSIM_TOKEN",
			TokenTTL: 30 * time.Minute,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/profsim/config.yaml, falling back to
// ~/.config/profsim/config.yaml.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "profsim", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "profsim", "config.yaml")
}

// Load reads configuration. An explicit path must exist; with an empty path
// the default file is used when present.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultPath()
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Every key needs a default so AutomaticEnv can override it on Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.request_timeout", d.API.RequestTimeout)
	v.SetDefault("api.mode", d.API.Mode)

	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial_wait", d.Retry.InitialWait)
	v.SetDefault("retry.max_wait", d.Retry.MaxWait)
	v.SetDefault("retry.multiplier", d.Retry.Multiplier)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
	v.SetDefault("log.output_paths", d.Log.OutputPaths)

	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("auth.token_env", d.Auth.TokenEnv)
	v.SetDefault("auth.token_file", d.Auth.TokenFile)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
}

// Validate checks values that would otherwise fail later and less clearly.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.RequestTimeout <= 0 {
		return fmt.Errorf("api.request_timeout must be positive")
	}
	switch c.API.Mode {
	case "stream", "plain":
	default:
		return fmt.Errorf("unknown api.mode: %q", c.API.Mode)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be at least 1")
	}

	switch c.Log.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log.encoding: %q", c.Log.Encoding)
	}

	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl must not be negative")
	}
	return nil
}
