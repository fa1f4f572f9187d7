package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/dittofm/pkg/adapter/httpadapter"
	"github.com/marmos91/dittofm/pkg/client"
)

// EnvPrefix prefixes every environment override, e.g. DITTOFM_LOGGING_LEVEL.
const EnvPrefix = "DITTOFM"

// Config represents the complete DittoFM configuration.
//
// This structure captures all configurable aspects of DittoFM:
//   - Logging configuration
//   - Server-wide settings (served directory layout, metrics, rate limit)
//   - Store selection and configuration (store-specific)
//   - Protocol adapter configurations
//   - Terminal client settings
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTOFM_*), including a .env file
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type. The Store
// section holds one option map per type (e.g. store.filesystem,
// store.s3) and only the map matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Store specifies the storage backend and its type-specific configuration
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Adapters contains protocol adapter configurations
	Adapters AdaptersConfig `mapstructure:"adapters" yaml:"adapters"`

	// Client configures the terminal client (dittofm browse)
	Client ClientConfig `mapstructure:"client" yaml:"client"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	// BaseDir is the served directory. Request paths are resolved below it.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir" validate:"required"`

	// ContentRoot is the editable subtree, relative to BaseDir
	ContentRoot string `mapstructure:"content_root" yaml:"content_root" validate:"required"`

	// PublicRoot is the static asset subtree, relative to BaseDir
	PublicRoot string `mapstructure:"public_root" yaml:"public_root" validate:"required"`

	// Hidden lists glob patterns for names left out of directory listings
	Hidden []string `mapstructure:"hidden" yaml:"hidden"`

	// DisableEmbeddedAssets stops serving the built-in UI shell for public
	// files missing from the store
	DisableEmbeddedAssets bool `mapstructure:"disable_embedded_assets" yaml:"disable_embedded_assets"`

	// Metrics configures the Prometheus metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// RateLimit throttles incoming requests
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// MetricsConfig controls the metrics HTTP server.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the /metrics endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the metrics server port
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`
}

// RateLimitConfig controls request rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. 0 disables rate limiting.
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the maximum burst size. Defaults to RequestsPerSecond.
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// StoreConfig specifies storage backend configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type StoreConfig struct {
	// Type specifies which store implementation to use
	// Valid values: filesystem, memory, s3, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem memory s3 badger"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// AdaptersConfig contains all protocol adapter configurations.
type AdaptersConfig struct {
	// HTTP contains the file manager HTTP protocol configuration.
	// Uses the httpadapter.HTTPConfig type directly to avoid duplication.
	HTTP httpadapter.HTTPConfig `mapstructure:"http" yaml:"http"`
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	// URL is the content root the client browses,
	// e.g. http://localhost:8081/content
	URL string `mapstructure:"url" yaml:"url" validate:"required,url"`

	// Retry controls how transport failures are retried
	Retry client.RetryPolicy `mapstructure:"retry" yaml:"retry"`

	// RetryForever ignores Retry.MaxAttempts and retries until the client
	// is closed
	RetryForever bool `mapstructure:"retry_forever" yaml:"retry_forever"`
}

// RetryPolicy returns the effective retry policy.
func (c ClientConfig) RetryPolicy() client.RetryPolicy {
	p := c.Retry
	if c.RetryForever {
		p.MaxAttempts = 0
	}
	return p
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOFM_*)
//  2. Configuration file
//  3. Default values
//
// A .env file in the working directory is loaded into the environment
// first; variables already set win.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read configuration file if it exists
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the DITTOFM_ prefix and underscores
	// Example: DITTOFM_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/dittofm/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnvKeys registers every known key with viper. AutomaticEnv alone only
// applies to keys viper has already seen, so without this an environment
// variable could not override a key missing from the config file.
func bindEnvKeys(v *viper.Viper) {
	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	for _, key := range flattenKeys("", tree) {
		_ = v.BindEnv(key)
	}
}

func flattenKeys(prefix string, tree map[string]any) []string {
	var keys []string
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			keys = append(keys, flattenKeys(key, sub)...)
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittofm")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittofm")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
