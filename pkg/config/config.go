// Package config loads the mycloud server configuration.
//
// Sources in order of precedence:
//  1. Environment variables (MYCLOUD_SECTION_KEY, e.g. MYCLOUD_STORAGE_MAX_USER_SPACE)
//  2. The YAML config file
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Users   UsersConfig   `mapstructure:"users"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	WebDir          string        `mapstructure:"web_dir"`
	// BodyLimit caps request bodies, e.g. "512M". Empty means unlimited.
	BodyLimit string `mapstructure:"body_limit"`

	// BodyLimitBytes is BodyLimit parsed by ApplyDefaults.
	BodyLimitBytes int64 `mapstructure:"-"`
}

// StorageConfig configures the namespace directories and the quota.
type StorageConfig struct {
	FilesDir   string `mapstructure:"files_dir" validate:"required"`
	GalleryDir string `mapstructure:"gallery_dir" validate:"required"`
	// MaxUserSpace is a human readable size such as "20GiB".
	MaxUserSpace string `mapstructure:"max_user_space" validate:"required"`

	// MaxUserSpaceBytes is MaxUserSpace parsed by ApplyDefaults.
	MaxUserSpaceBytes int64 `mapstructure:"-"`
}

// UsersConfig configures the user directory.
type UsersConfig struct {
	DBPath   string        `mapstructure:"db_path" validate:"required"`
	SeedFile string        `mapstructure:"seed_file"`
	// CacheTTL bounds how long a role changed by another process stays
	// unnoticed. Zero disables the role cache.
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

// SessionConfig configures session cookies.
type SessionConfig struct {
	Secret     string        `mapstructure:"secret" validate:"required"`
	CookieName string        `mapstructure:"cookie_name" validate:"required"`
	TTL        time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Secure     bool          `mapstructure:"secure"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=console json"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from configPath, or from the default location
// when configPath is empty. A missing default file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ApplyDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("MYCLOUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Registered defaults make every key visible to AutomaticEnv on Unmarshal.
	for key, value := range defaultValues() {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "mycloud")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "mycloud")
}

// GetDefaultConfigPath returns the config file used when none is given.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
