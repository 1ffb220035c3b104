// Package config loads, defaults, and validates the RecordDB server
// configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (RECORDDB_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store Configuration Pattern:
// Each store backend defines its own configuration type. The Config
// struct carries type-specific sections (store.file, store.badger) and
// only the section matching the selected type is used, decoded via
// mapstructure in the backend factory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete RecordDB server configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains the reactor settings
	Server ServerConfig `mapstructure:"server"`

	// Store specifies the persistence backend and backend-specific
	// configuration
	Store StoreConfig `mapstructure:"store"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`
}

// ServerConfig contains the reactor settings.
type ServerConfig struct {
	// Port is the TCP port to listen on (0 binds an ephemeral port)
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`

	// MaxClients bounds concurrent sessions
	MaxClients int `mapstructure:"max_clients" validate:"required,gt=0"`

	// PollTimeout bounds each readiness wait, which is also how quickly
	// a shutdown signal is observed on an idle server
	PollTimeout time.Duration `mapstructure:"poll_timeout" validate:"required,gt=0"`
}

// StoreConfig specifies the persistence backend.
//
// The Type field determines which backend is used; only the matching
// type-specific section is decoded.
type StoreConfig struct {
	// Type selects the backend implementation
	// Valid values: file, badger
	Type string `mapstructure:"type" validate:"required,oneof=file badger"`

	// File contains flat-file backend configuration
	// Only used when Type = "file"
	File map[string]any `mapstructure:"file"`

	// Badger contains BadgerDB backend configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// Load reads the configuration from configPath (or the default search
// locations when empty), applies defaults, and validates the result.
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

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable support and the config
// file search.
//
// Environment variables use the RECORDDB_ prefix with underscores,
// e.g. RECORDDB_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("RECORDDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing
// file is fine; the defaults cover everything.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory: $XDG_CONFIG_HOME or
// ~/.config, falling back to the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "recorddb")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "recorddb")
}
