package config

import (
	"strings"
	"time"
)

// Default values for unspecified fields. Explicit values are preserved;
// zero values are replaced.
const (
	DefaultPort        = 3333
	DefaultMaxClients  = 256
	DefaultPollTimeout = 100 * time.Millisecond
	DefaultStorePath   = "recorddb.db"
)

// ApplyDefaults fills in any missing configuration values after loading
// from file and environment.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
}

// applyLoggingDefaults sets logging defaults and normalizes the level.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.MaxClients == 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "file"
	}

	if cfg.File == nil {
		cfg.File = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if cfg.Type == "file" {
		if _, ok := cfg.File["path"]; !ok {
			cfg.File["path"] = DefaultStorePath
		}
	}
}
