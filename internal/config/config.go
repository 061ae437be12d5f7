// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Qchains/gtelegram/internal/collector"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is the default configuration directory
	DefaultConfigDir = ".pandora/configs"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.json"
	// baseDir holds databases, snapshots and data files
	baseDir = ".pandora"
)

// Load reads configuration from ~/.pandora/configs/config.json
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(configPath)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.api_token", "")
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	v.SetDefault("database.enabled", d.Database.Enabled)
	v.SetDefault("database.type", d.Database.Type)
	v.SetDefault("database.sqlite_path", d.Database.SQLitePath)

	v.SetDefault("collector.buffer_size", d.Collector.BufferSize)
	v.SetDefault("collector.strict_mode", d.Collector.StrictMode)
	v.SetDefault("collector.comment_strip", d.Collector.CommentStrip)
	v.SetDefault("collector.reverse_order", d.Collector.ReverseOrder)

	v.SetDefault("store.retention", d.Store.Retention)
	v.SetDefault("store.max_list_limit", d.Store.MaxListLimit)

	v.SetDefault("runtime.breath_interval_ms", d.Runtime.BreathIntervalMS)
	v.SetDefault("runtime.snapshot_every", d.Runtime.SnapshotEvery)
	v.SetDefault("runtime.context_window", d.Runtime.ContextWindow)
	v.SetDefault("runtime.auto_start", d.Runtime.AutoStart)

	v.SetDefault("snapshot.dir", d.Snapshot.Dir)
	v.SetDefault("snapshot.git", d.Snapshot.Git)
	v.SetDefault("snapshot.author", d.Snapshot.Author)
	v.SetDefault("snapshot.email", d.Snapshot.Email)

	v.SetDefault("data.memory_reel", d.Data.MemoryReel)
	v.SetDefault("data.this_then", d.Data.ThisThen)

	v.SetDefault("log.level", d.Log.Level)
}

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.TLS.Enabled && (cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when tls is enabled")
	}

	if cfg.Database.Enabled {
		if cfg.Database.Type != "sqlite" && cfg.Database.Type != "postgres" {
			return fmt.Errorf("database.type must be 'sqlite' or 'postgres', got '%s'", cfg.Database.Type)
		}
		if cfg.Database.Type == "sqlite" && cfg.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required when type is 'sqlite'")
		}
		if cfg.Database.Type == "postgres" && cfg.Database.PostgresDSN == "" {
			return fmt.Errorf("database.postgres_dsn is required when type is 'postgres'")
		}
	}

	if err := cfg.Collector.Validate(); err != nil {
		return err
	}

	if cfg.Store.Retention < 0 {
		return fmt.Errorf("store.retention must not be negative, got %d", cfg.Store.Retention)
	}
	if cfg.Store.MaxListLimit < 1 {
		return fmt.Errorf("store.max_list_limit must be at least 1, got %d", cfg.Store.MaxListLimit)
	}

	if cfg.Runtime.BreathIntervalMS < 10 {
		return fmt.Errorf("runtime.breath_interval_ms must be at least 10, got %d", cfg.Runtime.BreathIntervalMS)
	}
	if cfg.Runtime.SnapshotEvery < 0 {
		return fmt.Errorf("runtime.snapshot_every must not be negative, got %d", cfg.Runtime.SnapshotEvery)
	}
	if cfg.Runtime.ContextWindow < 1 {
		return fmt.Errorf("runtime.context_window must be at least 1, got %d", cfg.Runtime.ContextWindow)
	}

	if cfg.Snapshot.Dir == "" {
		return fmt.Errorf("snapshot.dir is required")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got '%s'", cfg.Log.Level)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, baseDir)

	cfg := &Config{
		Server: ServerConfig{
			Host:        "localhost",
			Port:        8001,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Enabled:    true,
			Type:       "sqlite",
			SQLitePath: filepath.Join(base, "db", "pandora.db"),
		},
		Collector: collector.DefaultConfig(),
		Store: StoreConfig{
			Retention:    0,
			MaxListLimit: 500,
		},
		Runtime: RuntimeConfig{
			BreathIntervalMS: 3000,
			SnapshotEvery:    10,
			ContextWindow:    128000,
			AutoStart:        true,
		},
		Snapshot: SnapshotConfig{
			Dir:    filepath.Join(base, "snapshots"),
			Git:    true,
			Author: "Pandora Runtime",
			Email:  "runtime@pandora.local",
		},
		Data: DataConfig{
			MemoryReel: filepath.Join(base, "data", "pandora_memory_reel.json"),
			ThisThen:   filepath.Join(base, "data", "this-then.yaml"),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
	return cfg
}
