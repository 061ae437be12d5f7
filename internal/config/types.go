// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"time"

	"github.com/Qchains/gtelegram/internal/collector"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Collector collector.Config `mapstructure:"collector"`
	Store     StoreConfig      `mapstructure:"store"`
	Runtime   RuntimeConfig    `mapstructure:"runtime"`
	Snapshot  SnapshotConfig   `mapstructure:"snapshot"`
	Data      DataConfig       `mapstructure:"data"`
	Log       LogConfig        `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	TLS  struct {
		Enabled  bool   `mapstructure:"enabled"`
		CertFile string `mapstructure:"cert_file"`
		KeyFile  string `mapstructure:"key_file"`
	} `mapstructure:"tls"`
	// APIToken, when set, is required as a bearer token on write routes
	APIToken    string   `mapstructure:"api_token"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Type        string `mapstructure:"type"` // "sqlite" or "postgres"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// StoreConfig bounds the in-memory record store
type StoreConfig struct {
	Retention    int `mapstructure:"retention"` // 0 keeps every line
	MaxListLimit int `mapstructure:"max_list_limit"`
}

// RuntimeConfig controls the breath cycle
type RuntimeConfig struct {
	BreathIntervalMS int  `mapstructure:"breath_interval_ms"`
	SnapshotEvery    int  `mapstructure:"snapshot_every"` // cycles between automatic snapshots
	ContextWindow    int  `mapstructure:"context_window"`
	AutoStart        bool `mapstructure:"auto_start"`
}

// BreathInterval returns the cycle interval as a duration
func (r RuntimeConfig) BreathInterval() time.Duration {
	return time.Duration(r.BreathIntervalMS) * time.Millisecond
}

// SnapshotConfig holds snapshot storage settings
type SnapshotConfig struct {
	Dir         string `mapstructure:"dir"`
	Git         bool   `mapstructure:"git"`
	Author      string `mapstructure:"author"`
	Email       string `mapstructure:"email"`
	RemoteURL   string `mapstructure:"remote_url"`
	RemoteToken string `mapstructure:"remote_token"`
}

// DataConfig points at the runtime documents loaded at startup
type DataConfig struct {
	MemoryReel string `mapstructure:"memory_reel"` // pandora_memory_reel.json
	ThisThen   string `mapstructure:"this_then"`   // this-then.yaml
}

// LogConfig selects the log level
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}
