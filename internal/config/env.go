// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"os"
	"strconv"

	"go.uber.org/zap"
)

// ApplyEnvOverrides applies environment variable overrides to configuration
func ApplyEnvOverrides(cfg *Config, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dbType := getEnv("DB_TYPE", "PANDORA_DB_TYPE"); dbType != "" {
		cfg.Database.Type = dbType
		logger.Info("database type from env", zap.String("type", dbType))
	}

	if dbPath := getEnv("DB_PATH", "PANDORA_DB_PATH"); dbPath != "" {
		cfg.Database.SQLitePath = dbPath
		logger.Info("database path from env")
	}

	if dbDSN := getEnv("DB_DSN", "PANDORA_DB_DSN"); dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
		logger.Info("database dsn from env (hidden)")
	}

	if portStr := getEnv("PORT", "PANDORA_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Server.Port = port
			logger.Info("port from env", zap.Int("port", port))
		} else {
			logger.Warn("ignoring invalid PORT", zap.String("value", portStr))
		}
	}

	if dir := getEnv("SNAPSHOT_DIR", "PANDORA_SNAPSHOT_DIR"); dir != "" {
		cfg.Snapshot.Dir = dir
		logger.Info("snapshot directory from env", zap.String("dir", dir))
	}

	if token := getEnv("API_TOKEN", "PANDORA_API_TOKEN"); token != "" {
		cfg.Server.APIToken = token
		logger.Info("api token from env (hidden)")
	}

	if level := getEnv("LOG_LEVEL", "PANDORA_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// getEnv tries multiple environment variable names and returns the first non-empty value
func getEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}
