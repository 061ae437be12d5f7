// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Qchains/gtelegram/internal/config"
	"github.com/Qchains/gtelegram/internal/database"
	"github.com/Qchains/gtelegram/internal/engine"
	"github.com/Qchains/gtelegram/internal/metrics"
	"github.com/Qchains/gtelegram/internal/rebuild"
	"github.com/Qchains/gtelegram/internal/server"
	"github.com/Qchains/gtelegram/internal/snapshot"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Version is set at build time via ldflags (e.g. goreleaser -X main.Version={{.Version}}).
var Version string

const shutdownTimeout = 15 * time.Second

func main() {
	// CRITICAL: MCP servers must ONLY output JSON-RPC to stdout
	// Redirect all logging to stderr
	log.SetOutput(os.Stderr)

	httpMode := flag.Bool("http", false, "Run in HTTP server mode (default: stdio for MCP)")
	rebuildDB := flag.Bool("rebuilddb", false, "Rebuild the memory line mirror from a snapshot")
	snapshotID := flag.String("snapshot-id", "", "Snapshot to rebuild from (default: latest, requires --rebuilddb)")
	forceRebuild := flag.Bool("force", false, "Force rebuild (requires --rebuilddb)")
	dbType := flag.String("db-type", "", "Database type (sqlite or postgres)")
	dbPath := flag.String("db-path", "", "Database path (for sqlite)")
	dbDSN := flag.String("db-dsn", "", "Database DSN (for postgres)")
	configPath := flag.String("config", "", "Path to config file")
	port := flag.Int("port", 0, "Server port (HTTP mode only)")
	snapshotDir := flag.String("snapshot-dir", "", "Snapshot directory")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Pandora Memory Runtime\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Server Mode:\n")
		fmt.Fprintf(os.Stderr, "  %s              Start MCP server (stdio)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --http       Start HTTP server (REST API, /mcp and /metrics)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nDatabase Rebuild:\n")
		fmt.Fprintf(os.Stderr, "  %s --rebuilddb                        Rebuild mirror from the latest snapshot\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --rebuilddb --snapshot-id <id>     Rebuild mirror from a specific snapshot\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --rebuilddb --force                Clear existing rows and rebuild\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DB_TYPE            Database type (sqlite or postgres)\n")
		fmt.Fprintf(os.Stderr, "  DB_PATH            SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  DB_DSN             PostgreSQL connection string\n")
		fmt.Fprintf(os.Stderr, "  PORT               Server port (HTTP mode only)\n")
		fmt.Fprintf(os.Stderr, "  SNAPSHOT_DIR       Snapshot directory\n")
		fmt.Fprintf(os.Stderr, "  API_TOKEN          Bearer token required for write routes and /mcp\n")
		fmt.Fprintf(os.Stderr, "  LOG_LEVEL          debug, info, warn or error\n")
		fmt.Fprintf(os.Stderr, "  Each variable is also accepted with a PANDORA_ prefix.\n")
	}

	flag.Parse()

	if *showVersion {
		fmt.Fprintln(os.Stderr, versionString())
		return
	}

	// Validate flag combinations
	if *forceRebuild && !*rebuildDB {
		log.Fatal("ERROR: --force can only be used with --rebuilddb")
	}
	if *snapshotID != "" && !*rebuildDB {
		log.Fatal("ERROR: --snapshot-id can only be used with --rebuilddb")
	}
	if *rebuildDB && *httpMode {
		log.Fatal("ERROR: --rebuilddb and --http cannot be used together")
	}

	level := zap.NewAtomicLevel()
	zlog, err := newLogger(level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("starting pandora", zap.String("version", versionString()))

	cfg := loadConfig(*configPath, zlog)

	// Apply environment variable overrides
	config.ApplyEnvOverrides(cfg, zlog)

	// Apply CLI flag overrides (highest priority)
	applyCLIOverrides(cfg, zlog, *dbType, *dbPath, *dbDSN, *snapshotDir, *port)

	if err := config.Validate(cfg); err != nil {
		zlog.Fatal("invalid configuration", zap.Error(err))
	}
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		zlog.Warn("ignoring invalid log level", zap.String("level", cfg.Log.Level))
	}

	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = database.Open(&database.Config{
			Type:        cfg.Database.Type,
			SQLitePath:  cfg.Database.SQLitePath,
			PostgresDSN: cfg.Database.PostgresDSN,
			LogLevel:    logger.Silent, // CRITICAL: Silence GORM stdout output for MCP
		})
		if err != nil {
			zlog.Fatal("failed to open database", zap.Error(err))
		}
		defer func() { _ = database.Close(db) }()
		zlog.Info("connected to database", zap.String("type", cfg.Database.Type))
	}

	// REBUILD MODE: Run rebuild and exit
	if *rebuildDB {
		runRebuildMode(cfg, db, zlog, *snapshotID, *forceRebuild)
		return
	}

	m := metrics.New()
	rt, err := engine.New(cfg, engine.Options{
		Logger:  zlog.Named("engine"),
		Metrics: m,
		DB:      db,
	})
	if err != nil {
		zlog.Fatal("failed to create runtime", zap.Error(err))
	}

	if cfg.Runtime.AutoStart {
		if err := rt.Start(); err != nil {
			zlog.Fatal("failed to start runtime", zap.Error(err))
		}
	}

	if *httpMode {
		zlog.Info("running in HTTP server mode")
		runHTTPMode(cfg, rt, m, zlog)
	} else {
		zlog.Info("running in stdio mode (MCP)")
		runStdioMode(rt, zlog)
	}
}

func versionString() string {
	if Version == "" {
		return server.Version
	}
	return Version
}

// newLogger builds a JSON logger writing to stderr
func newLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}

// loadConfig reads the config file, falling back to built-in defaults
func loadConfig(path string, zlog *zap.Logger) *config.Config {
	if path != "" {
		cfg, err := config.LoadFromPath(path)
		if err != nil {
			zlog.Warn("failed to load config, using defaults", zap.String("path", path), zap.Error(err))
			return config.DefaultConfig()
		}
		zlog.Info("loaded configuration", zap.String("path", path))
		return cfg
	}

	cfg, err := config.Load()
	if err != nil {
		zlog.Warn("failed to load default config, using built-in defaults", zap.Error(err))
		return config.DefaultConfig()
	}
	zlog.Info("loaded configuration", zap.String("path", "~/"+config.DefaultConfigDir+"/"+config.DefaultConfigFile))
	return cfg
}

// applyCLIOverrides applies command-line flag overrides to configuration
func applyCLIOverrides(cfg *config.Config, zlog *zap.Logger, dbType, dbPath, dbDSN, snapshotDir string, port int) {
	if dbType != "" {
		cfg.Database.Type = dbType
		zlog.Info("database type from CLI", zap.String("type", dbType))
	}

	if dbPath != "" {
		cfg.Database.SQLitePath = dbPath
		zlog.Info("database path from CLI")
	}

	if dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
		zlog.Info("database DSN from CLI (hidden)")
	}

	if snapshotDir != "" {
		cfg.Snapshot.Dir = snapshotDir
		zlog.Info("snapshot directory from CLI", zap.String("dir", snapshotDir))
	}

	if port > 0 {
		cfg.Server.Port = port
		zlog.Info("port from CLI", zap.Int("port", port))
	}
}

// runRebuildMode repopulates the memory line mirror from a snapshot and exits
func runRebuildMode(cfg *config.Config, db *gorm.DB, zlog *zap.Logger, snapshotID string, force bool) {
	if db == nil {
		zlog.Fatal("--rebuilddb requires database.enabled")
	}

	snapshots, err := snapshot.NewManager(nil, snapshot.Options{
		Dir:    cfg.Snapshot.Dir,
		Logger: zlog.Named("snapshot"),
	})
	if err != nil {
		zlog.Fatal("failed to open snapshot directory", zap.Error(err))
	}

	var doc *snapshot.Document
	if snapshotID != "" {
		doc, err = snapshots.Load(snapshotID)
	} else {
		doc, err = snapshots.Latest()
	}
	if err != nil {
		zlog.Fatal("failed to load snapshot", zap.Error(err))
	}
	if doc == nil {
		zlog.Fatal("no snapshot found", zap.String("dir", cfg.Snapshot.Dir))
	}

	result, err := rebuild.RebuildMirror(context.Background(), database.NewRepository(db), doc, rebuild.Options{
		Force:  force,
		Logger: zlog.Named("rebuild"),
	})
	if err != nil {
		zlog.Fatal("rebuild failed", zap.Error(err))
	}

	zlog.Info("rebuild completed",
		zap.String("snapshot_id", result.SnapshotID),
		zap.Int("processed", result.LinesProcessed),
		zap.Int("created", result.LinesCreated),
		zap.Int("skipped", result.LinesSkipped),
		zap.Int("warnings", len(result.Errors)))
	for _, e := range result.Errors {
		zlog.Warn("rebuild warning", zap.String("detail", e))
	}
}

// runStdioMode serves the MCP tools over stdio until stdin closes
func runStdioMode(rt *engine.Engine, zlog *zap.Logger) {
	mcpServer := server.NewMCPServer(rt, zlog.Named("mcp"))
	zlog.Info("MCP server ready (stdio mode)")

	// Serve via stdio
	if err := mcpserver.ServeStdio(mcpServer.GetMCPServer()); err != nil {
		zlog.Error("MCP server error", zap.Error(err))
	}

	shutdownRuntime(rt, zlog)
}

// runHTTPMode serves the REST API, /mcp and /metrics until SIGINT or SIGTERM
func runHTTPMode(cfg *config.Config, rt *engine.Engine, m *metrics.Metrics, zlog *zap.Logger) {
	mcpServer := server.NewMCPServer(rt, zlog.Named("mcp"))
	httpServer := server.NewHTTPServer(rt, mcpServer, cfg.Server, m, zlog.Named("http"))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("HTTP server starting", zap.String("addr", addr), zap.Bool("tls", cfg.Server.TLS.Enabled))
		if cfg.Server.TLS.Enabled {
			serveErr <- srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			serveErr <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zlog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("HTTP server shutdown", zap.Error(err))
	}

	shutdownRuntime(rt, zlog)
}

// shutdownRuntime stops the breath cycle and commits the shutdown snapshot
func shutdownRuntime(rt *engine.Engine, zlog *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rt.Close(ctx); err != nil {
		zlog.Error("failed to commit shutdown snapshot", zap.Error(err))
	}
}
