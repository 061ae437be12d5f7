// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package engine wires the record store, collector buffer, snapshot manager
// and breath cycle into the Pandora runtime.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Qchains/gtelegram/internal/collector"
	"github.com/Qchains/gtelegram/internal/config"
	"github.com/Qchains/gtelegram/internal/database"
	"github.com/Qchains/gtelegram/internal/errs"
	"github.com/Qchains/gtelegram/internal/memory"
	"github.com/Qchains/gtelegram/internal/metrics"
	"github.com/Qchains/gtelegram/internal/snapshot"
	"github.com/Qchains/gtelegram/internal/store"
	"github.com/Qchains/gtelegram/pkg/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const breathTaskName = "breath"

// Options carries the collaborators an Engine needs besides its configuration
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// DB enables the memory line mirror and the snapshot catalog; nil disables both
	DB *gorm.DB
}

// Engine is the Pandora runtime. All methods are safe for concurrent use.
type Engine struct {
	cfg       *config.Config
	store     *store.Store
	buffer    *collector.Buffer
	snapshots *snapshot.Manager
	breath    *scheduler.Scheduler
	repo      *database.Repository

	thenConfig map[string]interface{}
	reel       []memory.ReelStage

	logger  *zap.Logger
	metrics *metrics.Metrics

	// lifecycle guards Start, Stop and Close
	lifecycle sync.Mutex
	closed    bool
}

// New builds an engine from cfg. The store is restored from the latest snapshot,
// or seeded from the memory reel when there is none.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	e := &Engine{
		cfg:     cfg,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}

	storeOpts := store.Options{
		Retention:       cfg.Store.Retention,
		MaxListLimit:    cfg.Store.MaxListLimit,
		Logger:          opts.Logger.Named("store"),
		OnMirrorFailure: func(error) { e.metrics.IncMirrorFailure() },
		Classify:        classifierTags,
	}
	if opts.DB != nil {
		e.repo = database.NewRepository(opts.DB)
		storeOpts.Mirror = e.repo
	}
	e.store = store.New(storeOpts)

	buffer, err := collector.New(cfg.Collector, e.store, opts.Logger.Named("collector"), opts.Metrics)
	if err != nil {
		return nil, fmt.Errorf("invalid collector configuration: %w", err)
	}
	e.buffer = buffer

	snapOpts := snapshot.Options{
		Dir:         cfg.Snapshot.Dir,
		Git:         cfg.Snapshot.Git,
		Author:      cfg.Snapshot.Author,
		Email:       cfg.Snapshot.Email,
		RemoteURL:   cfg.Snapshot.RemoteURL,
		RemoteToken: cfg.Snapshot.RemoteToken,
		Buffer:      buffer,
		Logger:      opts.Logger.Named("snapshot"),
		Metrics:     opts.Metrics,
	}
	if e.repo != nil {
		snapOpts.Catalog = e.repo
	}
	e.snapshots, err = snapshot.NewManager(e.store, snapOpts)
	if err != nil {
		return nil, err
	}

	if e.thenConfig, err = memory.LoadThenConfig(cfg.Data.ThisThen); err != nil {
		return nil, err
	}
	if e.reel, err = memory.LoadReel(cfg.Data.MemoryReel); err != nil {
		return nil, err
	}

	if err := e.restore(); err != nil {
		return nil, err
	}

	e.breath = scheduler.NewScheduler(breathTaskName, cfg.Runtime.BreathInterval(), e.Breathe, opts.Logger.Named("scheduler"))
	e.breath.OnFailure = func(error) { e.metrics.IncCycleFailure() }

	e.syncGauges()
	return e, nil
}

// restore loads latest.json into the store and buffer, falling back to the memory reel
func (e *Engine) restore() error {
	doc, err := e.snapshots.Latest()
	if err != nil {
		return fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	if doc != nil {
		view, err := doc.View()
		if err != nil {
			return fmt.Errorf("failed to decode latest snapshot: %w", err)
		}
		e.store.Restore(view)
		e.buffer.Restore(doc.CollectorBuffer)
		e.logger.Info("restored runtime from snapshot",
			zap.String("snapshot_id", doc.SnapshotID),
			zap.Int("lines", len(view.Lines)),
			zap.Int64("breath_cycle", view.BreathCycle))
		return nil
	}

	return e.bootstrap()
}

// bootstrap seeds an empty store from the memory reel
func (e *Engine) bootstrap() error {
	if e.store.Count() > 0 || len(e.reel) == 0 {
		return nil
	}
	for _, stage := range e.reel {
		line := stage.ToLine()
		if len(line.SemanticTags) == 0 {
			line.SemanticTags = classifierTags(&line)
		}
		e.store.Append(line)
	}
	e.logger.Info("bootstrapped memory from reel", zap.Int("stages", len(e.reel)))
	return nil
}

// Start begins the breath cycle. Starting a running engine is a no-op.
func (e *Engine) Start() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.closed {
		return errs.Unavailable("runtime is shut down")
	}
	if err := e.bootstrap(); err != nil {
		return err
	}
	if err := e.breath.Start(); err != nil && !errors.Is(err, scheduler.ErrAlreadyRunning) {
		return fmt.Errorf("failed to start breath cycle: %w", err)
	}

	e.logger.Info("pandora runtime active",
		zap.Duration("breath_interval", e.breath.Interval()),
		zap.Int("snapshot_every", e.cfg.Runtime.SnapshotEvery))
	return nil
}

// Stop halts the breath cycle and commits a final snapshot. A closed runtime rejects it.
func (e *Engine) Stop(ctx context.Context) (snapshot.Meta, error) {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.closed {
		return snapshot.Meta{}, errs.Unavailable("runtime is shut down")
	}
	return e.stop(ctx)
}

func (e *Engine) stop(ctx context.Context) (snapshot.Meta, error) {
	e.breath.Stop()
	meta, err := e.snapshots.Commit(ctx, snapshot.TriggerShutdown)
	if err != nil {
		return snapshot.Meta{}, err
	}
	e.logger.Info("pandora runtime stopped", zap.String("snapshot_id", meta.SnapshotID))
	return meta, nil
}

// Close stops the runtime for good. Later writes fail with TransientUnavailable.
func (e *Engine) Close(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	_, err := e.stop(ctx)
	return err
}

// IsRunning reports whether the breath cycle is active
func (e *Engine) IsRunning() bool {
	return e.breath.Running()
}

// Breathe runs one breath cycle: advance the counter, record the breath and
// commit a snapshot every runtime.snapshot_every cycles.
func (e *Engine) Breathe(ctx context.Context) error {
	cycle := e.store.AdvanceCycle()

	line := memory.MemoryLine{
		Stage:    memory.StageBreath,
		State:    "active_cycle",
		Identity: "Pandora Q Breath",
		Memory: []string{
			fmt.Sprintf("Cycle %d", cycle),
			"Introspective traversal",
			"Memory braid sync",
		},
	}
	line.SemanticTags = classifierTags(&line)
	stored := e.store.Append(line)

	e.logger.Debug("breath cycle",
		zap.Int64("cycle", cycle),
		zap.Uint64("line_id", stored.ID),
		zap.Int("memory_lines", e.store.Count()))

	defer e.syncGauges()

	every := int64(e.cfg.Runtime.SnapshotEvery)
	if every > 0 && cycle%every == 0 {
		if _, err := e.snapshots.Commit(ctx, snapshot.TriggerCycle); err != nil {
			return fmt.Errorf("breath cycle %d snapshot: %w", cycle, err)
		}
	}
	return nil
}

// CommitSnapshot takes a manual snapshot. It does not affect the breath cycle count.
func (e *Engine) CommitSnapshot(ctx context.Context) (snapshot.Meta, error) {
	if err := e.writable(); err != nil {
		return snapshot.Meta{}, err
	}
	return e.snapshots.Commit(ctx, snapshot.TriggerManual)
}

// SnapshotHistory lists committed snapshots, newest first
func (e *Engine) SnapshotHistory(ctx context.Context, limit int) ([]snapshot.Meta, error) {
	return e.snapshots.History(ctx, limit)
}

// writable rejects writes once the engine is closed
func (e *Engine) writable() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if e.closed {
		return errs.Unavailable("runtime is shut down")
	}
	return nil
}

func (e *Engine) syncGauges() {
	e.metrics.SetStoreState(e.store.Count(), e.store.Cycle())
	e.metrics.SetBufferItems(e.buffer.Len())
}
