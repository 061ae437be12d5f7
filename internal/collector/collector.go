// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package collector turns raw ingest items into memory lines.
//
// The buffer normalizes each item (comment stripping, JSON decoding),
// validates or coerces it depending on strict mode, classifies the result
// and appends it to the record store. The normalized items themselves are
// kept in a bounded FIFO so callers can inspect what was recently ingested.
package collector

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Qchains/gtelegram/internal/classifier"
	"github.com/Qchains/gtelegram/internal/errs"
	"github.com/Qchains/gtelegram/internal/memory"
	"github.com/Qchains/gtelegram/internal/metrics"
	"go.uber.org/zap"
)

// Name identifies the collector implementation in status reports
const Name = "FloJsonOutputCollector"

const (
	promiseInputPreview = 100
	promiseResolvedNote = "Promise chain resolved"
)

// Appender is the part of the record store the buffer writes to
type Appender interface {
	Append(line memory.MemoryLine) memory.MemoryLine
}

// Buffer ingests raw items and keeps the most recent ones
type Buffer struct {
	mu    sync.RWMutex
	cfg   Config
	items []map[string]interface{}

	store   Appender
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a buffer writing to store. The configuration is validated.
func New(cfg Config, store Appender, logger *zap.Logger, m *metrics.Metrics) (*Buffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Buffer{
		cfg:     cfg,
		items:   make([]map[string]interface{}, 0, cfg.BufferSize),
		store:   store,
		logger:  logger,
		metrics: m,
	}, nil
}

// Ingest normalizes item, builds a memory line for mode and appends it to the store.
// Rejected items leave both the store and the buffer untouched.
func (b *Buffer) Ingest(ctx context.Context, item memory.RawItem, mode memory.Mode) (memory.MemoryLine, error) {
	if !mode.Valid() {
		return memory.MemoryLine{}, errs.Validation("unknown ingest mode").WithField("mode", string(mode))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	line, payload, err := b.build(item, mode)
	if err != nil {
		b.metrics.ObserveIngest(string(mode), "rejected")
		b.logger.Info("collector rejected item",
			zap.String("mode", string(mode)),
			zap.Error(err))
		return memory.MemoryLine{}, err
	}

	if err := ctx.Err(); err != nil {
		b.metrics.ObserveIngest(string(mode), "cancelled")
		return memory.MemoryLine{}, err
	}

	stored := b.store.Append(line)
	b.push(payload)

	b.metrics.ObserveIngest(string(mode), "accepted")
	b.metrics.SetBufferItems(len(b.items))
	b.logger.Debug("collector ingested item",
		zap.String("mode", string(mode)),
		zap.Uint64("id", stored.ID),
		zap.Int("buffered", len(b.items)))

	return stored, nil
}

// build runs decode, validation or coercion and classification. Caller holds the lock.
func (b *Buffer) build(item memory.RawItem, mode memory.Mode) (memory.MemoryLine, map[string]interface{}, error) {
	payload, err := decode(item, b.cfg)
	if err != nil {
		return memory.MemoryLine{}, nil, err
	}

	var c candidate
	if b.cfg.StrictMode {
		if c, err = buildStrict(payload, mode); err != nil {
			return memory.MemoryLine{}, nil, err
		}
	} else {
		c = buildLenient(payload, mode)
	}

	line := memory.MemoryLine{
		Stage:    c.Stage,
		Identity: c.Identity,
		State:    c.State,
		Memory:   c.Memory,
	}
	if mode == memory.ModePromiseChain {
		line.Memory = append(line.Memory,
			"Processing input: "+memory.Truncate(preview(payload), promiseInputPreview),
			promiseResolvedNote)
	}
	if line.Memory == nil {
		line.Memory = []string{}
	}
	line.SemanticTags = classifier.ClassifyLine(&line)

	return line, payload, nil
}

func preview(payload map[string]interface{}) string {
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(b)
}

// push appends to the ring, evicting the oldest items. Caller holds the lock.
func (b *Buffer) push(payload map[string]interface{}) {
	b.items = append(b.items, payload)
	if over := len(b.items) - b.cfg.BufferSize; over > 0 {
		b.items = append(b.items[:0:0], b.items[over:]...)
	}
}

// RecentItems returns the last n items, or all of them when n is out of range.
// The order follows ReverseOrder.
func (b *Buffer) RecentItems(n int) []map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > len(b.items) {
		n = len(b.items)
	}
	recent := b.items[len(b.items)-n:]

	out := make([]map[string]interface{}, 0, n)
	if b.cfg.ReverseOrder {
		for i := len(recent) - 1; i >= 0; i-- {
			out = append(out, copyItem(recent[i]))
		}
		return out
	}
	for _, it := range recent {
		out = append(out, copyItem(it))
	}
	return out
}

// Peek returns the newest item
func (b *Buffer) Peek() (map[string]interface{}, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.items) == 0 {
		return nil, false
	}
	return copyItem(b.items[len(b.items)-1]), true
}

// Len returns the number of buffered items
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// Rewind maps fn over the last depth items in canonical order; depth -1 means all.
// A nil fn returns the copies unchanged.
func (b *Buffer) Rewind(depth int, fn func(map[string]interface{}) map[string]interface{}) []map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rewind(depth, fn)
}

// Hold passes copies of every buffered item, oldest first, to fn and keeps
// ingestion blocked until fn returns. Store reads made inside fn therefore
// agree with the items.
func (b *Buffer) Hold(fn func(items []map[string]interface{})) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn(b.rewind(-1, nil))
}

// rewind does the work of Rewind. Caller holds the lock.
func (b *Buffer) rewind(depth int, fn func(map[string]interface{}) map[string]interface{}) []map[string]interface{} {
	var window []map[string]interface{}
	switch {
	case depth == -1 || depth > len(b.items):
		window = b.items
	case depth > 0:
		window = b.items[len(b.items)-depth:]
	}

	out := make([]map[string]interface{}, 0, len(window))
	for _, it := range window {
		c := copyItem(it)
		if fn != nil {
			c = fn(c)
		}
		out = append(out, c)
	}
	return out
}

// Config returns the active configuration
func (b *Buffer) Config() Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg
}

// Reconfigure validates and installs cfg. Shrinking the buffer evicts the oldest items.
func (b *Buffer) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.cfg = cfg
	if over := len(b.items) - cfg.BufferSize; over > 0 {
		b.items = append(b.items[:0:0], b.items[over:]...)
	}
	b.metrics.SetBufferItems(len(b.items))

	b.logger.Info("collector reconfigured",
		zap.Int("buffer_size", cfg.BufferSize),
		zap.Bool("strict_mode", cfg.StrictMode),
		zap.Bool("comment_strip", cfg.CommentStrip),
		zap.Bool("reverse_order", cfg.ReverseOrder))
	return nil
}

// Restore refills the buffer from a snapshot, keeping the newest items that fit
func (b *Buffer) Restore(items []map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = b.items[:0:0]
	for _, it := range items {
		b.push(copyItem(it))
	}
	b.metrics.SetBufferItems(len(b.items))
}

func copyItem(it map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}
