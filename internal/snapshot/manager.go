// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package snapshot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Qchains/gtelegram/internal/database"
	"github.com/Qchains/gtelegram/internal/errs"
	"github.com/Qchains/gtelegram/internal/git"
	"github.com/Qchains/gtelegram/internal/metrics"
	"github.com/Qchains/gtelegram/internal/store"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Source provides a consistent copy of the record store
type Source interface {
	View() store.View
}

// BufferSource provides the collector's buffered items, oldest first.
// Hold must keep new records out of the store until fn returns.
type BufferSource interface {
	Hold(fn func(items []map[string]interface{}))
}

// Catalog records snapshot metadata
type Catalog interface {
	SaveSnapshot(ctx context.Context, rec *database.SnapshotRecord) error
	ListSnapshots(ctx context.Context, limit int) ([]database.SnapshotRecord, error)
}

// Options configures a Manager
type Options struct {
	Dir string
	// Git commits every snapshot to a repository in Dir
	Git         bool
	Author      string
	Email       string
	RemoteURL   string
	RemoteToken string

	Catalog Catalog
	Buffer  BufferSource
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Manager commits and loads snapshots. Commits are serialized.
type Manager struct {
	mu      sync.Mutex
	dir     string
	source  Source
	buffer  BufferSource
	repo    *git.Repository
	opts    Options
	catalog Catalog
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewManager prepares the snapshot directory and, when enabled, its git repository
func NewManager(source Source, opts Options) (*Manager, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("snapshot directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		dir:     opts.Dir,
		source:  source,
		buffer:  opts.Buffer,
		opts:    opts,
		catalog: opts.Catalog,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}

	if opts.Git {
		repo, err := git.SetupSnapshotRepository(&git.SetupConfig{
			Path:      opts.Dir,
			RemoteURL: opts.RemoteURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up snapshot repository: %w", err)
		}
		m.repo = repo

		if err := m.recoverPending(); err != nil {
			return nil, fmt.Errorf("failed to commit pending snapshots: %w", err)
		}
		if last, err := repo.GetLastCommit(); err == nil {
			m.logger.Info("snapshot repository ready",
				zap.String("dir", opts.Dir),
				zap.String("head", last.Hash.String()),
				zap.String("last_commit", strings.TrimSpace(last.Message)))
		}
	}

	return m, nil
}

// recoverPending commits snapshot files written by a commit that never reached git
func (m *Manager) recoverPending() error {
	clean, err := m.repo.IsClean()
	if err != nil || clean {
		return err
	}

	files, err := m.repo.PendingFiles(".json")
	if err != nil || len(files) == 0 {
		return err
	}

	opts := git.DefaultCommitOptions()
	opts.Message = git.CommitMessageFormats{}.Recovered(len(files))
	hash, err := m.repo.AddAndCommit(files, opts)
	if errors.Is(err, git.ErrNothingToCommit) {
		return nil
	}
	if err != nil {
		return err
	}
	m.logger.Warn("committed snapshot files left by an interrupted commit",
		zap.Int("files", len(files)),
		zap.String("commit", hash))
	return nil
}

// Dir returns the snapshot directory
func (m *Manager) Dir() string {
	return m.dir
}

// Commit captures the store and writes it durably. The in-memory store is never touched.
func (m *Manager) Commit(ctx context.Context, trigger string) (Meta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	meta, err := m.commit(ctx, trigger)
	outcome := "ok"
	if err != nil {
		outcome = "failed"
		m.logger.Error("snapshot commit failed",
			zap.String("trigger", trigger),
			zap.Error(err))
	}
	m.metrics.ObserveSnapshot(trigger, outcome, time.Since(start))
	return meta, err
}

func (m *Manager) commit(ctx context.Context, trigger string) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}

	// records and buffered items are captured together so the buffer never
	// holds an item whose line is missing from the snapshot
	var (
		view     store.View
		buffered []map[string]interface{}
	)
	if m.buffer != nil {
		m.buffer.Hold(func(items []map[string]interface{}) {
			view = m.source.View()
			buffered = items
		})
	} else {
		view = m.source.View()
	}

	raw, hash, err := encodeLines(view.Lines)
	if err != nil {
		return Meta{}, errs.Storage("failed to serialize memory lines", err)
	}

	now := m.now().UTC()
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()

	if buffered == nil {
		buffered = []map[string]interface{}{}
	}

	doc := Document{
		SnapshotID:      id,
		Timestamp:       now,
		Trigger:         trigger,
		BreathCycle:     view.BreathCycle,
		RecordCount:     len(view.Lines),
		NextID:          view.NextID,
		ContentHash:     hash,
		SemanticState:   semanticState(view.Lines),
		CollectorBuffer: buffered,
		MemoryLines:     raw,
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return Meta{}, errs.Storage("failed to serialize snapshot", err)
	}

	path := filepath.Join(m.dir, id+".json")
	latest := filepath.Join(m.dir, LatestFile)
	if err := writeFileAtomic(path, data); err != nil {
		return Meta{}, errs.Storage("failed to write snapshot", err)
	}
	if err := writeFileAtomic(latest, data); err != nil {
		return Meta{}, errs.Storage("failed to write latest snapshot", err)
	}

	meta := doc.Meta(path)

	if m.repo != nil {
		commitHash, err := m.repo.AddAndCommit([]string{path, latest}, m.commitOptions(meta))
		if err != nil {
			return Meta{}, errs.Storage("failed to commit snapshot to git", err)
		}
		meta.CommitHash = commitHash

		if m.opts.RemoteURL != "" {
			if err := m.repo.Push(m.opts.RemoteToken); err != nil {
				m.logger.Warn("failed to push snapshot", zap.String("snapshot_id", id), zap.Error(err))
			}
		}
	}

	if m.catalog != nil {
		if err := m.catalog.SaveSnapshot(ctx, toRecord(meta)); err != nil {
			m.logger.Warn("failed to record snapshot metadata", zap.String("snapshot_id", id), zap.Error(err))
		}
	}

	m.logger.Info("snapshot committed",
		zap.String("snapshot_id", id),
		zap.String("trigger", trigger),
		zap.Int("records", meta.RecordCount),
		zap.Int64("breath_cycle", meta.BreathCycle))

	return meta, nil
}

func (m *Manager) commitOptions(meta Meta) *git.CommitOptions {
	opts := git.DefaultCommitOptions()
	if m.opts.Author != "" {
		opts.Author = m.opts.Author
	}
	if m.opts.Email != "" {
		opts.Email = m.opts.Email
	}
	opts.Message = git.CommitMessageFormats{}.Snapshot(meta.SnapshotID, meta.Trigger, meta.RecordCount, meta.BreathCycle)
	return opts
}

// Latest loads latest.json, or returns nil when no snapshot has been written
func (m *Manager) Latest() (*Document, error) {
	doc, err := m.read(filepath.Join(m.dir, LatestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return doc, err
}

// Load reads a snapshot by id
func (m *Manager) Load(id string) (*Document, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, errs.Validation("invalid snapshot id").WithField("snapshot_id", id)
	}

	doc, err := m.read(filepath.Join(m.dir, id+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errs.NotFound("snapshot %s does not exist", id)
	}
	return doc, err
}

func (m *Manager) read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, errs.Storage("failed to read snapshot", err)
	}
	return decodeDocument(data)
}

func decodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.Storage("failed to parse snapshot", err)
	}

	var compact bytes.Buffer
	if len(doc.MemoryLines) > 0 {
		if err := json.Compact(&compact, doc.MemoryLines); err != nil {
			return nil, errs.Storage("failed to parse snapshot memory lines", err)
		}
	}
	sum := sha256.Sum256(compact.Bytes())
	if doc.ContentHash != "" && hex.EncodeToString(sum[:]) != doc.ContentHash {
		return nil, errs.Storage("snapshot content hash mismatch", fmt.Errorf("snapshot %s", doc.SnapshotID))
	}
	return &doc, nil
}

// History lists snapshot metadata, newest first. The database catalog is used when
// configured; otherwise the git history of latest.json, then the directory listing.
func (m *Manager) History(ctx context.Context, limit int) ([]Meta, error) {
	if m.catalog != nil {
		recs, err := m.catalog.ListSnapshots(ctx, limit)
		if err == nil {
			out := make([]Meta, 0, len(recs))
			for i := range recs {
				out = append(out, fromRecord(&recs[i]))
			}
			return out, nil
		}
		m.logger.Warn("failed to list snapshot catalog", zap.Error(err))
	}

	if m.repo != nil {
		out, err := m.gitHistory(limit)
		if err == nil {
			return out, nil
		}
		m.logger.Warn("failed to read snapshot git history", zap.Error(err))
	}

	return m.dirHistory(limit)
}

func (m *Manager) gitHistory(limit int) ([]Meta, error) {
	commits, err := m.repo.GetFileHistory(LatestFile, limit)
	if err != nil {
		return nil, err
	}

	out := make([]Meta, 0, len(commits))
	for _, c := range commits {
		data, err := m.repo.GetFileAtRevision(LatestFile, c.Hash)
		if err != nil {
			return nil, err
		}
		doc, err := decodeDocument(data)
		if err != nil {
			return nil, err
		}
		meta := doc.Meta(filepath.Join(m.dir, doc.SnapshotID+".json"))
		meta.CommitHash = c.Hash
		out = append(out, meta)
	}
	return out, nil
}

func (m *Manager) dirHistory(limit int) ([]Meta, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, errs.Storage("failed to list snapshot directory", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || name == LatestFile {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if _, err := ulid.ParseStrict(id); err == nil {
			ids = append(ids, id)
		}
	}
	// ULIDs sort by time
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]Meta, 0, len(ids))
	for _, id := range ids {
		path := filepath.Join(m.dir, id+".json")
		doc, err := m.read(path)
		if err != nil {
			m.logger.Warn("skipping unreadable snapshot", zap.String("path", path), zap.Error(err))
			continue
		}
		out = append(out, doc.Meta(path))
	}
	return out, nil
}

func toRecord(meta Meta) *database.SnapshotRecord {
	return &database.SnapshotRecord{
		SnapshotID:  meta.SnapshotID,
		Timestamp:   meta.Timestamp,
		BreathCycle: meta.BreathCycle,
		RecordCount: meta.RecordCount,
		ContentHash: meta.ContentHash,
		Path:        meta.Path,
		CommitHash:  meta.CommitHash,
		Trigger:     meta.Trigger,
	}
}

func fromRecord(rec *database.SnapshotRecord) Meta {
	return Meta{
		SnapshotID:  rec.SnapshotID,
		Timestamp:   rec.Timestamp.UTC(),
		Trigger:     rec.Trigger,
		BreathCycle: rec.BreathCycle,
		RecordCount: rec.RecordCount,
		ContentHash: rec.ContentHash,
		Path:        rec.Path,
		CommitHash:  rec.CommitHash,
	}
}

// writeFileAtomic writes data to a temp file in the same directory and renames it into place
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
