// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Qchains/gtelegram/internal/memory"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists memory lines and snapshot metadata
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a repository over db
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying connection
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// SaveLine inserts or refreshes the row for line
func (r *Repository) SaveLine(ctx context.Context, line memory.MemoryLine) error {
	rec := NewMemoryLineRecord(line)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"memory", "semantic_tags", "hash"}),
		}).
		Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to save memory line %d: %w", line.ID, err)
	}
	return nil
}

// GetLine loads a single line by id
func (r *Repository) GetLine(ctx context.Context, id uint64) (memory.MemoryLine, error) {
	var rec MemoryLineRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return memory.MemoryLine{}, fmt.Errorf("failed to load memory line %d: %w", id, err)
	}
	return rec.Line(), nil
}

// ListLines returns lines in id order
func (r *Repository) ListLines(ctx context.Context, limit, offset int) ([]memory.MemoryLine, error) {
	var recs []MemoryLineRecord
	q := r.db.WithContext(ctx).Order("id ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list memory lines: %w", err)
	}

	lines := make([]memory.MemoryLine, 0, len(recs))
	for i := range recs {
		lines = append(lines, recs[i].Line())
	}
	return lines, nil
}

// CountLines returns the number of mirrored lines
func (r *Repository) CountLines(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&MemoryLineRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count memory lines: %w", err)
	}
	return n, nil
}

// SaveSnapshot records snapshot metadata
func (r *Repository) SaveSnapshot(ctx context.Context, rec *SnapshotRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", rec.SnapshotID, err)
	}
	return nil
}

// ListSnapshots returns snapshot metadata, newest first
func (r *Repository) ListSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error) {
	var recs []SnapshotRecord
	q := r.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return recs, nil
}

// LatestSnapshot returns the newest snapshot, or nil when none is recorded
func (r *Repository) LatestSnapshot(ctx context.Context) (*SnapshotRecord, error) {
	var rec SnapshotRecord
	err := r.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	return &rec, nil
}
