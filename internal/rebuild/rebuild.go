// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package rebuild repopulates the database mirror from a snapshot document.
package rebuild

import (
	"context"
	"errors"
	"fmt"

	"github.com/Qchains/gtelegram/internal/database"
	"github.com/Qchains/gtelegram/internal/memory"
	"github.com/Qchains/gtelegram/internal/snapshot"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options configures rebuild behavior
type Options struct {
	Force  bool // Clear existing rows before rebuild
	Logger *zap.Logger
}

// Result contains statistics from the rebuild operation
type Result struct {
	SnapshotID     string
	LinesProcessed int
	LinesCreated   int
	LinesSkipped   int
	Errors         []string
}

// RebuildMirror writes every line of doc into the memory line table.
// Rows that already hold the same hash are skipped.
func RebuildMirror(ctx context.Context, repo *database.Repository, doc *snapshot.Document, opts Options) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("no snapshot to rebuild from")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if err := handleExistingData(ctx, repo.DB(), opts); err != nil {
		return nil, err
	}

	lines, err := doc.Lines()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", doc.SnapshotID, err)
	}

	opts.Logger.Info("rebuilding memory line mirror",
		zap.String("snapshot_id", doc.SnapshotID),
		zap.Int("lines", len(lines)))

	result := &Result{SnapshotID: doc.SnapshotID}
	for _, line := range lines {
		result.LinesProcessed++

		created, err := processLine(ctx, repo, line)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line.ID, err))
			continue
		}
		if !created {
			result.LinesSkipped++
			continue
		}
		result.LinesCreated++
	}

	return result, nil
}

// handleExistingData refuses to mix rows unless force is set, in which case the table is cleared
func handleExistingData(ctx context.Context, db *gorm.DB, opts Options) error {
	var count int64
	if err := db.WithContext(ctx).Model(&database.MemoryLineRecord{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count existing memory lines: %w", err)
	}

	if count > 0 && !opts.Force {
		return fmt.Errorf("database contains %d existing memory lines. Use --force to clear and rebuild", count)
	}

	if opts.Force && count > 0 {
		opts.Logger.Info("force rebuild: clearing existing memory lines", zap.Int64("count", count))
		if err := db.WithContext(ctx).Where("1 = 1").Delete(&database.MemoryLineRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear memory lines: %w", err)
		}
	}

	return nil
}

func processLine(ctx context.Context, repo *database.Repository, line memory.MemoryLine) (bool, error) {
	if line.Hash != line.ContentHash() {
		return false, fmt.Errorf("hash mismatch")
	}

	existing, err := repo.GetLine(ctx, line.ID)
	switch {
	case err == nil && existing.Hash == line.Hash:
		return false, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	if err := repo.SaveLine(ctx, line); err != nil {
		return false, err
	}
	return true, nil
}
