// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package rebuild

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/Qchains/gtelegram/internal/database"
	"github.com/Qchains/gtelegram/internal/memory"
	"github.com/Qchains/gtelegram/internal/snapshot"
	"github.com/Qchains/gtelegram/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func setupRepo(t *testing.T) *database.Repository {
	t.Helper()
	db, err := database.Open(&database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "rebuild.db"),
		LogLevel:   logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return database.NewRepository(db)
}

func snapshotDoc(t *testing.T, n int) *snapshot.Document {
	t.Helper()
	s := store.New(store.Options{})
	for i := 0; i < n; i++ {
		s.Append(memory.MemoryLine{
			Stage:    "breath",
			Identity: "Pandora Q Breath",
			State:    "active_cycle",
			Memory:   []string{"Memory braid sync"},
		})
	}

	m, err := snapshot.NewManager(s, snapshot.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	_, err = m.Commit(context.Background(), snapshot.TriggerManual)
	require.NoError(t, err)

	doc, err := m.Latest()
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

func TestRebuildMirror(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	doc := snapshotDoc(t, 4)

	result, err := RebuildMirror(ctx, repo, doc, Options{})
	require.NoError(t, err)
	assert.Equal(t, doc.SnapshotID, result.SnapshotID)
	assert.Equal(t, 4, result.LinesProcessed)
	assert.Equal(t, 4, result.LinesCreated)
	assert.Empty(t, result.Errors)

	n, err := repo.CountLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestRebuildMirror_RequiresForceWhenPopulated(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	doc := snapshotDoc(t, 2)

	_, err := RebuildMirror(ctx, repo, doc, Options{})
	require.NoError(t, err)

	_, err = RebuildMirror(ctx, repo, doc, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	result, err := RebuildMirror(ctx, repo, doc, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.LinesCreated)

	n, err := repo.CountLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRebuildMirror_SkipsTamperedLines(t *testing.T) {
	repo := setupRepo(t)
	doc := snapshotDoc(t, 1)

	lines, err := doc.Lines()
	require.NoError(t, err)
	lines[0].State = "tampered"

	tampered := &snapshot.Document{SnapshotID: doc.SnapshotID}
	tampered.MemoryLines = mustJSON(t, lines)

	result, err := RebuildMirror(context.Background(), repo, tampered, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.LinesCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "hash mismatch")
}

func TestRebuildMirror_LineWithNote(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	s := store.New(store.Options{})
	line := s.Append(memory.MemoryLine{Stage: "breath", State: "active_cycle"})
	_, err := s.AddNote(line.ID, "recorded after the fact")
	require.NoError(t, err)

	m, err := snapshot.NewManager(s, snapshot.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	_, err = m.Commit(ctx, snapshot.TriggerManual)
	require.NoError(t, err)
	doc, err := m.Latest()
	require.NoError(t, err)

	result, err := RebuildMirror(ctx, repo, doc, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.LinesCreated)
	assert.Empty(t, result.Errors)

	saved, err := repo.GetLine(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"recorded after the fact"}, saved.Memory)
}

func TestRebuildMirror_NilDocument(t *testing.T) {
	_, err := RebuildMirror(context.Background(), setupRepo(t), nil, Options{})
	assert.Error(t, err)
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
