// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"context"
	"testing"
	"time"

	"github.com/Qchains/gtelegram/internal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLine(id uint64, state string) memory.MemoryLine {
	l := memory.MemoryLine{
		ID:           id,
		Timestamp:    time.Date(2025, 3, 1, 10, 0, int(id), 0, time.UTC),
		Stage:        "breath",
		State:        state,
		Identity:     "Pandora Q Breath",
		Memory:       []string{"Cycle 1", "Memory braid sync"},
		SemanticTags: []memory.Tag{memory.TagAncestral, memory.TagSymbolic},
		BreathCycle:  1,
	}
	l.Hash = l.ContentHash()
	return l
}

func TestRepository_SaveAndLoadLines(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, repo.SaveLine(ctx, testLine(i, "active_cycle")))
	}

	n, err := repo.CountLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := repo.GetLine(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, testLine(2, "active_cycle"), got)

	lines, err := repo.ListLines(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, uint64(2), lines[0].ID)
	assert.Equal(t, uint64(3), lines[1].ID)

	_, err = repo.GetLine(ctx, 99)
	assert.Error(t, err)
}

func TestRepository_SaveLineUpserts(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	line := testLine(1, "active_cycle")
	require.NoError(t, repo.SaveLine(ctx, line))

	line.Memory = append(line.Memory, "late note")
	line.Hash = line.ContentHash()
	require.NoError(t, repo.SaveLine(ctx, line))

	n, err := repo.CountLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetLine(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cycle 1", "Memory braid sync", "late note"}, got.Memory)
	assert.Equal(t, line.Hash, got.Hash)
}

func TestRepository_Snapshots(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	latest, err := repo.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ids := []string{"01HQ0000000000000000000001", "01HQ0000000000000000000002", "01HQ0000000000000000000003"}
	for i, id := range ids {
		require.NoError(t, repo.SaveSnapshot(ctx, &SnapshotRecord{
			SnapshotID:  id,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			BreathCycle: int64(i * 10),
			RecordCount: i,
			ContentHash: "abc",
			Path:        id + ".json",
			Trigger:     "cycle",
		}))
	}

	recs, err := repo.ListSnapshots(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, ids[2], recs[0].SnapshotID)
	assert.Equal(t, ids[1], recs[1].SnapshotID)

	latest, err = repo.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, ids[2], latest.SnapshotID)
	assert.Equal(t, int64(20), latest.BreathCycle)

	// snapshot ids are unique
	err = repo.SaveSnapshot(ctx, &SnapshotRecord{SnapshotID: ids[0], Timestamp: base, ContentHash: "x", Path: "x", Trigger: "manual"})
	assert.Error(t, err)
}
