// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRepository(t *testing.T) {
	tempDir := t.TempDir()
	repoPath := filepath.Join(tempDir, "test-repo")

	repo, err := InitRepository(repoPath)
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, repoPath, repo.Path)

	gitDir := filepath.Join(repoPath, ".git")
	info, err := os.Stat(gitDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	head, err := repo.HeadHash()
	require.NoError(t, err)
	assert.Empty(t, head)
}

func TestOpenRepository(t *testing.T) {
	repoPath := filepath.Join(t.TempDir(), "test-repo")

	_, err := InitRepository(repoPath)
	require.NoError(t, err)

	repo, err := OpenRepository(repoPath)
	require.NoError(t, err)
	assert.Equal(t, repoPath, repo.Path)

	_, err = OpenRepository(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestOpenOrInitRepository(t *testing.T) {
	repoPath := filepath.Join(t.TempDir(), "snapshots")

	_, created, err := OpenOrInitRepository(repoPath)
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = OpenOrInitRepository(repoPath)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSetupSnapshotRepository(t *testing.T) {
	repoPath := filepath.Join(t.TempDir(), "snapshots")

	repo, err := SetupSnapshotRepository(&SetupConfig{Path: repoPath, RemoteURL: "https://example.com/pandora.git"})
	require.NoError(t, err)

	last, err := repo.GetLastCommit()
	require.NoError(t, err)
	assert.Equal(t, CommitMessageFormats{}.InitialCommit(), last.Message)
	assert.True(t, repo.HasRemote(RemoteName))

	clean, err := repo.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)

	// reopening keeps history and does not add another initial commit
	again, err := SetupSnapshotRepository(&SetupConfig{Path: repoPath})
	require.NoError(t, err)
	commits, err := again.GetCommitHistory(0)
	require.NoError(t, err)
	assert.Len(t, commits, 1)

	_, err = SetupSnapshotRepository(&SetupConfig{})
	assert.Error(t, err)
}

func TestPush_RequiresRemote(t *testing.T) {
	repo, err := SetupSnapshotRepository(&SetupConfig{Path: filepath.Join(t.TempDir(), "snapshots")})
	require.NoError(t, err)

	err = repo.Push("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestPendingFiles(t *testing.T) {
	repo, err := SetupSnapshotRepository(&SetupConfig{Path: filepath.Join(t.TempDir(), "snapshots")})
	require.NoError(t, err)

	pending, err := repo.PendingFiles(".json")
	require.NoError(t, err)
	assert.Empty(t, pending)

	committed := writeFile(t, repo, "latest.json", `{"breath_cycle":1}`)
	_, err = repo.CommitFile(committed, "first")
	require.NoError(t, err)

	writeFile(t, repo, "latest.json", `{"breath_cycle":2}`)
	fresh := writeFile(t, repo, "01JBREATH.json", `{}`)
	writeFile(t, repo, "notes.txt", "skip")
	writeFile(t, repo, ".snapshot-1.tmp", "ignored")

	pending, err = repo.PendingFiles(".json")
	require.NoError(t, err)
	assert.Equal(t, []string{fresh, committed}, pending)

	clean, err := repo.IsClean()
	require.NoError(t, err)
	assert.False(t, clean)
}

func TestSetRemote_Replaces(t *testing.T) {
	repo, err := InitRepository(filepath.Join(t.TempDir(), "r"))
	require.NoError(t, err)

	require.NoError(t, repo.SetRemote(RemoteName, "https://example.com/a.git"))
	require.NoError(t, repo.SetRemote(RemoteName, "https://example.com/b.git"))

	remote, err := repo.repo.Remote(RemoteName)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/b.git"}, remote.Config().URLs)
}
