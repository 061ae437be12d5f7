// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ErrNothingToCommit is returned when the staged files match HEAD
var ErrNothingToCommit = errors.New("no changes to commit")

// CommitOptions holds options for creating commits
type CommitOptions struct {
	Author     string
	Email      string
	Message    string
	AllowEmpty bool
}

// DefaultCommitOptions returns default commit options
func DefaultCommitOptions() *CommitOptions {
	return &CommitOptions{
		Author:     "Pandora Runtime",
		Email:      "runtime@pandora.local",
		AllowEmpty: false,
	}
}

// CommitFile commits a single file to the repository
func (r *Repository) CommitFile(filePath, message string) (string, error) {
	opts := DefaultCommitOptions()
	opts.Message = message
	return r.AddAndCommit([]string{filePath}, opts)
}

// AddAndCommit stages files and commits them, returning the new commit hash
func (r *Repository) AddAndCommit(files []string, opts *CommitOptions) (string, error) {
	if opts == nil {
		opts = DefaultCommitOptions()
	}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	for _, file := range files {
		relPath, err := filepath.Rel(r.Path, file)
		if err != nil || !filepath.IsAbs(file) {
			relPath = file
		}

		if _, err := worktree.Add(filepath.ToSlash(relPath)); err != nil {
			return "", fmt.Errorf("failed to add file %s: %w", relPath, err)
		}
	}

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() && !opts.AllowEmpty {
		return "", ErrNothingToCommit
	}

	hash, err := worktree.Commit(opts.Message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  opts.Author,
			Email: opts.Email,
			When:  time.Now(),
		},
		AllowEmptyCommits: opts.AllowEmpty,
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	return hash.String(), nil
}

// GetCommitHistory returns up to maxCount commits reachable from HEAD, newest first
func (r *Repository) GetCommitHistory(maxCount int) ([]*object.Commit, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	commitIter, err := r.repo.Log(&git.LogOptions{
		From: ref.Hash(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get commit log: %w", err)
	}
	defer commitIter.Close()

	var commits []*object.Commit
	err = commitIter.ForEach(func(c *object.Commit) error {
		if maxCount > 0 && len(commits) >= maxCount {
			return storer.ErrStop
		}
		commits = append(commits, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}

	return commits, nil
}

// GetLastCommit returns the most recent commit
func (r *Repository) GetLastCommit() (*object.Commit, error) {
	commits, err := r.GetCommitHistory(1)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("no commits found")
	}
	return commits[0], nil
}

// CommitMessageFormats provides standard commit message formats
type CommitMessageFormats struct{}

// InitialCommit returns a commit message for repository initialization
func (CommitMessageFormats) InitialCommit() string {
	return "init: Initialize Pandora snapshot repository"
}

// Recovered returns a commit message for snapshot files found uncommitted at startup
func (CommitMessageFormats) Recovered(files int) string {
	return fmt.Sprintf("snapshot(recovered): %d uncommitted snapshot files", files)
}

// Snapshot returns a commit message for a committed snapshot
func (CommitMessageFormats) Snapshot(snapshotID, trigger string, records int, cycle int64) string {
	return fmt.Sprintf("snapshot(%s): %s - %d lines at breath cycle %d", trigger, snapshotID, records, cycle)
}
