// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package git

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repository wraps go-git repository operations
type Repository struct {
	Path string
	repo *git.Repository
}

// InitRepository initializes a new git repository
func InitRepository(path string) (*Repository, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}

	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize git repository: %w", err)
	}

	return &Repository{
		Path: path,
		repo: repo,
	}, nil
}

// OpenRepository opens an existing git repository
func OpenRepository(path string) (*Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	return &Repository{
		Path: path,
		repo: repo,
	}, nil
}

// OpenOrInitRepository opens the repository at path, initializing it when missing
func OpenOrInitRepository(path string) (*Repository, bool, error) {
	repo, err := git.PlainOpen(path)
	if err == nil {
		return &Repository{Path: path, repo: repo}, false, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, false, fmt.Errorf("failed to open git repository: %w", err)
	}

	r, err := InitRepository(path)
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// Status returns the status of the repository
func (r *Repository) Status() (git.Status, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	return status, nil
}

// IsClean returns true if the repository has no uncommitted changes
func (r *Repository) IsClean() (bool, error) {
	status, err := r.Status()
	if err != nil {
		return false, err
	}
	return status.IsClean(), nil
}

// PendingFiles returns absolute paths of new or modified files ending in ext, sorted
func (r *Repository) PendingFiles(ext string) ([]string, error) {
	status, err := r.Status()
	if err != nil {
		return nil, err
	}

	var files []string
	for path, st := range status {
		if filepath.Ext(path) != ext {
			continue
		}
		if st.Worktree == git.Untracked || st.Worktree == git.Modified ||
			st.Staging == git.Added || st.Staging == git.Modified {
			files = append(files, filepath.Join(r.Path, filepath.FromSlash(path)))
		}
	}
	sort.Strings(files)
	return files, nil
}

// HeadHash returns the hash HEAD points at, or "" for a repository without commits
func (r *Repository) HeadHash() (string, error) {
	ref, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// SetRemote points the origin remote at url, replacing an existing one
func (r *Repository) SetRemote(name, url string) error {
	if r.HasRemote(name) {
		if err := r.repo.DeleteRemote(name); err != nil {
			return fmt.Errorf("failed to replace remote: %w", err)
		}
	}

	_, err := r.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote: %w", err)
	}
	return nil
}

// HasRemote checks if a remote exists
func (r *Repository) HasRemote(name string) bool {
	_, err := r.repo.Remote(name)
	return err == nil
}
