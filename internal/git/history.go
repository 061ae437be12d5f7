// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package git

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// CommitInfo represents information about a commit
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// GetFileHistory returns the commits touching filePath, newest first
func (r *Repository) GetFileHistory(filePath string, limit int) ([]CommitInfo, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	relPath := r.relative(filePath)
	commitIter, err := r.repo.Log(&git.LogOptions{
		From:       ref.Hash(),
		PathFilter: func(path string) bool { return path == relPath },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get commit log: %w", err)
	}
	defer commitIter.Close()

	var results []CommitInfo
	err = commitIter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(results) >= limit {
			return storer.ErrStop
		}
		results = append(results, CommitInfo{
			Hash:      c.Hash.String(),
			Message:   strings.TrimSpace(c.Message),
			Author:    c.Author.Name,
			Timestamp: c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}

	return results, nil
}

// GetFileAtRevision returns the content of a file at a specific revision
func (r *Repository) GetFileAtRevision(filePath string, ref string) ([]byte, error) {
	hash, err := r.resolveRef(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ref '%s': %w", ref, err)
	}

	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	file, err := tree.File(r.relative(filePath))
	if err != nil {
		return nil, fmt.Errorf("file not found at revision: %w", err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}

	return []byte(content), nil
}

// resolveRef resolves HEAD, HEAD~N, a branch or tag name, or a commit hash
func (r *Repository) resolveRef(ref string) (plumbing.Hash, error) {
	if ref == "" {
		ref = "HEAD"
	}

	if strings.HasPrefix(ref, "HEAD") {
		headRef, err := r.repo.Head()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if ref == "HEAD" {
			return headRef.Hash(), nil
		}

		var n int
		if _, err := fmt.Sscanf(strings.TrimPrefix(ref, "HEAD~"), "%d", &n); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("invalid ref format: %s", ref)
		}

		commit, err := r.repo.CommitObject(headRef.Hash())
		if err != nil {
			return plumbing.ZeroHash, err
		}
		for i := 0; i < n; i++ {
			parent, err := commit.Parent(0)
			if err != nil {
				return plumbing.ZeroHash, fmt.Errorf("cannot go back %d commits: %w", n, err)
			}
			commit = parent
		}
		return commit.Hash, nil
	}

	if len(ref) == 40 {
		hash := plumbing.NewHash(ref)
		if _, err := r.repo.CommitObject(hash); err == nil {
			return hash, nil
		}
	}

	for _, prefix := range []string{"refs/heads/", "refs/tags/"} {
		refObj, err := r.repo.Reference(plumbing.ReferenceName(prefix+ref), true)
		if err == nil {
			return refObj.Hash(), nil
		}
	}

	return plumbing.ZeroHash, fmt.Errorf("cannot resolve reference: %s", ref)
}

// relative converts an absolute path inside the repository to a slash-separated relative one
func (r *Repository) relative(path string) string {
	if filepath.IsAbs(path) {
		if rel, err := filepath.Rel(r.Path, path); err == nil {
			path = rel
		}
	}
	return filepath.ToSlash(path)
}
