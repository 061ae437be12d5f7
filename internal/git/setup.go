// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package git

import (
	"fmt"
	"os"
	"path/filepath"
)

const gitignoreContent = "*.tmp\n*.db\n*.db-journal\n"

// SetupConfig holds configuration for snapshot repository setup
type SetupConfig struct {
	Path      string // Directory holding the snapshot files
	RemoteURL string // Optional: remote to push snapshots to
}

// SetupSnapshotRepository opens or creates the snapshot repository and makes sure
// it has an initial commit and the configured remote
func SetupSnapshotRepository(cfg *SetupConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("repository path is required")
	}

	repo, created, err := OpenOrInitRepository(cfg.Path)
	if err != nil {
		return nil, err
	}

	head, err := repo.HeadHash()
	if err != nil {
		return nil, err
	}
	if created || head == "" {
		ignore := filepath.Join(cfg.Path, ".gitignore")
		if err := os.WriteFile(ignore, []byte(gitignoreContent), 0644); err != nil {
			return nil, fmt.Errorf("failed to create .gitignore: %w", err)
		}

		msgFormat := CommitMessageFormats{}
		if _, err := repo.CommitFile(ignore, msgFormat.InitialCommit()); err != nil {
			return nil, fmt.Errorf("failed to create initial commit: %w", err)
		}
	}

	if cfg.RemoteURL != "" {
		if err := repo.SetRemote(RemoteName, cfg.RemoteURL); err != nil {
			return nil, err
		}
	}

	return repo, nil
}
