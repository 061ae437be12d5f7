// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// RemoteName is the remote snapshots are pushed to
const RemoteName = "origin"

// Push pushes commits to the origin remote. An empty token pushes without authentication.
func (r *Repository) Push(token string) error {
	if !r.HasRemote(RemoteName) {
		return fmt.Errorf("remote %s is not configured", RemoteName)
	}

	opts := &git.PushOptions{RemoteName: RemoteName}
	if token != "" {
		opts.Auth = &http.BasicAuth{
			Username: "git", // Can be anything except empty string
			Password: token,
		}
	}

	err := r.repo.Push(opts)
	if err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil
		}
		return fmt.Errorf("failed to push: %w", err)
	}

	return nil
}
