// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reel.json")
	content := `[
		{"stage": "genesis", "state": "origin", "identity": "Pandora", "memory": ["first breath"]},
		{"stage": "awakening", "state": "calm", "identity": "Flo"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	reel, err := LoadReel(path)
	require.NoError(t, err)
	require.Len(t, reel, 2)

	line := reel[0].ToLine()
	assert.Equal(t, "genesis", line.Stage)
	assert.Equal(t, "origin", line.State)
	assert.Equal(t, []string{"first breath"}, line.Memory)
	assert.Empty(t, reel[1].Memory)
}

func TestLoadReel_Missing(t *testing.T) {
	reel, err := LoadReel(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, reel)
}

func TestLoadReel_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reel.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadReel(path)
	assert.Error(t, err)
}

func TestLoadThenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "this-then.yaml")
	content := `
runtime:
  mode: 5o
  sync_root: Pandora Q
chain:
  - promise
  - this
  - then
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	doc, err := LoadThenConfig(path)
	require.NoError(t, err)

	runtime, ok := doc["runtime"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Pandora Q", runtime["sync_root"])
	assert.Len(t, doc["chain"], 3)
}

func TestLoadThenConfig_MissingAndEmpty(t *testing.T) {
	doc, err := LoadThenConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, doc)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	doc, err = LoadThenConfig(path)
	require.NoError(t, err)
	assert.NotNil(t, doc)
}
