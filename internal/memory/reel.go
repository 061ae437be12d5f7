// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReelStage is one entry of the memory reel used to seed an empty store
type ReelStage struct {
	Stage    string   `json:"stage" yaml:"stage"`
	State    string   `json:"state" yaml:"state"`
	Identity string   `json:"identity" yaml:"identity"`
	Memory   []string `json:"memory" yaml:"memory"`
}

// ToLine converts the stage into an unsaved memory line
func (s ReelStage) ToLine() MemoryLine {
	return MemoryLine{
		Stage:    s.Stage,
		State:    s.State,
		Identity: s.Identity,
		Memory:   append([]string{}, s.Memory...),
	}
}

// LoadReel reads the memory reel JSON file. A missing file yields an empty reel.
func LoadReel(path string) ([]ReelStage, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read memory reel: %w", err)
	}

	var reel []ReelStage
	if err := json.Unmarshal(data, &reel); err != nil {
		return nil, fmt.Errorf("failed to parse memory reel: %w", err)
	}

	return reel, nil
}

// LoadThenConfig reads the this-then.yaml runtime document. A missing file yields an empty document.
func LoadThenConfig(path string) (map[string]interface{}, error) {
	doc := map[string]interface{}{}
	if path == "" {
		return doc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read this-then config: %w", err)
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse this-then config: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	return doc, nil
}
