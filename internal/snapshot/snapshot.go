// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package snapshot serializes the record store to durable storage.
//
// Each commit writes a self-contained JSON document named after its ULID and
// rewrites latest.json next to it. When git is enabled both files are committed
// to a repository in the snapshot directory, and when a catalog is configured
// the metadata is recorded in the database as well.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Qchains/gtelegram/internal/memory"
	"github.com/Qchains/gtelegram/internal/store"
)

// LatestFile is the fixed name of the newest snapshot
const LatestFile = "latest.json"

// Triggers record why a snapshot was taken
const (
	TriggerManual   = "manual"
	TriggerCycle    = "cycle"
	TriggerShutdown = "shutdown"
)

// Meta describes a committed snapshot
type Meta struct {
	SnapshotID  string    `json:"snapshot_id"`
	Timestamp   time.Time `json:"timestamp"`
	Trigger     string    `json:"trigger"`
	BreathCycle int64     `json:"breath_cycle"`
	RecordCount int       `json:"record_count"`
	ContentHash string    `json:"content_hash"`
	Path        string    `json:"path"`
	CommitHash  string    `json:"commit_hash,omitempty"`
}

// Document is the on-disk snapshot format
type Document struct {
	SnapshotID      string                   `json:"snapshot_id"`
	Timestamp       time.Time                `json:"timestamp"`
	Trigger         string                   `json:"trigger"`
	BreathCycle     int64                    `json:"breath_cycle"`
	RecordCount     int                      `json:"record_count"`
	NextID          uint64                   `json:"next_id"`
	ContentHash     string                   `json:"content_hash"`
	SemanticState   map[memory.Tag]int       `json:"semantic_state"`
	CollectorBuffer []map[string]interface{} `json:"collector_buffer"`
	MemoryLines     json.RawMessage          `json:"memory_lines"`
}

// Lines decodes the memory line section
func (d *Document) Lines() ([]memory.MemoryLine, error) {
	var lines []memory.MemoryLine
	if len(d.MemoryLines) == 0 {
		return []memory.MemoryLine{}, nil
	}
	if err := json.Unmarshal(d.MemoryLines, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode memory lines: %w", err)
	}
	return lines, nil
}

// View converts the document back into a store view
func (d *Document) View() (store.View, error) {
	lines, err := d.Lines()
	if err != nil {
		return store.View{}, err
	}
	return store.View{Lines: lines, BreathCycle: d.BreathCycle, NextID: d.NextID}, nil
}

// Meta returns the document's metadata
func (d *Document) Meta(path string) Meta {
	return Meta{
		SnapshotID:  d.SnapshotID,
		Timestamp:   d.Timestamp,
		Trigger:     d.Trigger,
		BreathCycle: d.BreathCycle,
		RecordCount: d.RecordCount,
		ContentHash: d.ContentHash,
		Path:        path,
	}
}

// encodeLines marshals the record section; the output depends only on the lines
func encodeLines(lines []memory.MemoryLine) (json.RawMessage, string, error) {
	if lines == nil {
		lines = []memory.MemoryLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(raw)
	return raw, hex.EncodeToString(sum[:]), nil
}

func semanticState(lines []memory.MemoryLine) map[memory.Tag]int {
	state := make(map[memory.Tag]int, len(memory.Vocabulary()))
	for _, tag := range memory.Vocabulary() {
		state[tag] = 0
	}
	for i := range lines {
		for _, tag := range memory.Vocabulary() {
			if lines[i].HasTag(tag) {
				state[tag]++
			}
		}
	}
	return state
}
