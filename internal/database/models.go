// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"time"

	"github.com/Qchains/gtelegram/internal/memory"
)

// MemoryLineRecord mirrors a memory line appended to the store
type MemoryLineRecord struct {
	ID           uint64       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Timestamp    time.Time    `gorm:"index;not null" json:"timestamp"`
	Stage        string       `gorm:"index;size:256;not null" json:"stage"`
	State        string       `gorm:"type:text" json:"state"`
	Identity     string       `gorm:"size:256" json:"identity"`
	Memory       []string     `gorm:"serializer:json;type:text" json:"memory"`
	SemanticTags []memory.Tag `gorm:"serializer:json;type:text" json:"semantic_tags"`
	Hash         string       `gorm:"size:64" json:"hash_value"`
	BreathCycle  int64        `gorm:"index;not null" json:"breath_cycle"`
	CreatedAt    time.Time    `json:"created_at"`
}

// TableName specifies the table name for MemoryLineRecord
func (MemoryLineRecord) TableName() string {
	return "pandora_memory_lines"
}

// NewMemoryLineRecord converts a stored line into its row
func NewMemoryLineRecord(line memory.MemoryLine) *MemoryLineRecord {
	return &MemoryLineRecord{
		ID:           line.ID,
		Timestamp:    line.Timestamp,
		Stage:        line.Stage,
		State:        line.State,
		Identity:     line.Identity,
		Memory:       append([]string{}, line.Memory...),
		SemanticTags: append([]memory.Tag{}, line.SemanticTags...),
		Hash:         line.Hash,
		BreathCycle:  line.BreathCycle,
	}
}

// Line converts the row back into a memory line
func (r *MemoryLineRecord) Line() memory.MemoryLine {
	line := memory.MemoryLine{
		ID:           r.ID,
		Timestamp:    r.Timestamp.UTC(),
		Stage:        r.Stage,
		State:        r.State,
		Identity:     r.Identity,
		Memory:       append([]string{}, r.Memory...),
		SemanticTags: append([]memory.Tag{}, r.SemanticTags...),
		Hash:         r.Hash,
		BreathCycle:  r.BreathCycle,
	}
	return line
}

// SnapshotRecord catalogs a committed snapshot file
type SnapshotRecord struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	SnapshotID  string    `gorm:"uniqueIndex;size:26;not null" json:"snapshot_id"`
	Timestamp   time.Time `gorm:"index;not null" json:"timestamp"`
	BreathCycle int64     `gorm:"not null" json:"breath_cycle"`
	RecordCount int       `gorm:"not null" json:"record_count"`
	ContentHash string    `gorm:"size:64;not null" json:"content_hash"`
	Path        string    `gorm:"not null" json:"path"`
	CommitHash  string    `gorm:"size:40" json:"commit_hash,omitempty"`
	Trigger     string    `gorm:"column:snapshot_trigger;size:16;not null" json:"trigger"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for SnapshotRecord
func (SnapshotRecord) TableName() string {
	return "pandora_snapshots"
}
