// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Tag is a semantic classification label
type Tag string

// Tag vocabulary, in rule declaration order
const (
	TagAncestral Tag = "ancestral"
	TagEmotional Tag = "emotional"
	TagSymbolic  Tag = "symbolic"

	// TagOther is the distribution bucket for lines without a vocabulary tag
	TagOther Tag = "other"
)

// Vocabulary returns the fixed tag vocabulary in declaration order
func Vocabulary() []Tag {
	return []Tag{TagAncestral, TagEmotional, TagSymbolic}
}

// InVocabulary reports whether tag belongs to the fixed vocabulary
func InVocabulary(tag Tag) bool {
	for _, v := range Vocabulary() {
		if v == tag {
			return true
		}
	}
	return false
}

// Checkpoints are the named milestones of the runtime reel
var Checkpoints = []string{"genesis", "awakening", "reflection", "5.0", "5.1"}

// Mode selects how the collector treats an ingested item
type Mode string

const (
	// ModeIntrospect derives a record from an introspective query
	ModeIntrospect Mode = "introspect"
	// ModePromiseChain applies a single transformation step to a structured payload
	ModePromiseChain Mode = "promise_chain"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeIntrospect || m == ModePromiseChain
}

// Stage labels used by the runtime itself
const (
	StageIntrospection = "introspection"
	StagePromiseChain  = "promise_chain"
	StageBreath        = "breath"
)

// MemoryLine is a single retained record in the memory store
type MemoryLine struct {
	ID           uint64    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Stage        string    `json:"stage"`
	State        string    `json:"state"`
	Identity     string    `json:"identity"`
	Memory       []string  `json:"memory"`
	SemanticTags []Tag     `json:"semantic_tags"`
	Hash         string    `json:"hash_value"`
	BreathCycle  int64     `json:"breath_cycle"`
}

// Clone returns a deep copy so callers never share slices with the store
func (l MemoryLine) Clone() MemoryLine {
	c := l
	c.Memory = append([]string{}, l.Memory...)
	c.SemanticTags = append([]Tag{}, l.SemanticTags...)
	return c
}

// HasTag reports whether the line carries tag
func (l *MemoryLine) HasTag(tag Tag) bool {
	for _, t := range l.SemanticTags {
		if t == tag {
			return true
		}
	}
	return false
}

// ContentSize is the number of content bytes the line contributes to the context window
func (l *MemoryLine) ContentSize() int {
	n := len(l.Stage) + len(l.Identity) + len(l.State)
	for _, m := range l.Memory {
		n += len(m)
	}
	return n
}

// ContentHash returns the SHA-256 of the line's content fields
func (l *MemoryLine) ContentHash() string {
	h := sha256.New()
	for _, part := range []string{l.Stage, l.Identity, l.State} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write([]byte(strings.Join(l.Memory, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}

// Text is the content the classifier looks at: state plus every memory note
func (l *MemoryLine) Text() string {
	parts := make([]string, 0, len(l.Memory)+1)
	parts = append(parts, l.State)
	parts = append(parts, l.Memory...)
	return strings.Join(parts, "\n")
}

// RawItem is an item submitted to the collector, either as text or as a decoded payload
type RawItem struct {
	Text    string                 `json:"text,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}
