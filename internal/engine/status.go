// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package engine

import (
	"fmt"

	"github.com/Qchains/gtelegram/internal/memory"
)

// Runtime states reported by Status
const (
	StateActive   = "active"
	StateInactive = "inactive"
)

// ContextWindowUsage is the content volume of the retained lines against the configured window
type ContextWindowUsage struct {
	Used     int    `json:"used"`
	Capacity int    `json:"capacity"`
	Display  string `json:"display"`
}

// Status is the read-only runtime summary
type Status struct {
	RuntimeState         string             `json:"runtime_state"`
	BreathCycle          int64              `json:"breath_cycle"`
	MemoryLineCount      int                `json:"memory_line_count"`
	ContextWindowUsage   ContextWindowUsage `json:"context_window_usage"`
	SemanticDistribution map[memory.Tag]int `json:"semantic_distribution"`
	LastCheckpoint       string             `json:"last_checkpoint"`
	CollectorBufferSize  int                `json:"collector_buffer_size"`
}

// Status summarizes the runtime from a single consistent view of the store
func (e *Engine) Status() Status {
	view := e.store.View()

	dist := make(map[memory.Tag]int, len(memory.Vocabulary())+1)
	for _, tag := range memory.Vocabulary() {
		dist[tag] = 0
	}
	dist[memory.TagOther] = 0

	used := 0
	for i := range view.Lines {
		l := &view.Lines[i]
		used += l.ContentSize()

		tagged := false
		for _, tag := range memory.Vocabulary() {
			if l.HasTag(tag) {
				dist[tag]++
				tagged = true
			}
		}
		if !tagged {
			dist[memory.TagOther]++
		}
	}

	checkpoint := "none"
	if n := len(view.Lines); n > 0 {
		checkpoint = view.Lines[n-1].Stage
	}

	state := StateInactive
	if e.IsRunning() {
		state = StateActive
	}

	capacity := e.cfg.Runtime.ContextWindow
	return Status{
		RuntimeState:    state,
		BreathCycle:     view.BreathCycle,
		MemoryLineCount: len(view.Lines),
		ContextWindowUsage: ContextWindowUsage{
			Used:     used,
			Capacity: capacity,
			Display:  fmt.Sprintf("%d/%d", used, capacity),
		},
		SemanticDistribution: dist,
		LastCheckpoint:       checkpoint,
		CollectorBufferSize:  e.buffer.Len(),
	}
}
