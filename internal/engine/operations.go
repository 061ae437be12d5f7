// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/Qchains/gtelegram/internal/classifier"
	"github.com/Qchains/gtelegram/internal/collector"
	"github.com/Qchains/gtelegram/internal/errs"
	"github.com/Qchains/gtelegram/internal/memory"
	"go.uber.org/zap"
)

// maxTraversalResults bounds the buffered items returned by an introspection
const maxTraversalResults = 10

// Query actions
const (
	ActionIntrospect = "introspect"
	ActionStatus     = "status"
)

// IntrospectionResult is returned by Introspect
type IntrospectionResult struct {
	Query          string                   `json:"query"`
	TraversalItems int                      `json:"traversal_items"`
	MemoryLineID   uint64                   `json:"memory_line_id"`
	BreathCycle    int64                    `json:"breath_cycle"`
	Line           memory.MemoryLine        `json:"line"`
	Results        []map[string]interface{} `json:"results"`
}

// ChainStep is one entry of a promise chain's then or this list
type ChainStep map[string]interface{}

// PromiseResult is returned by PromiseChain
type PromiseResult struct {
	Then  []ChainStep            `json:"then"`
	This  []ChainStep            `json:"this"`
	Final map[string]interface{} `json:"final"`
	Line  memory.MemoryLine      `json:"line"`
}

// Ingest routes a raw item through the collector buffer
func (e *Engine) Ingest(ctx context.Context, item memory.RawItem, mode memory.Mode) (memory.MemoryLine, error) {
	if err := e.writable(); err != nil {
		return memory.MemoryLine{}, err
	}
	line, err := e.buffer.Ingest(ctx, item, mode)
	if err != nil {
		return memory.MemoryLine{}, err
	}
	e.metrics.SetStoreState(e.store.Count(), e.store.Cycle())
	return line, nil
}

// Introspect records an introspective traversal over the collector buffer
func (e *Engine) Introspect(ctx context.Context, query string) (*IntrospectionResult, error) {
	traversed := e.buffer.Len()
	results := e.buffer.RecentItems(maxTraversalResults)

	line, err := e.Ingest(ctx, memory.RawItem{Payload: map[string]interface{}{
		"state": "traversal_active",
		"query": query,
		"memory": []interface{}{
			"Query: " + query,
			fmt.Sprintf("Traversed %d items", traversed),
			"Marshmallow logic applied",
		},
	}}, memory.ModeIntrospect)
	if err != nil {
		return nil, err
	}

	e.logger.Info("introspective traversal",
		zap.String("query", memory.Truncate(query, 80)),
		zap.Int("traversal_items", traversed),
		zap.Uint64("line_id", line.ID))

	return &IntrospectionResult{
		Query:          query,
		TraversalItems: traversed,
		MemoryLineID:   line.ID,
		BreathCycle:    line.BreathCycle,
		Line:           line,
		Results:        results,
	}, nil
}

// PromiseChain applies one then/this transformation step to data
func (e *Engine) PromiseChain(ctx context.Context, data map[string]interface{}, chainType string) (*PromiseResult, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	if chainType == "" {
		chainType = "then_this"
	}

	line, err := e.Ingest(ctx, memory.RawItem{Payload: data}, memory.ModePromiseChain)
	if err != nil {
		return nil, err
	}

	lines := e.store.Count()
	result := &PromiseResult{
		Then: []ChainStep{
			{"action": "process_input", "result": "data collected"},
			{"action": "apply_qchain", "result": "chain resolved"},
			{"action": "braid_memory", "result": "memory braided"},
			{"action": "commit_state", "result": "state committed"},
		},
		This: []ChainStep{
			{"commit": fmt.Sprintf("breath_cycle = %d", line.BreathCycle), "memory": fmt.Sprintf("runtime %d lines", lines)},
			{"commit": "semantic_braid", "memory": joinTags(line.SemanticTags)},
			{"loopback": "promise → this → then → this", "reconciled": true},
		},
		Final: map[string]interface{}{
			"resolution":     "this.then().then(this).resolve()",
			"chain_type":     chainType,
			"hash":           line.Hash,
			"status":         "fulfilled",
			"runtime":        "persistent",
			"memory_line_id": line.ID,
		},
		Line: line,
	}

	e.logger.Info("promise chain resolved",
		zap.String("chain_type", chainType),
		zap.Uint64("line_id", line.ID))

	return result, nil
}

// MemoryQuery selects a page of memory lines
type MemoryQuery struct {
	Limit int
	// Offset is only used when HasOffset is set; otherwise the newest Limit lines are returned
	Offset    int
	HasOffset bool
	// Reverse overrides the collector's reverse_order when set
	Reverse *bool
}

// MemoryPage is a page of memory lines
type MemoryPage struct {
	TotalMemoryLines int                 `json:"total_memory_lines"`
	ReturnedLines    int                 `json:"returned_lines"`
	MemoryLines      []memory.MemoryLine `json:"memory_lines"`
}

// Memory returns a page of memory lines. Lines come newest first when reverse_order
// is configured, unless the query says otherwise.
func (e *Engine) Memory(q MemoryQuery) MemoryPage {
	reverse := e.buffer.Config().ReverseOrder
	if q.Reverse != nil {
		reverse = *q.Reverse
	}

	var lines []memory.MemoryLine
	if q.HasOffset {
		lines = e.store.List(q.Limit, q.Offset, reverse)
	} else {
		lines = e.store.Tail(q.Limit)
		if reverse {
			for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
				lines[i], lines[j] = lines[j], lines[i]
			}
		}
	}
	return MemoryPage{
		TotalMemoryLines: e.store.Count(),
		ReturnedLines:    len(lines),
		MemoryLines:      lines,
	}
}

// Line returns a retained memory line by id
func (e *Engine) Line(id uint64) (memory.MemoryLine, error) {
	return e.store.Get(id)
}

// AddNote appends a sub-note to a retained memory line
func (e *Engine) AddNote(id uint64, note string) (memory.MemoryLine, error) {
	if err := e.writable(); err != nil {
		return memory.MemoryLine{}, err
	}
	note = memory.SanitizeText(strings.TrimSpace(note))
	if note == "" {
		return memory.MemoryLine{}, errs.Validation("note is required").WithField("note", "is required")
	}
	return e.store.AddNote(id, note)
}

// CollectorStatus describes the collector buffer
type CollectorStatus struct {
	CollectorClass string                   `json:"collector_class"`
	BufferSize     int                      `json:"buffer_size"`
	ItemsBuffered  int                      `json:"items_buffered"`
	StrictMode     bool                     `json:"strict_mode"`
	CommentStrip   bool                     `json:"comment_strip"`
	ReverseOrder   bool                     `json:"reverse_order"`
	RecentItems    []map[string]interface{} `json:"recent_items"`
}

// recentCollectorItems is how many items the collector status shows
const recentCollectorItems = 5

// Collector returns the collector buffer status
func (e *Engine) Collector() CollectorStatus {
	cfg := e.buffer.Config()
	return CollectorStatus{
		CollectorClass: collector.Name,
		BufferSize:     cfg.BufferSize,
		ItemsBuffered:  e.buffer.Len(),
		StrictMode:     cfg.StrictMode,
		CommentStrip:   cfg.CommentStrip,
		ReverseOrder:   cfg.ReverseOrder,
		RecentItems:    e.buffer.RecentItems(recentCollectorItems),
	}
}

// CollectorItems returns copies of the last depth buffered items, oldest first.
// depth <= 0 returns every item.
func (e *Engine) CollectorItems(depth int) []map[string]interface{} {
	if depth <= 0 {
		depth = -1
	}
	return e.buffer.Rewind(depth, nil)
}

// ReconfigureCollector validates and applies a new collector configuration
func (e *Engine) ReconfigureCollector(cfg collector.Config) (CollectorStatus, error) {
	if err := e.writable(); err != nil {
		return CollectorStatus{}, err
	}
	if err := e.buffer.Reconfigure(cfg); err != nil {
		return CollectorStatus{}, err
	}
	return e.Collector(), nil
}

func classifierTags(line *memory.MemoryLine) []memory.Tag {
	return classifier.ClassifyLine(line)
}

func joinTags(tags []memory.Tag) string {
	if len(tags) == 0 {
		return "untagged"
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, "-")
}
