// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package store holds the canonical, insertion-ordered set of memory lines.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/Qchains/gtelegram/internal/errs"
	"github.com/Qchains/gtelegram/internal/memory"
	"go.uber.org/zap"
)

const (
	// DefaultListLimit is used when a caller does not ask for a limit
	DefaultListLimit = 50
	// DefaultMaxListLimit caps how many lines a single List call may return
	DefaultMaxListLimit = 500
)

// Mirror receives every appended line for write-through persistence
type Mirror interface {
	SaveLine(ctx context.Context, line memory.MemoryLine) error
}

// Options configures a Store
type Options struct {
	// Retention is the maximum number of retained lines; 0 means unbounded
	Retention int
	// MaxListLimit caps List results; 0 means DefaultMaxListLimit
	MaxListLimit int
	// Mirror is optional
	Mirror Mirror
	// OnMirrorFailure is called after a failed mirror write
	OnMirrorFailure func(err error)
	// Classify retags a line after AddNote changes its content; nil keeps the tags
	Classify func(line *memory.MemoryLine) []memory.Tag
	Logger   *zap.Logger
	// Now is the clock; tests replace it
	Now func() time.Time
}

// View is a consistent copy of the store taken under a single read lock
type View struct {
	Lines       []memory.MemoryLine
	BreathCycle int64
	NextID      uint64
}

// Store is the in-memory record store. All methods are safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	lines     []memory.MemoryLine
	nextID    uint64
	cycle     int64
	lastStamp time.Time
	evicted   uint64

	retention     int
	maxListLimit  int
	mirror        Mirror
	mirrorFailure func(err error)
	classify      func(line *memory.MemoryLine) []memory.Tag
	logger        *zap.Logger
	now           func() time.Time
}

// New creates an empty store
func New(opts Options) *Store {
	if opts.MaxListLimit <= 0 {
		opts.MaxListLimit = DefaultMaxListLimit
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Store{
		nextID:        1,
		retention:     opts.Retention,
		maxListLimit:  opts.MaxListLimit,
		mirror:        opts.Mirror,
		mirrorFailure: opts.OnMirrorFailure,
		classify:      opts.Classify,
		logger:        opts.Logger,
		now:           opts.Now,
	}
}

// Append stores line at the tail and returns the stored copy.
// Id, timestamp, breath cycle and hash are assigned here; caller values are ignored.
func (s *Store) Append(line memory.MemoryLine) memory.MemoryLine {
	stored := s.append(line)
	s.mirrorLine(stored)
	return stored
}

// mirrorLine writes line through to the mirror. Best effort; the in-memory store stays canonical.
func (s *Store) mirrorLine(line memory.MemoryLine) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.SaveLine(context.Background(), line.Clone()); err != nil {
		s.logger.Warn("failed to mirror memory line",
			zap.Uint64("id", line.ID),
			zap.Error(err))
		if s.mirrorFailure != nil {
			s.mirrorFailure(err)
		}
	}
}

func (s *Store) append(line memory.MemoryLine) memory.MemoryLine {
	line = line.Clone()
	if line.Memory == nil {
		line.Memory = []string{}
	}
	if line.SemanticTags == nil {
		line.SemanticTags = []memory.Tag{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if now.Before(s.lastStamp) {
		now = s.lastStamp
	}
	s.lastStamp = now

	line.ID = s.nextID
	s.nextID++
	line.Timestamp = now
	line.BreathCycle = s.cycle
	line.Hash = line.ContentHash()

	s.lines = append(s.lines, line)
	if s.retention > 0 && len(s.lines) > s.retention {
		drop := len(s.lines) - s.retention
		// copy so the evicted lines are released
		s.lines = append([]memory.MemoryLine{}, s.lines[drop:]...)
		s.evicted += uint64(drop)
	}

	return line.Clone()
}

// AddNote appends a note to a retained line's memory.
// Tags and hash are recomputed so they keep describing the line's content.
func (s *Store) AddNote(id uint64, note string) (memory.MemoryLine, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return memory.MemoryLine{}, errs.NotFound("memory line %d is not retained", id)
	}
	l := &s.lines[idx]
	l.Memory = append(l.Memory, note)
	if s.classify != nil {
		l.SemanticTags = mergeTags(s.classify(l), l.SemanticTags)
	}
	l.Hash = l.ContentHash()
	updated := l.Clone()
	s.mu.Unlock()

	s.mirrorLine(updated)
	return updated, nil
}

// List returns up to limit lines starting at offset.
// With reverse the walk starts from the newest line. An out-of-range offset yields an empty slice.
func (s *Store) List(limit, offset int, reverse bool) []memory.MemoryLine {
	limit = s.clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.lines)
	if offset >= n {
		return []memory.MemoryLine{}
	}

	end := offset + limit
	if end > n {
		end = n
	}

	out := make([]memory.MemoryLine, 0, end-offset)
	for i := offset; i < end; i++ {
		idx := i
		if reverse {
			idx = n - 1 - i
		}
		out = append(out, s.lines[idx].Clone())
	}
	return out
}

// Tail returns the newest n lines in canonical order
func (s *Store) Tail(n int) []memory.MemoryLine {
	n = s.clampLimit(n)

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.lines) - n
	if start < 0 {
		start = 0
	}

	out := make([]memory.MemoryLine, 0, len(s.lines)-start)
	for _, l := range s.lines[start:] {
		out = append(out, l.Clone())
	}
	return out
}

// Get returns a retained line by id
func (s *Store) Get(id uint64) (memory.MemoryLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return memory.MemoryLine{}, errs.NotFound("memory line %d is not retained", id)
	}
	return s.lines[idx].Clone(), nil
}

// Last returns the newest line, if any
func (s *Store) Last() (memory.MemoryLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.lines) == 0 {
		return memory.MemoryLine{}, false
	}
	return s.lines[len(s.lines)-1].Clone(), true
}

// Count returns the number of retained lines
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// Evicted returns how many lines retention has dropped
func (s *Store) Evicted() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evicted
}

// Cycle returns the current breath cycle counter
func (s *Store) Cycle() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycle
}

// AdvanceCycle increments the breath cycle counter and returns the new value
func (s *Store) AdvanceCycle() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycle++
	return s.cycle
}

// View returns a consistent copy of every retained line and the counters
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]memory.MemoryLine, len(s.lines))
	for i, l := range s.lines {
		lines[i] = l.Clone()
	}
	return View{Lines: lines, BreathCycle: s.cycle, NextID: s.nextID}
}

// Restore replaces the store contents with a previously captured view.
// Ids keep increasing past the highest restored id.
func (s *Store) Restore(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]memory.MemoryLine, 0, len(v.Lines))
	next := v.NextID
	var last time.Time
	for _, l := range v.Lines {
		c := l.Clone()
		if c.Memory == nil {
			c.Memory = []string{}
		}
		if c.SemanticTags == nil {
			c.SemanticTags = []memory.Tag{}
		}
		if c.ID >= next {
			next = c.ID + 1
		}
		if c.Timestamp.After(last) {
			last = c.Timestamp
		}
		lines = append(lines, c)
	}
	if s.retention > 0 && len(lines) > s.retention {
		lines = lines[len(lines)-s.retention:]
	}
	if next < 1 {
		next = 1
	}
	if next < s.nextID {
		next = s.nextID
	}

	s.lines = lines
	s.nextID = next
	if v.BreathCycle > s.cycle {
		s.cycle = v.BreathCycle
	}
	if last.After(s.lastStamp) {
		s.lastStamp = last
	}
}

// mergeTags returns tags followed by any of existing it does not already hold
func mergeTags(tags, existing []memory.Tag) []memory.Tag {
	out := append([]memory.Tag{}, tags...)
	for _, t := range existing {
		held := false
		for _, o := range out {
			if o == t {
				held = true
				break
			}
		}
		if !held {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > s.maxListLimit {
		limit = s.maxListLimit
	}
	return limit
}

// indexOf finds id by binary search; ids are strictly increasing in canonical order.
// Caller holds the lock.
func (s *Store) indexOf(id uint64) int {
	lo, hi := 0, len(s.lines)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case s.lines[mid].ID == id:
			return mid
		case s.lines[mid].ID < id:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1
}
