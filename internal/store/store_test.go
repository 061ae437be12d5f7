// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Qchains/gtelegram/internal/errs"
	"github.com/Qchains/gtelegram/internal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(state string) memory.MemoryLine {
	return memory.MemoryLine{Stage: "test", Identity: "tester", State: state}
}

func TestAppend_AssignsIncreasingIDs(t *testing.T) {
	s := New(Options{})

	var prev uint64
	for i := 0; i < 20; i++ {
		got := s.Append(line("calm"))
		assert.Greater(t, got.ID, prev)
		prev = got.ID
	}
	assert.Equal(t, 20, s.Count())
}

func TestAppend_IgnoresCallerIDAndStampsFields(t *testing.T) {
	s := New(Options{})
	s.AdvanceCycle()
	s.AdvanceCycle()

	in := line("calm")
	in.ID = 999
	in.BreathCycle = 42
	got := s.Append(in)

	assert.Equal(t, uint64(1), got.ID)
	assert.Equal(t, int64(2), got.BreathCycle)
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, got.ContentHash(), got.Hash)
	assert.NotNil(t, got.Memory)
	assert.NotNil(t, got.SemanticTags)
}

func TestAppend_ConcurrentIDsDistinct(t *testing.T) {
	s := New(Options{Retention: 50})

	const workers = 8
	const perWorker = 100
	ids := make(chan uint64, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ids <- s.Append(line("x")).ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, 50, s.Count())
	assert.Equal(t, uint64(workers*perWorker-50), s.Evicted())

	// retained lines are the newest ones, in increasing id order
	view := s.View()
	for i := 1; i < len(view.Lines); i++ {
		assert.Greater(t, view.Lines[i].ID, view.Lines[i-1].ID)
	}
}

func TestAppend_TimestampsNonDecreasing(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	stamps := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	s := New(Options{Now: func() time.Time {
		ts := stamps[i]
		i++
		return ts
	}})

	a := s.Append(line("a"))
	b := s.Append(line("b"))
	c := s.Append(line("c"))

	assert.Equal(t, base, a.Timestamp)
	assert.Equal(t, base, b.Timestamp, "clock going backwards is clamped")
	assert.Equal(t, base.Add(time.Second), c.Timestamp)
}

func TestAppend_RetentionNeverReusesIDs(t *testing.T) {
	s := New(Options{Retention: 2})

	s.Append(line("a"))
	s.Append(line("b"))
	c := s.Append(line("c"))

	assert.Equal(t, 2, s.Count())
	assert.Equal(t, uint64(3), c.ID)

	_, err := s.Get(1)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	d := s.Append(line("d"))
	assert.Equal(t, uint64(4), d.ID)
}

func TestList(t *testing.T) {
	s := New(Options{})
	for _, st := range []string{"a", "b", "c", "d", "e"} {
		s.Append(line(st))
	}

	states := func(lines []memory.MemoryLine) []string {
		out := make([]string, 0, len(lines))
		for _, l := range lines {
			out = append(out, l.State)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, states(s.List(0, 0, false)))
	assert.Equal(t, []string{"b", "c"}, states(s.List(2, 1, false)))
	assert.Equal(t, []string{"e", "d"}, states(s.List(2, 0, true)))
	assert.Equal(t, []string{"d", "c", "b"}, states(s.List(3, 1, true)))
	assert.Equal(t, []string{"e"}, states(s.List(10, 4, false)))
}

func TestList_OffsetOutOfRange(t *testing.T) {
	s := New(Options{})
	for i := 0; i < 5; i++ {
		s.Append(line("x"))
	}

	got := s.List(20, 1000, false)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, s.List(20, 5, true))
}

func TestList_LimitIsCapped(t *testing.T) {
	s := New(Options{MaxListLimit: 3})
	for i := 0; i < 10; i++ {
		s.Append(line("x"))
	}

	assert.Len(t, s.List(100, 0, false), 3)
	assert.Len(t, s.Tail(100), 3)
}

func TestTail(t *testing.T) {
	s := New(Options{})
	assert.Empty(t, s.Tail(5))

	for _, st := range []string{"a", "b", "c"} {
		s.Append(line(st))
	}

	tail := s.Tail(2)
	require.Len(t, tail, 2)
	assert.Equal(t, "b", tail[0].State)
	assert.Equal(t, "c", tail[1].State)
	assert.Len(t, s.Tail(10), 3)
}

func TestList_ReturnsCopies(t *testing.T) {
	s := New(Options{})
	s.Append(memory.MemoryLine{State: "calm", Memory: []string{"note"}})

	got := s.List(1, 0, false)
	got[0].Memory[0] = "mutated"

	again, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "note", again.Memory[0])
}

func TestAddNote(t *testing.T) {
	s := New(Options{})
	l := s.Append(line("calm"))

	updated, err := s.AddNote(l.ID, "second thought")
	require.NoError(t, err)
	assert.Equal(t, []string{"second thought"}, updated.Memory)

	_, err = s.AddNote(99, "nope")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestAddNote_RecomputesHashAndTags(t *testing.T) {
	s := New(Options{Classify: func(l *memory.MemoryLine) []memory.Tag {
		for _, m := range l.Memory {
			if m == "grief" {
				return []memory.Tag{memory.TagEmotional}
			}
		}
		return nil
	}})

	in := line("calm")
	in.SemanticTags = []memory.Tag{memory.TagAncestral}
	l := s.Append(in)
	before := l.Hash

	updated, err := s.AddNote(l.ID, "grief")
	require.NoError(t, err)
	assert.Equal(t, updated.ContentHash(), updated.Hash)
	assert.NotEqual(t, before, updated.Hash)
	assert.Equal(t, []memory.Tag{memory.TagEmotional, memory.TagAncestral}, updated.SemanticTags)

	stored, err := s.Get(l.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestAddNote_NoClassifierKeepsTags(t *testing.T) {
	s := New(Options{})
	in := line("calm")
	in.SemanticTags = []memory.Tag{memory.TagSymbolic}
	l := s.Append(in)

	updated, err := s.AddNote(l.ID, "grief")
	require.NoError(t, err)
	assert.Equal(t, []memory.Tag{memory.TagSymbolic}, updated.SemanticTags)
	assert.Equal(t, updated.ContentHash(), updated.Hash)
}

func TestCycle(t *testing.T) {
	s := New(Options{})
	a := s.Append(line("a"))
	assert.Equal(t, int64(1), s.AdvanceCycle())
	b := s.Append(line("b"))
	assert.Equal(t, int64(2), s.AdvanceCycle())

	assert.Equal(t, int64(0), a.BreathCycle)
	assert.Equal(t, int64(1), b.BreathCycle)
	assert.Equal(t, int64(2), s.Cycle())
}

func TestLast(t *testing.T) {
	s := New(Options{})
	_, ok := s.Last()
	assert.False(t, ok)

	s.Append(line("a"))
	s.Append(line("b"))
	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, "b", last.State)
}

func TestViewAndRestore(t *testing.T) {
	src := New(Options{})
	src.AdvanceCycle()
	src.Append(line("a"))
	src.Append(line("b"))
	src.AdvanceCycle()
	view := src.View()

	dst := New(Options{})
	dst.Restore(view)

	assert.Equal(t, 2, dst.Count())
	assert.Equal(t, int64(2), dst.Cycle())

	next := dst.Append(line("c"))
	assert.Equal(t, uint64(3), next.ID, "ids continue after the restored ones")
	assert.False(t, next.Timestamp.Before(view.Lines[1].Timestamp))
}

func TestRestore_RespectsRetention(t *testing.T) {
	src := New(Options{})
	for i := 0; i < 5; i++ {
		src.Append(line("x"))
	}

	dst := New(Options{Retention: 2})
	dst.Restore(src.View())

	assert.Equal(t, 2, dst.Count())
	next := dst.Append(line("y"))
	assert.Equal(t, uint64(6), next.ID)
}

type recordingMirror struct {
	mu    sync.Mutex
	lines []memory.MemoryLine
	err   error
}

func (m *recordingMirror) SaveLine(_ context.Context, l memory.MemoryLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, l)
	return m.err
}

func TestAppend_Mirror(t *testing.T) {
	mirror := &recordingMirror{}
	var failures int
	s := New(Options{Mirror: mirror, OnMirrorFailure: func(error) { failures++ }})

	got := s.Append(line("calm"))
	require.Len(t, mirror.lines, 1)
	assert.Equal(t, got.ID, mirror.lines[0].ID)

	// mirror failures do not fail the append
	mirror.err = errors.New("db down")
	s.Append(line("still stored"))
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, 1, failures)
}

func TestAddNote_Mirrored(t *testing.T) {
	mirror := &recordingMirror{}
	s := New(Options{Mirror: mirror})

	l := s.Append(line("calm"))
	_, err := s.AddNote(l.ID, "later")
	require.NoError(t, err)

	require.Len(t, mirror.lines, 2)
	assert.Equal(t, []string{"later"}, mirror.lines[1].Memory)
}
