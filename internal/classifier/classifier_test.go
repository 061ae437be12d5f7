// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package classifier

import (
	"testing"

	"github.com/Qchains/gtelegram/internal/memory"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []memory.Tag
	}{
		{"calm is emotional", "calm", []memory.Tag{memory.TagEmotional}},
		{"case insensitive", "GENESIS of the reel", []memory.Tag{memory.TagAncestral}},
		{"symbolic infinity sign", "hash ∞", []memory.Tag{memory.TagSymbolic}},
		{"all three in rule order", "a dream of ancestors brings joy", []memory.Tag{memory.TagAncestral, memory.TagEmotional, memory.TagSymbolic}},
		{"word boundaries", "sadly", []memory.Tag{memory.TagEmotional}},
		{"no partial word match", "designer roster", []memory.Tag{}},
		{"unmatched", "processing input", []memory.Tag{}},
		{"empty", "", []memory.Tag{}},
		{"breath cycle", "Cycle 4\nIntrospective traversal\nMemory braid sync", []memory.Tag{memory.TagSymbolic}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.text))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	inputs := []string{
		"calm",
		"the mirror remembers its origin",
		"nothing to see here",
		"love, fear, hope and a sigil",
	}

	for _, in := range inputs {
		first := Classify(in)
		for i := 0; i < 50; i++ {
			assert.Equal(t, first, Classify(in), in)
		}
	}
}

func TestClassify_NoDuplicates(t *testing.T) {
	tags := Classify("calm calm calm joy love")
	assert.Equal(t, []memory.Tag{memory.TagEmotional}, tags)
}

func TestClassifyLine(t *testing.T) {
	line := &memory.MemoryLine{
		Stage:    "breath",
		Identity: "Pandora Q Breath",
		State:    "active_cycle",
		Memory:   []string{"Cycle 1", "heritage recalled"},
	}

	// identity and stage are not classified, only state and memory
	assert.Equal(t, []memory.Tag{memory.TagAncestral}, ClassifyLine(line))
}

func TestRules_OrderMatchesVocabulary(t *testing.T) {
	rs := Rules()
	vocab := memory.Vocabulary()
	assert.Len(t, rs, len(vocab))
	for i, r := range rs {
		assert.Equal(t, vocab[i], r.Tag)
	}
}
