// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLine_Clone(t *testing.T) {
	line := MemoryLine{
		ID:           1,
		State:        "calm",
		Memory:       []string{"a"},
		SemanticTags: []Tag{TagEmotional},
	}

	c := line.Clone()
	c.Memory[0] = "changed"
	c.SemanticTags[0] = TagSymbolic

	assert.Equal(t, "a", line.Memory[0])
	assert.Equal(t, TagEmotional, line.SemanticTags[0])
}

func TestMemoryLine_ContentHash(t *testing.T) {
	a := MemoryLine{Stage: "s", Identity: "i", State: "calm", Memory: []string{"x", "y"}}
	b := MemoryLine{ID: 9, Stage: "s", Identity: "i", State: "calm", Memory: []string{"x", "y"}}
	c := MemoryLine{Stage: "s", Identity: "i", State: "calm", Memory: []string{"xy"}}

	assert.Equal(t, a.ContentHash(), b.ContentHash())
	assert.NotEqual(t, a.ContentHash(), c.ContentHash())
	assert.Len(t, a.ContentHash(), 64)
}

func TestMemoryLine_ContentSizeAndText(t *testing.T) {
	line := MemoryLine{Stage: "ab", Identity: "c", State: "de", Memory: []string{"f", "gh"}}

	assert.Equal(t, 8, line.ContentSize())
	assert.Equal(t, "de\nf\ngh", line.Text())
}

func TestVocabulary(t *testing.T) {
	assert.Equal(t, []Tag{TagAncestral, TagEmotional, TagSymbolic}, Vocabulary())
	assert.True(t, InVocabulary(TagSymbolic))
	assert.False(t, InVocabulary(TagOther))
	assert.False(t, InVocabulary(Tag("cosmic")))
}

func TestMode_Valid(t *testing.T) {
	assert.True(t, ModeIntrospect.Valid())
	assert.True(t, ModePromiseChain.Valid())
	assert.False(t, Mode("status").Valid())
}
