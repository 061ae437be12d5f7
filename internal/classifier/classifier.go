// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package classifier assigns semantic tags to memory line content.
//
// Classification is a pure function of the input text: a fixed, ordered list of
// keyword rules is matched case-insensitively on word boundaries, and the tags of
// every matching rule are returned in rule declaration order. Text that matches
// nothing yields an empty tag set.
package classifier

import (
	"regexp"

	"github.com/Qchains/gtelegram/internal/memory"
)

// Rule maps a keyword pattern to a tag
type Rule struct {
	Tag     memory.Tag
	Pattern *regexp.Regexp
}

// rules is the fixed rule set, in declaration order
var rules = []Rule{
	{
		Tag:     memory.TagAncestral,
		Pattern: regexp.MustCompile(`(?i)\b(ancest\w*|origins?|original|genesis|heritage|lineage|roots?|elders?|tradition\w*|legacy|breath\w*|awakening)\b`),
	},
	{
		Tag:     memory.TagEmotional,
		Pattern: regexp.MustCompile(`(?i)\b(emotion\w*|feel\w*|calm\w*|joy\w*|fear\w*|love\w*|anger|angry|sad\w*|grief|hope\w*|anxious|happy|peace\w*|trust)\b`),
	},
	{
		Tag:     memory.TagSymbolic,
		Pattern: regexp.MustCompile(`(?i)(\b(symbol\w*|signs?|myth\w*|archetyp\w*|dream\w*|mirror\w*|metaphor\w*|ritual\w*|sigil\w*|infinity|reflection|braid\w*)\b|∞)`),
	},
}

// Rules returns a copy of the rule set in declaration order
func Rules() []Rule {
	return append([]Rule{}, rules...)
}

// Classify returns the tags whose rules match text, in rule order
func Classify(text string) []memory.Tag {
	tags := make([]memory.Tag, 0, len(rules))
	if text == "" {
		return tags
	}
	for _, r := range rules {
		if r.Pattern.MatchString(text) {
			tags = append(tags, r.Tag)
		}
	}
	return tags
}

// ClassifyLine classifies a line's state together with its memory notes
func ClassifyLine(line *memory.MemoryLine) []memory.Tag {
	return Classify(line.Text())
}
