// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// controlRegex matches control characters other than tab and newline
var controlRegex = regexp.MustCompile(`[\x00-\x08\x0B-\x1F\x7F]`)

// SanitizeText trims surrounding whitespace and removes control characters
func SanitizeText(s string) string {
	s = strings.TrimSpace(s)
	return controlRegex.ReplaceAllString(s, "")
}

// Truncate shortens s to at most n runes, appending "..." when it was cut
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
