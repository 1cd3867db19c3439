// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package normalize

import (
	"regexp"
	"strings"
)

var (
	// [thing=123]Name[/thing] -> Name, also across lines
	attrTagRe = regexp.MustCompile(`(?s)\[\w+=[^\]]*\](.*?)\[/\w+\]`)
	// whatever is left: [b], [/b], [imageid=123 medium inline], unclosed [url=...]
	bareTagRe = regexp.MustCompile(`\[/?\w+(?:[=\s][^\[\]]*)?\]`)

	expansionRe = regexp.MustCompile(`\[thing=\d+\](.*?)\[/thing\]`)
)

const expansionsMarker = "Played with expansions"

// CleanText strips BGG markup from free text and trims surrounding space.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = attrTagRe.ReplaceAllString(s, "$1")
	s = bareTagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ExtractExpansions returns the names of expansions linked as
// [thing=N]Name[/thing] on the lines following the "Played with expansions"
// line of a play comment. It must run on the raw comment, before CleanText.
func ExtractExpansions(comment string) []string {
	if !strings.Contains(comment, expansionsMarker) {
		return nil
	}

	var out []string
	inExpansions := false
	for _, line := range strings.Split(comment, "\n") {
		if strings.Contains(line, expansionsMarker) {
			inExpansions = true
			continue
		}
		if !inExpansions {
			continue
		}
		for _, m := range expansionRe.FindAllStringSubmatch(line, -1) {
			out = append(out, m[1])
		}
	}
	return out
}
