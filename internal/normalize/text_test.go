// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package normalize

import (
	"reflect"
	"testing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"  padded  ", "padded"},
		{"[b]Bold[/b] move", "Bold move"},
		{"Played [thing=13]Catan[/thing] again", "Played Catan again"},
		{"[user=bob]Bob[/user] won with [i]style[/i]", "Bob won with style"},
		{"[url=https://x.example/a?b=c]link[/url]", "link"},
		{"[thing=1]A[/thing] and [thing=2]B[/thing]", "A and B"},
		{"Score [10] points", "Score  points"},
		{"no [closing", "no [closing"},
		{"[url=http://x]a\nb[/url]", "a\nb"},
		{"see [imageid=123 medium inline] here", "see  here"},
		{"[url=http://x]dangling", "dangling"},
		{"[b]open\nacross[/b]", "open\nacross"},
		{"[thing=13]Catan\n[/thing] [size=12]big[/size]", "Catan\n big"},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanText_Idempotent(t *testing.T) {
	for _, s := range []string{
		"[b]Bold[/b] and [thing=13]Catan[/thing]",
		"Played with expansions:\n[thing=325]Seafarers[/thing]",
		"  nothing to strip  ",
		"[url=http://x]a\nb[/url] [imageid=1 small]",
	} {
		once := CleanText(s)
		if twice := CleanText(once); twice != once {
			t.Errorf("CleanText not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func TestCleanText_NoDirectiveSyntaxLeft(t *testing.T) {
	for _, s := range []string{
		"[url=http://x]a\nb[/url]",
		"[imageid=123 medium inline]",
		"[color=#FF0000][b]red[/b][/color] and [q=\"bob\"]quote\nmore[/q]",
		"Played with expansions:\n[thing=325]Seafarers[/thing]\n[thing=926]C&K[/thing]",
	} {
		got := CleanText(s)
		if bareTagRe.MatchString(got) || attrTagRe.MatchString(got) {
			t.Errorf("CleanText(%q) = %q still contains markup", s, got)
		}
	}
}

func TestExtractExpansions(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"no marker", "[thing=325]Seafarers[/thing]", nil},
		{"marker only", "Played with expansions", nil},
		{
			"lines after marker",
			"Fun night\nPlayed with expansions:\n[thing=325]Seafarers[/thing]\n[thing=926]Cities & Knights[/thing], [thing=1]Extra[/thing]",
			[]string{"Seafarers", "Cities & Knights", "Extra"},
		},
		{
			"links before marker ignored",
			"Base [thing=13]Catan[/thing]\nPlayed with expansions\n[thing=325]Seafarers[/thing]",
			[]string{"Seafarers"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractExpansions(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
