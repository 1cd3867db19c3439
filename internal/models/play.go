// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package models

import "sort"

// PlayerResult is one player's line in a logged play.
type PlayerResult struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Win      bool   `json:"win"`
	Score    string `json:"score,omitempty"`
	Position string `json:"position,omitempty"`
	Color    string `json:"color,omitempty"`
	Rating   string `json:"rating,omitempty"`
	New      bool   `json:"new,omitempty"`
}

// DisplayName returns the name shown for a winner: the player name, falling
// back to the BGG username.
func (p PlayerResult) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Username
}

// Identity returns the name used in player lists: the BGG username,
// falling back to the player name.
func (p PlayerResult) Identity() string {
	if p.Username != "" {
		return p.Username
	}
	return p.Name
}

// Play is one normalized play record.
type Play struct {
	ID       int    `json:"id"`
	GameID   int    `json:"game_id"`
	GameName string `json:"game_name"`
	Date     string `json:"date"`
	Length   int    `json:"length"`
	Quantity int    `json:"quantity"`
	Location string `json:"location,omitempty"`

	Incomplete bool `json:"incomplete,omitempty"`
	NoWinStats bool `json:"nowinstats,omitempty"`

	// Comment has markup directives stripped.
	Comment string `json:"comment,omitempty"`

	Winners    []string       `json:"winners"`
	Players    []string       `json:"players"`
	Expansions []string       `json:"expansions"`
	Results    []PlayerResult `json:"results,omitempty"`

	// ImageURL is filled from game metadata when available.
	ImageURL string `json:"image_url,omitempty"`
}

// PlaySnapshot is the most recent play list for an account.
type PlaySnapshot struct {
	// Total is the total number of plays BGG reports for the user.
	Total int    `json:"total"`
	Plays []Play `json:"plays"`
}

// SortPlays orders plays newest first by date, then by play ID.
func SortPlays(plays []Play) {
	sort.SliceStable(plays, func(i, j int) bool {
		if plays[i].Date != plays[j].Date {
			return plays[i].Date > plays[j].Date
		}
		return plays[i].ID > plays[j].ID
	})
}

// Latest returns the most recent play, if any.
func (s PlaySnapshot) Latest() (Play, bool) {
	if len(s.Plays) == 0 {
		return Play{}, false
	}
	return s.Plays[0], true
}
