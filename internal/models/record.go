// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package models

// PlayDateLayout is the calendar date format BGG expects for play dates.
const PlayDateLayout = "2006-01-02"

// PlayerEntry is one player in a play submission.
type PlayerEntry struct {
	Name     string `json:"name" validate:"required_without=Username,max=100"`
	Username string `json:"username,omitempty" validate:"max=64"`
	Win      bool   `json:"win,omitempty"`
	Score    string `json:"score,omitempty" validate:"max=32"`
	Position string `json:"position,omitempty" validate:"max=32"`
	Color    string `json:"color,omitempty" validate:"max=64"`
	Rating   string `json:"rating,omitempty" validate:"max=16"`
}

// PlayRecordRequest is a play to be written to BGG.
type PlayRecordRequest struct {
	Username string `json:"username" validate:"required"`
	GameID   int    `json:"game_id" validate:"required,gt=0"`

	// Date is YYYY-MM-DD. Empty means the caller's local calendar date.
	Date       string        `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Length     int           `json:"length,omitempty" validate:"gte=0,lte=10000"`
	Comments   string        `json:"comments,omitempty" validate:"max=10000"`
	Location   string        `json:"location,omitempty" validate:"max=255"`
	Incomplete bool          `json:"incomplete,omitempty"`
	NoWinStats bool          `json:"nowinstats,omitempty"`
	Players    []PlayerEntry `json:"players,omitempty" validate:"omitempty,max=50,dive"`
}

// Winners returns the display names of players flagged as winners, in
// player order.
func (r *PlayRecordRequest) Winners() []string {
	var out []string
	for _, p := range r.Players {
		if !p.Win {
			continue
		}
		if p.Name != "" {
			out = append(out, p.Name)
		} else {
			out = append(out, p.Username)
		}
	}
	return out
}

// PlayAck is the acknowledgement BGG returns after saving a play.
type PlayAck struct {
	PlayID   int    `json:"play_id,omitempty"`
	NumPlays int    `json:"num_plays,omitempty"`
	Message  string `json:"message,omitempty"`
}
