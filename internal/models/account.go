// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package models

import (
	"sort"
	"time"
)

// GameOverride holds user-supplied attributes for a tracked game.
// Overrides are applied after fetched metadata, so they always win.
type GameOverride struct {
	NFCTag      string `json:"nfc_tag,omitempty"`
	Music       string `json:"music,omitempty"`
	CustomImage string `json:"custom_image,omitempty"`
}

// IsZero reports whether no override field is set.
func (o GameOverride) IsZero() bool {
	return o.NFCTag == "" && o.Music == "" && o.CustomImage == ""
}

// TrackedAccount is one BGG username under active synchronization.
//
// Token and Password are plaintext in memory; the account store encrypts
// them at rest.
type TrackedAccount struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Token    string `json:"token,omitempty"`
	Password string `json:"password,omitempty"`

	TrackCollection  bool `json:"track_collection"`
	LogPlays         bool `json:"log_plays"`
	ImportCollection bool `json:"import_collection"`
	EnableShelfTodo  bool `json:"enable_shelf_todo"`

	// Games maps explicitly tracked BGG game IDs to their overrides.
	Games map[int]GameOverride `json:"games,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTrackedAccount returns an account with the default option set.
func NewTrackedAccount(username string) TrackedAccount {
	now := time.Now().UTC()
	return TrackedAccount{
		Username:        username,
		TrackCollection: true,
		EnableShelfTodo: true,
		Games:           map[int]GameOverride{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// TrackedGameIDs returns the explicitly tracked game IDs in ascending order.
func (a *TrackedAccount) TrackedGameIDs() []int {
	ids := make([]int, 0, len(a.Games))
	for id := range a.Games {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CanLogPlays reports whether the account is configured for writing plays.
func (a *TrackedAccount) CanLogPlays() bool {
	return a.LogPlays && a.Password != ""
}

// UpsertGame adds or replaces the override for a tracked game and reports
// whether the game was newly tracked.
func (a *TrackedAccount) UpsertGame(id int, override GameOverride) bool {
	if a.Games == nil {
		a.Games = map[int]GameOverride{}
	}
	_, existed := a.Games[id]
	a.Games[id] = override
	a.UpdatedAt = time.Now().UTC()
	return !existed
}

// Clone returns a deep copy of the account.
func (a *TrackedAccount) Clone() TrackedAccount {
	c := *a
	c.Games = make(map[int]GameOverride, len(a.Games))
	for id, o := range a.Games {
		c.Games[id] = o
	}
	return c
}
