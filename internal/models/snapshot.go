// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package models

import (
	"sort"
	"time"
)

// SyncState is the refresh state of one tracked account.
type SyncState string

// Refresh states. Every cycle starts from Idle and moves through Fetching to
// Ready or Failed before returning to Idle.
const (
	StateIdle     SyncState = "idle"
	StateFetching SyncState = "fetching"
	StateReady    SyncState = "ready"
	StateFailed   SyncState = "failed"
)

// Failure reasons recorded on a Failed snapshot.
const (
	FailureAuth     = "auth"
	FailureNetwork  = "network"
	FailureInternal = "internal"
)

// CoordinatorSnapshot is the per-account aggregate produced by one refresh
// cycle. Published snapshots are never mutated.
type CoordinatorSnapshot struct {
	Username string    `json:"username"`
	State    SyncState `json:"state"`

	// FailureReason is set when State is StateFailed.
	FailureReason string `json:"failure_reason,omitempty"`
	LastError     string `json:"last_error,omitempty"`

	Plays      PlaySnapshot       `json:"plays"`
	Collection CollectionSnapshot `json:"collection"`

	// Metadata holds the subset of cached game metadata relevant to this account.
	Metadata map[int]GameMetadata `json:"metadata"`

	// GamePlays holds per-game play counts for tracked games.
	GamePlays map[int]int `json:"game_plays"`

	// Available is false when the account's credentials were rejected.
	Available bool `json:"available"`

	// Stale marks data carried over from an earlier successful cycle.
	Stale bool `json:"stale"`

	// CollectionStale marks collection data that could not be refreshed this
	// cycle (processing pending past the retry budget, or a parse failure).
	CollectionStale bool `json:"collection_stale"`

	// LastSync is the time of the last successful cycle.
	LastSync  time.Time `json:"last_sync"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no maps with s. Slices inside plays and
// collection entries are never mutated after publication and are shared.
func (s *CoordinatorSnapshot) Clone() CoordinatorSnapshot {
	c := *s
	c.Metadata = make(map[int]GameMetadata, len(s.Metadata))
	for id, m := range s.Metadata {
		c.Metadata[id] = m
	}
	c.GamePlays = make(map[int]int, len(s.GamePlays))
	for id, n := range s.GamePlays {
		c.GamePlays[id] = n
	}
	if s.Collection.Entries != nil {
		entries := make(map[CollectionKey]CollectionEntry, len(s.Collection.Entries))
		for k, e := range s.Collection.Entries {
			entries[k] = e
		}
		c.Collection = CollectionSnapshot{Entries: entries}
	}
	return c
}

// PlayCount returns the play count for a game: the per-game count when known,
// else the collection's numplays, else zero.
func (s *CoordinatorSnapshot) PlayCount(gameID int) int {
	if n, ok := s.GamePlays[gameID]; ok {
		return n
	}
	if e, ok := s.Collection.Find(gameID); ok {
		return e.NumPlays
	}
	return 0
}

// Game returns metadata for a game, falling back to collection data.
func (s *CoordinatorSnapshot) Game(gameID int) (GameMetadata, bool) {
	if m, ok := s.Metadata[gameID]; ok {
		if e, found := s.Collection.Find(gameID); found {
			return m.Merge(MetadataFromCollection(e)), true
		}
		return m, true
	}
	if e, ok := s.Collection.Find(gameID); ok {
		return MetadataFromCollection(e), true
	}
	return GameMetadata{}, false
}

// MetadataIDs returns the IDs present in Metadata in ascending order.
func (s *CoordinatorSnapshot) MetadataIDs() []int {
	ids := make([]int, 0, len(s.Metadata))
	for id := range s.Metadata {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
