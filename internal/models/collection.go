// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package models

import (
	"sort"

	"github.com/goccy/go-json"
)

// Collection sub types as used by the BGG XML API.
const (
	SubTypeBoardGame = "boardgame"
	SubTypeExpansion = "boardgameexpansion"
)

// CollectionSubTypes lists the sub types fetched for a collection, in fetch order.
var CollectionSubTypes = []string{SubTypeBoardGame, SubTypeExpansion}

// CollectionStatus holds the ownership flags of a collection entry.
type CollectionStatus struct {
	Own        bool `json:"own"`
	Wishlist   bool `json:"wishlist"`
	WantToPlay bool `json:"want_to_play"`
	WantToBuy  bool `json:"want_to_buy"`
	ForTrade   bool `json:"for_trade"`
	Preordered bool `json:"preordered"`
}

// CollectionKey identifies one collection entry. BGG can list the same game
// under both sub types, so the game ID alone is not unique.
type CollectionKey struct {
	GameID  int    `json:"game_id"`
	SubType string `json:"sub_type"`
}

// CollectionEntry is one item of a user's collection.
type CollectionEntry struct {
	GameID    int              `json:"game_id"`
	SubType   string           `json:"sub_type"`
	CollID    int              `json:"coll_id"`
	Name      string           `json:"name"`
	Image     string           `json:"image,omitempty"`
	Thumbnail string           `json:"thumbnail,omitempty"`
	Year      string           `json:"year,omitempty"`
	NumPlays  int              `json:"num_plays"`
	Status    CollectionStatus `json:"status"`
	Stats     GameStats        `json:"stats"`
}

// Key returns the entry's collection key.
func (e CollectionEntry) Key() CollectionKey {
	return CollectionKey{GameID: e.GameID, SubType: e.SubType}
}

// CollectionCounts are the derived list-type counts exposed as account sensors.
type CollectionCounts struct {
	Owned           int `json:"owned"`
	OwnedBoardGames int `json:"owned_boardgames"`
	OwnedExpansions int `json:"owned_expansions"`
	Wishlist        int `json:"wishlist"`
	WantToPlay      int `json:"want_to_play"`
	WantToBuy       int `json:"want_to_buy"`
	ForTrade        int `json:"for_trade"`
	Preordered      int `json:"preordered"`
}

// CollectionSnapshot maps (game ID, sub type) to a collection entry.
// A nil Entries map means no collection data has been fetched.
type CollectionSnapshot struct {
	Entries map[CollectionKey]CollectionEntry `json:"-"`
}

// NewCollectionSnapshot builds a snapshot from a list of entries. When the
// same (game ID, sub type) pair appears more than once the last entry wins.
func NewCollectionSnapshot(entries []CollectionEntry) CollectionSnapshot {
	m := make(map[CollectionKey]CollectionEntry, len(entries))
	for _, e := range entries {
		m[e.Key()] = e
	}
	return CollectionSnapshot{Entries: m}
}

// Len returns the number of entries.
func (c CollectionSnapshot) Len() int {
	return len(c.Entries)
}

// Fetched reports whether collection data exists.
func (c CollectionSnapshot) Fetched() bool {
	return c.Entries != nil
}

// List returns entries sorted by name, then game ID, then sub type.
func (c CollectionSnapshot) List() []CollectionEntry {
	out := make([]CollectionEntry, 0, len(c.Entries))
	for _, e := range c.Entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if out[i].GameID != out[j].GameID {
			return out[i].GameID < out[j].GameID
		}
		return out[i].SubType < out[j].SubType
	})
	return out
}

// Owned returns owned entries of the given sub type, sorted like List.
// An empty subType matches every sub type.
func (c CollectionSnapshot) Owned(subType string) []CollectionEntry {
	var out []CollectionEntry
	for _, e := range c.List() {
		if !e.Status.Own {
			continue
		}
		if subType != "" && e.SubType != subType {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Find returns the first entry for a game ID, preferring the base game.
func (c CollectionSnapshot) Find(gameID int) (CollectionEntry, bool) {
	for _, st := range CollectionSubTypes {
		if e, ok := c.Entries[CollectionKey{GameID: gameID, SubType: st}]; ok {
			return e, true
		}
	}
	return CollectionEntry{}, false
}

// Counts derives the list-type counts.
func (c CollectionSnapshot) Counts() CollectionCounts {
	var n CollectionCounts
	for _, e := range c.Entries {
		s := e.Status
		if s.Own {
			n.Owned++
			if e.SubType == SubTypeExpansion {
				n.OwnedExpansions++
			} else {
				n.OwnedBoardGames++
			}
		}
		if s.Wishlist {
			n.Wishlist++
		}
		if s.WantToPlay {
			n.WantToPlay++
		}
		if s.WantToBuy {
			n.WantToBuy++
		}
		if s.ForTrade {
			n.ForTrade++
		}
		if s.Preordered {
			n.Preordered++
		}
	}
	return n
}

// OwnedGameIDs returns the distinct owned game IDs in ascending order.
func (c CollectionSnapshot) OwnedGameIDs() []int {
	seen := make(map[int]struct{})
	for _, e := range c.Entries {
		if e.Status.Own {
			seen[e.GameID] = struct{}{}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// MarshalJSON encodes the snapshot as a sorted entry list.
func (c CollectionSnapshot) MarshalJSON() ([]byte, error) {
	if c.Entries == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c.List())
}

// UnmarshalJSON decodes an entry list.
func (c *CollectionSnapshot) UnmarshalJSON(data []byte) error {
	var entries []CollectionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if entries == nil {
		c.Entries = nil
		return nil
	}
	*c = NewCollectionSnapshot(entries)
	return nil
}
