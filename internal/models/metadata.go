// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package models

import (
	"fmt"
	"time"
)

// NotRanked is the rank reported when BGG has no board game rank.
const NotRanked = "Not Ranked"

// GameStats are the statistics BGG attaches to both collection items and
// thing records. Numeric fields that BGG omits stay zero.
type GameStats struct {
	Rank        string  `json:"rank"`
	Weight      float64 `json:"weight"`
	Rating      float64 `json:"rating"`
	BayesRating float64 `json:"bayes_rating"`
	UsersRated  int     `json:"users_rated"`
	OwnedBy     int     `json:"owned_by"`
	StdDev      float64 `json:"stddev"`
	Median      float64 `json:"median"`
	MinPlayers  int     `json:"min_players"`
	MaxPlayers  int     `json:"max_players"`
	PlayingTime int     `json:"playing_time"`
	MinPlaytime int     `json:"min_playtime"`
	MaxPlaytime int     `json:"max_playtime"`
}

// RankOrDefault returns Rank, or NotRanked when empty.
func (s GameStats) RankOrDefault() string {
	if s.Rank == "" {
		return NotRanked
	}
	return s.Rank
}

// PlayerRange formats the player bounds as "min-max".
func (s GameStats) PlayerRange() string {
	return fmt.Sprintf("%d-%d", s.MinPlayers, s.MaxPlayers)
}

// GameMetadata holds descriptive attributes for one BGG game.
type GameMetadata struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	SubType   string `json:"sub_type"`
	Year      string `json:"year,omitempty"`
	Image     string `json:"image,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	GameStats

	FetchedAt time.Time `json:"fetched_at"`
}

// URL returns the public BGG page for the game.
func (m GameMetadata) URL() string {
	return GameURL(m.ID)
}

// GameURL returns the public BGG page for a game ID.
func GameURL(id int) string {
	return fmt.Sprintf("https://boardgamegeek.com/boardgame/%d", id)
}

// Merge returns m with empty name and image falling back to prev.
func (m GameMetadata) Merge(prev GameMetadata) GameMetadata {
	if m.Name == "" {
		m.Name = prev.Name
	}
	if m.Image == "" {
		m.Image = prev.Image
	}
	if m.Thumbnail == "" {
		m.Thumbnail = prev.Thumbnail
	}
	return m
}

// MetadataFromCollection derives metadata from a collection entry, used when
// no thing record has been fetched yet.
func MetadataFromCollection(e CollectionEntry) GameMetadata {
	return GameMetadata{
		ID:        e.GameID,
		Name:      e.Name,
		SubType:   e.SubType,
		Year:      e.Year,
		Image:     e.Image,
		Thumbnail: e.Thumbnail,
		GameStats: e.Stats,
	}
}
