// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package entities

import (
	"fmt"
	"sort"

	"github.com/tomtom215/bggsync/internal/models"
)

// Options tune the desired entity set.
type Options struct {
	// RecentPlays is the number of recent plays listed on the plays sensor.
	RecentPlays int
}

// DefaultOptions returns the defaults used by the server.
func DefaultOptions() Options {
	return Options{RecentPlays: 5}
}

type countSensor struct {
	key  string
	name string
	icon string
	get  func(models.CollectionCounts) int
}

var countSensors = []countSensor{
	{KeyOwnedBoardGames, "Games Owned", "mdi:checkerboard", func(c models.CollectionCounts) int { return c.OwnedBoardGames }},
	{KeyOwnedExpansions, "Expansions Owned", "mdi:puzzle", func(c models.CollectionCounts) int { return c.OwnedExpansions }},
	{KeyWishlist, "Wishlist", "mdi:gift", func(c models.CollectionCounts) int { return c.Wishlist }},
	{KeyWantToPlay, "Want to Play", "mdi:chess-pawn", func(c models.CollectionCounts) int { return c.WantToPlay }},
	{KeyWantToBuy, "Want to Buy", "mdi:cart", func(c models.CollectionCounts) int { return c.WantToBuy }},
	{KeyForTrade, "For Trade", "mdi:swap-horizontal", func(c models.CollectionCounts) int { return c.ForTrade }},
	{KeyPreordered, "Preordered", "mdi:clock-outline", func(c models.CollectionCounts) int { return c.Preordered }},
}

// Desired computes every entity the account should expose for snap.
func Desired(snap *models.CoordinatorSnapshot, account models.TrackedAccount, opts Options) []Entity {
	stale := snap.Stale || snap.State == models.StateFailed
	var out []Entity

	out = append(out, playsSensor(snap, account.Username, stale, opts))

	if account.TrackCollection {
		counts := snap.Collection.Counts()
		collStale := stale || snap.CollectionStale
		out = append(out, AccountSensor{
			Account:   account.Username,
			Key:       KeyCollection,
			Name:      "Collection",
			Icon:      "mdi:library-shelves",
			Value:     counts.Owned,
			Attrs:     map[string]any{"total_entries": snap.Collection.Len()},
			Available: snap.Available,
			Stale:     collStale,
		})
		for _, cs := range countSensors {
			out = append(out, AccountSensor{
				Account:   account.Username,
				Key:       cs.key,
				Name:      cs.name,
				Icon:      cs.icon,
				Value:     cs.get(counts),
				Available: snap.Available,
				Stale:     collStale,
			})
		}
	}

	for _, id := range gameSensorIDs(snap, account) {
		meta, _ := snap.Game(id)
		g := GameSensor{
			Account:   account.Username,
			GameID:    id,
			PlayCount: snap.PlayCount(id),
			Metadata:  meta,
			Override:  account.Games[id],
			Stale:     stale,
		}
		if e, ok := snap.Collection.Find(id); ok {
			g.CollID = e.CollID
		}
		out = append(out, g)
	}

	if account.EnableShelfTodo {
		for _, e := range snap.Collection.Owned(models.SubTypeBoardGame) {
			meta, _ := snap.Game(e.GameID)
			name := meta.Name
			if name == "" {
				name = "Unknown Game"
			}
			out = append(out, TodoItem{
				Account: account.Username,
				GameID:  e.GameID,
				Summary: name,
				Details: shelfDescription(meta.GameStats),
				Picture: meta.Thumbnail,
				Stale:   stale || snap.CollectionStale,
			})
		}
	}
	return out
}

// gameSensorIDs returns tracked games plus, when the account imports its
// collection, every owned game.
func gameSensorIDs(snap *models.CoordinatorSnapshot, account models.TrackedAccount) []int {
	set := make(map[int]struct{}, len(account.Games))
	for id := range account.Games {
		set[id] = struct{}{}
	}
	if account.ImportCollection {
		for _, id := range snap.Collection.OwnedGameIDs() {
			set[id] = struct{}{}
		}
	}
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func playsSensor(snap *models.CoordinatorSnapshot, username string, stale bool, opts Options) AccountSensor {
	attrs := map[string]any{
		"last_sync": snap.LastSync,
		"state":     string(snap.State),
	}
	if snap.FailureReason != "" {
		attrs["failure_reason"] = snap.FailureReason
	}

	if last, ok := snap.Plays.Latest(); ok {
		attrs["last_play"] = map[string]any{
			"game":       last.GameName,
			"game_id":    last.GameID,
			"date":       last.Date,
			"comment":    last.Comment,
			"expansions": last.Expansions,
			"winners":    last.Winners,
			"players":    last.Players,
		}
		attrs["last_play_game"] = last.GameName
		attrs["last_play_date"] = last.Date
		attrs["winners"] = last.Winners
		attrs["players"] = last.Players
		attrs["expansions"] = last.Expansions
		attrs["comment"] = last.Comment
		if last.ImageURL != "" {
			attrs["last_play_image"] = last.ImageURL
		}
	}

	if n := opts.RecentPlays; n > 0 && len(snap.Plays.Plays) > 0 {
		if n > len(snap.Plays.Plays) {
			n = len(snap.Plays.Plays)
		}
		recent := make([]map[string]any, 0, n)
		for _, p := range snap.Plays.Plays[:n] {
			recent = append(recent, map[string]any{
				"id":      p.ID,
				"game":    p.GameName,
				"game_id": p.GameID,
				"date":    p.Date,
				"winners": p.Winners,
			})
		}
		attrs["recent_plays"] = recent
	}

	return AccountSensor{
		Account:   username,
		Key:       KeyPlays,
		Name:      "Plays",
		Icon:      "mdi:dice-multiple",
		Value:     snap.Plays.Total,
		Attrs:     attrs,
		Available: snap.Available,
		Stale:     stale,
	}
}

// shelfDescription formats "Rank: X | Rating: 7.5 | Players: a-b".
func shelfDescription(s models.GameStats) string {
	rating := "N/A"
	if s.Rating > 0 {
		rating = fmt.Sprintf("%.1f", s.Rating)
	}
	return fmt.Sprintf("Rank: %s | Rating: %s | Players: %s", s.RankOrDefault(), rating, s.PlayerRange())
}
