// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package entities

import (
	"fmt"
	"strconv"

	"github.com/tomtom215/bggsync/internal/models"
)

// Kind tags an entity variant.
type Kind string

// Entity kinds.
const (
	KindAccountSensor Kind = "account_sensor"
	KindGameSensor    Kind = "game_sensor"
	KindTodoItem      Kind = "todo_item"
)

// Kinds lists every entity kind.
var Kinds = []Kind{KindAccountSensor, KindGameSensor, KindTodoItem}

// Description is the host-facing state of an entity.
type Description struct {
	Name       string         `json:"name"`
	State      string         `json:"state"`
	Icon       string         `json:"icon,omitempty"`
	Picture    string         `json:"picture,omitempty"`
	Available  bool           `json:"available"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Entity is implemented by every variant.
type Entity interface {
	Kind() Kind
	UniqueID() string
	Username() string
	Describe() Description
}

// Account sensor keys. The unique ID is "{username}_{key}".
const (
	KeyPlays           = "plays"
	KeyCollection      = "collection"
	KeyOwnedBoardGames = "owned_boardgames"
	KeyOwnedExpansions = "owned_expansions"
	KeyWishlist        = "wishlist"
	KeyWantToPlay      = "want_to_play"
	KeyWantToBuy       = "want_to_buy"
	KeyForTrade        = "for_trade"
	KeyPreordered      = "preordered"
)

// AccountSensor is a per-account numeric sensor.
type AccountSensor struct {
	Account   string
	Key       string
	Name      string
	Icon      string
	Value     int
	Attrs     map[string]any
	Available bool
	Stale     bool
}

// Kind implements Entity.
func (s AccountSensor) Kind() Kind { return KindAccountSensor }

// UniqueID implements Entity.
func (s AccountSensor) UniqueID() string { return s.Account + "_" + s.Key }

// Username implements Entity.
func (s AccountSensor) Username() string { return s.Account }

// Describe implements Entity.
func (s AccountSensor) Describe() Description {
	attrs := make(map[string]any, len(s.Attrs)+1)
	for k, v := range s.Attrs {
		attrs[k] = v
	}
	if s.Stale {
		attrs["stale"] = true
	}
	return Description{
		Name:       fmt.Sprintf("%s %s", s.Account, s.Name),
		State:      strconv.Itoa(s.Value),
		Icon:       s.Icon,
		Available:  s.Available,
		Attributes: attrs,
	}
}

// GameSensor reports the play count of one game.
type GameSensor struct {
	Account   string
	GameID    int
	PlayCount int
	Metadata  models.GameMetadata
	CollID    int
	Override  models.GameOverride
	Stale     bool
}

// Kind implements Entity.
func (g GameSensor) Kind() Kind { return KindGameSensor }

// UniqueID implements Entity.
func (g GameSensor) UniqueID() string { return fmt.Sprintf("%s_game_%d", g.Account, g.GameID) }

// Username implements Entity.
func (g GameSensor) Username() string { return g.Account }

// Describe implements Entity. Overrides are applied after metadata.
func (g GameSensor) Describe() Description {
	m := g.Metadata
	name := m.Name
	if name == "" {
		name = fmt.Sprintf("BGG Game %d", g.GameID)
	}

	attrs := map[string]any{
		"bgg_id":       g.GameID,
		"bgg_url":      models.GameURL(g.GameID),
		"rank":         m.RankOrDefault(),
		"year":         m.Year,
		"weight":       m.Weight,
		"playing_time": m.PlayingTime,
		"min_playtime": m.MinPlaytime,
		"max_playtime": m.MaxPlaytime,
		"rating":       m.Rating,
		"bayes_rating": m.BayesRating,
		"min_players":  m.MinPlayers,
		"max_players":  m.MaxPlayers,
		"users_rated":  m.UsersRated,
		"owned_by":     m.OwnedBy,
		"sub_type":     m.SubType,
		"stddev":       m.StdDev,
		"median":       m.Median,
	}
	if g.CollID != 0 {
		attrs["coll_id"] = g.CollID
	}
	if g.Stale {
		attrs["stale"] = true
	}

	picture := m.Image
	if g.Override.CustomImage != "" {
		picture = g.Override.CustomImage
	}
	if g.Override.NFCTag != "" {
		attrs["nfc_tag"] = g.Override.NFCTag
	}
	if g.Override.Music != "" {
		attrs["music"] = g.Override.Music
	}

	return Description{
		Name:       name,
		State:      strconv.Itoa(g.PlayCount),
		Icon:       "mdi:dice-multiple",
		Picture:    picture,
		Available:  true,
		Attributes: attrs,
	}
}

// TodoStatus is the completion state of a shelf item.
type TodoStatus string

// To-do statuses. Shelf items are always published as NeedsAction.
const (
	TodoNeedsAction TodoStatus = "needs_action"
	TodoCompleted   TodoStatus = "completed"
)

// TodoItem is one owned board game on the account's shelf list.
type TodoItem struct {
	Account string
	GameID  int
	Summary string
	Details string
	Picture string
	Stale   bool
}

// Kind implements Entity.
func (t TodoItem) Kind() Kind { return KindTodoItem }

// UniqueID implements Entity.
func (t TodoItem) UniqueID() string { return fmt.Sprintf("%s_shelf/%d", t.Account, t.GameID) }

// Username implements Entity.
func (t TodoItem) Username() string { return t.Account }

// Describe implements Entity.
func (t TodoItem) Describe() Description {
	attrs := map[string]any{
		"bgg_id":      t.GameID,
		"description": t.Details,
		"list":        t.Account + "_shelf",
	}
	if t.Stale {
		attrs["stale"] = true
	}
	return Description{
		Name:       t.Summary,
		State:      string(TodoNeedsAction),
		Icon:       "mdi:bookshelf",
		Picture:    t.Picture,
		Available:  true,
		Attributes: attrs,
	}
}
