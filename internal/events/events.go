// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

// Package events carries in-process notifications between the refresh
// coordinator, the entity reconciler, the play recorder and WebSocket
// clients over a Watermill gochannel pub/sub.
package events

import (
	"time"

	"github.com/tomtom215/bggsync/internal/models"
)

// Topics.
const (
	TopicSnapshotUpdated = "snapshot.updated"
	TopicAccountRemoved  = "account.removed"
	TopicEntityChanged   = "entity.changed"
	TopicPlayRecorded    = "play.recorded"
)

// SnapshotUpdated is published after every refresh cycle.
type SnapshotUpdated struct {
	Username      string           `json:"username"`
	State         models.SyncState `json:"state"`
	FailureReason string           `json:"failure_reason,omitempty"`
	Stale         bool             `json:"stale"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// AccountRemoved is published when an account stops being tracked.
type AccountRemoved struct {
	Username string `json:"username"`
}

// Entity operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpRemove = "remove"
)

// EntityChanged is published for every registry mutation.
type EntityChanged struct {
	Operation string         `json:"operation"`
	Kind      string         `json:"kind"`
	UniqueID  string         `json:"unique_id"`
	Username  string         `json:"username"`
	Name      string         `json:"name,omitempty"`
	State     string         `json:"state,omitempty"`
	Available bool           `json:"available"`
	Attrs     map[string]any `json:"attributes,omitempty"`
}

// PlayRecorded is published after BGG accepted a play.
type PlayRecorded struct {
	Username string    `json:"username"`
	GameID   int       `json:"game_id"`
	PlayID   int       `json:"play_id,omitempty"`
	Date     string    `json:"date"`
	Winners  []string  `json:"winners,omitempty"`
	At       time.Time `json:"at"`
}
