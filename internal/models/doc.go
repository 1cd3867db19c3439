// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
Package models defines the data structures shared across BGG Sync.

Model Categories:

1. Account Models:
  - TrackedAccount: one BGG username under management with its tracked games
  - GameOverride: per-game nfc_tag, music and custom_image overrides

2. Snapshot Models (normalized upstream data):
  - PlaySnapshot: most recent plays, newest first
  - CollectionSnapshot: collection entries keyed by (game ID, sub type)
  - GameMetadata: descriptive "thing" attributes for one game
  - CoordinatorSnapshot: immutable per-account aggregate handed to dependents

3. Action Models:
  - PlayRecordRequest: a play to submit to BGG
  - PlayAck: acknowledgement returned by the play submission endpoint

Snapshots are treated as immutable once published. Code that needs to
change one builds a new value (see CoordinatorSnapshot.Clone) instead of
mutating shared maps or slices.
*/
package models
