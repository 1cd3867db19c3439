// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
Package entities turns coordinator snapshots into host entities.

Three entity variants share the Entity interface:

  - AccountSensor: per-account values such as the total play count and the
    collection list counts
  - GameSensor: one per tracked game (plus the owned collection when the
    account imports it), with metadata attributes and user overrides
  - TodoItem: one shelf item per owned board game

Desired computes the full entity set for a snapshot. Diff compares it with
what the Registry currently holds and produces a Plan; the Reconciler applies
plans, creating before updating and removing, so existing entities never drop
out while new ones are added.

MemoryRegistry is the in-process host registry served by the HTTP API. Every
mutation is published as an entity.changed event, which the WebSocket hub
broadcasts to connected clients.
*/
package entities
