// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
Package sync refreshes tracked BoardGameGeek accounts on a schedule.

The Coordinator owns one worker goroutine per tracked account. Each worker
runs a refresh cycle at startup, on every tick of the configured interval and
whenever ForceRefresh is signalled. A cycle fetches, in order:

 1. the account's plays
 2. the collection for every sub type (boardgame, boardgameexpansion), when
    the account tracks its collection
 3. per-game play counts for tracked games absent from the collection
 4. metadata for relevant games missing from the metadata cache, in batches
    of at most 20 IDs

The result is an immutable models.CoordinatorSnapshot stored in an
atomic.Pointer and replaced wholesale. After every cycle the coordinator
persists the snapshot, publishes a snapshot.updated event and calls the
registered listeners.

Failure handling:

  - Collection "processing" responses (HTTP 202) are retried with exponential
    backoff inside the cycle. When the retry budget is exhausted the previous
    collection is kept and marked stale, and the cycle continues.
  - Authentication failures mark the account Failed with reason "auth"; the
    previous data is kept, marked stale and unavailable.
  - Transient failures (network, rate limiting, open circuit breaker) mark the
    account Failed with reason "network"; the next tick retries.
  - A parse failure drops only that endpoint's data for the cycle.
  - A panic inside one account's cycle is recovered and recorded as an
    internal failure without affecting other accounts.

Thread Safety:

Accounts refresh concurrently. Cycles of a single account are sequenced by a
per-worker mutex, so RefreshNow never overlaps a scheduled cycle.
*/
package sync
