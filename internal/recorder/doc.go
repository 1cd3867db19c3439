// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
Package recorder writes new plays to BoardGameGeek.

A Record call runs in this order:

 1. Struct validation of the request (validator/v10 tags).
 2. Account checks: the account must exist, have play logging enabled and
    carry a password. These fail with *ConfigError before any network I/O.
 3. Date defaulting: an empty date becomes the local calendar date in the
    configured time zone, not the UTC date.
 4. Game resolution: the game must be known from the account snapshot, its
    tracked games or the metadata cache, or be fetchable from BGG.
 5. Submission through the BoundaryWorker. The cookie-based login and the
    geekplay form post run on one dedicated goroutine; Record hands the call
    over a channel and waits on a Future.
 6. On success the account gets an out-of-cycle refresh and a play.recorded
    event is published.

Errors are classified with Classify into validation, config, auth, network
and submit kinds. Network failures are transient and worth retrying.
*/
package recorder
