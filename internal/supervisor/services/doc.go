// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
Package services adapts components without a native Serve method to the
suture v4 service model.

Most long-running parts of BGG Sync already implement suture.Service
directly: the refresh coordinator, the event bus, the WebSocket hub and the
play recorder's boundary worker. This package covers the rest:

  - HTTPServerService: runs an *http.Server and shuts it down gracefully
    when the supervisor cancels its context.
  - PeriodicService: runs a maintenance function on a ticker, used for
    badger value log garbage collection.

Every wrapper implements fmt.Stringer so suture's event hook can name it
in log output.
*/
package services
