// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
Package websocket pushes entity and sync updates to connected clients.

The package uses gorilla/websocket with a hub-client architecture:

	┌──────────┐      ┌───────────┐
	│ event bus├─────►│    Hub    │ ← Broadcasts to all clients
	└──────────┘      └────┬──────┘
	                       │
	            ┌──────────┼──────────┐
	            │          │          │
	         Client1    Client2    Client3

Each client has two goroutines:
  - readPump: reads from the connection, answers ping messages
  - writePump: writes queued messages and keep-alive pings

Message Types:

  - entity_changed: an entity was created, updated or removed
  - snapshot_updated: an account finished a refresh cycle
  - play_recorded: a play was written to BGG
  - account_removed: an account stopped being tracked
  - ping / pong: application-level keep-alive

A client connected with ?username=alice only receives messages about that
account. Messages without an account go to everybody.

Usage:

	hub := websocket.NewHub()
	hub.Subscribe(bus)      // forward bus topics to clients
	supervisor.Add(hub)     // Serve(ctx) runs the hub loop

	// in an HTTP handler
	conn, _ := upgrader.Upgrade(w, r, nil)
	client := websocket.NewClient(hub, conn, r.URL.Query().Get("username"))
	hub.Register <- client
	client.Start()
*/
package websocket
