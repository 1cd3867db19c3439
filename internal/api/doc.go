// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
Package api provides the HTTP action surface for BGG Sync.

Every endpoint answers with the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "VALIDATION_ERROR", "message": "..."}}

Routes:

Actions (/api/v1/actions/):
  - POST track_game: start tracking a game, with optional NFC tag, music and
    custom image overrides. Repeating the call updates the overrides.
  - POST record_play: validate a play and write it to BGG.

Accounts (/api/v1/accounts/):
  - GET / lists tracked accounts with credentials masked
  - POST / adds an account after validating its token against BGG
  - DELETE /{username} stops tracking and removes the account's entities
  - POST /{username}/refresh starts a sync cycle now; ?metadata=true
    also drops the cached game metadata of the account
  - GET /{username}/snapshot returns the latest coordinator snapshot

Entities (/api/v1/entities/):
  - GET / lists registered entities, optionally filtered by ?username=
  - POST /todo/{uid}/status handles a shelf to-do toggle

Health and push:
  - GET /api/v1/health, /api/v1/health/live, /api/v1/health/ready
  - GET /api/v1/ws upgrades to the WebSocket event stream
  - GET /metrics serves Prometheus metrics

Error codes map to HTTP status as follows:

	VALIDATION_ERROR        400  malformed body or invalid play
	UNAUTHORIZED            401  BGG rejected the token or password
	NOT_FOUND               404  unknown account or entity
	CONFLICT                409  account already tracked
	EXTERNAL_SERVICE_FAILED 502  BGG refused the play or is unreachable
	SERVICE_UNAVAILABLE     503  write queue full or service shutting down

Middleware stack, outermost first: request ID, real IP, panic recovery,
CORS, rate limiting, security headers, Prometheus metrics, gzip.
*/
package api
