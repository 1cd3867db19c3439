// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
Package middleware provides HTTP middleware for the action API.

Key Components:

  - RequestID: X-Request-ID propagation and logging context
  - PrometheusMetrics: request counts, latency and in-flight gauge, labeled by
    the chi route pattern so path parameters do not explode cardinality
  - Compression: gzip for JSON responses when the client accepts it

All middleware has the http.HandlerFunc shape; the api package adapts it to
chi with chiMiddleware.

Middleware Stack:

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.Recoverer)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(chiMiddleware(middleware.PrometheusMetrics))
	    r.Use(chiMiddleware(middleware.Compression))
	    ...
	})

The metrics writer passes Hijack and Flush through, so the WebSocket
upgrade keeps working behind it. Compression skips upgrade requests.
*/
package middleware
