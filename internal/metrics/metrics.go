// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
Package metrics provides the Prometheus collectors for BGG Sync.

Metrics are exposed at /metrics in Prometheus text format:

	curl http://localhost:8765/metrics

Families:
  - api_*: HTTP action surface latency and throughput
  - bgg_*: upstream BoardGameGeek requests, processing-pending retries, plays written
  - sync_*: refresh coordinator cycles and per-account state
  - entities_*: reconciled entity counts and registry operations
  - circuit_breaker_*: upstream breaker state
  - websocket_*, events_*: push channel and in-process event bus

All collectors are registered with the default registry through promauto.
*/
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Upstream BGG Metrics
	BGGRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgg_requests_total",
			Help: "Total number of requests sent to BoardGameGeek",
		},
		[]string{"endpoint", "status_code"},
	)

	BGGRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bgg_request_duration_seconds",
			Help:    "BoardGameGeek request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	BGGProcessingPending = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgg_processing_pending_total",
			Help: "Collection requests answered with 'processing, retry later'",
		},
		[]string{"outcome"}, // "retried", "exhausted"
	)

	BGGRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bgg_rate_limited_total",
			Help: "Number of HTTP 429 responses received from BoardGameGeek",
		},
	)

	BGGThingBatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bgg_thing_batches_total",
			Help: "Number of thing metadata batches fetched",
		},
	)

	BGGPlaySubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgg_play_submissions_total",
			Help: "Play submissions by result",
		},
		[]string{"result"}, // "success", "validation", "config", "auth", "network", "submit"
	)

	// Sync Operation Metrics
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of account refresh cycles in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	SyncCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_cycles_total",
			Help: "Account refresh cycles by result",
		},
		[]string{"result"}, // "ready", "auth", "network"
	)

	SyncRecordsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_records_processed_total",
			Help: "Plays, collection entries and metadata records normalized",
		},
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful cycle per account",
		},
		[]string{"username"},
	)

	SyncAccountState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_account_state",
			Help: "Account refresh state (0=idle, 1=fetching, 2=ready, 3=failed)",
		},
		[]string{"username"},
	)

	ParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_parse_errors_total",
			Help: "Upstream payloads that could not be normalized",
		},
		[]string{"endpoint"},
	)

	// Entity Metrics
	EntitiesRegistered = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "entities_registered",
			Help: "Currently registered entities by kind",
		},
		[]string{"kind"},
	)

	EntityOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entities_operations_total",
			Help: "Registry operations applied by the reconciler",
		},
		[]string{"operation"}, // "create", "update", "remove"
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Messages published on the in-process event bus",
		},
		[]string{"topic"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records one HTTP request served by the action API.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBGGRequest records one upstream request. statusCode 0 means the
// request never got a response.
func RecordBGGRequest(endpoint string, statusCode int, duration time.Duration) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	BGGRequestsTotal.WithLabelValues(endpoint, code).Inc()
	BGGRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	if statusCode == 429 {
		BGGRateLimited.Inc()
	}
}

// RecordSyncCycle records a finished refresh cycle. result is "ready" or a
// failure reason.
func RecordSyncCycle(username, result string, duration time.Duration, records int) {
	SyncDuration.Observe(duration.Seconds())
	SyncCycles.WithLabelValues(result).Inc()
	SyncRecordsProcessed.Add(float64(records))
	if result == "ready" {
		SyncLastSuccess.WithLabelValues(username).Set(float64(time.Now().Unix()))
	}
}

// accountStates maps state names to the sync_account_state gauge values.
var accountStates = map[string]float64{
	"idle":     0,
	"fetching": 1,
	"ready":    2,
	"failed":   3,
}

// SetAccountState updates the state gauge for an account.
func SetAccountState(username, state string) {
	if v, ok := accountStates[state]; ok {
		SyncAccountState.WithLabelValues(username).Set(v)
	}
}

// ForgetAccount drops per-account series after an account is removed.
func ForgetAccount(username string) {
	SyncAccountState.DeleteLabelValues(username)
	SyncLastSuccess.DeleteLabelValues(username)
}

// RecordEntityOperations adds n registry operations of one kind.
func RecordEntityOperations(operation string, n int) {
	if n > 0 {
		EntityOperations.WithLabelValues(operation).Add(float64(n))
	}
}
