// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package bgg

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/metrics"
)

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = errors.New("bgg circuit breaker open")

// CircuitBreakerClient wraps a Fetcher with a circuit breaker so that a BGG
// outage does not turn every account's cycle into a stack of timeouts.
//
// Breaker configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
//
// Processing-pending responses, rejected credentials and caller
// cancellation are answers from a healthy upstream and do not count as
// failures.
type CircuitBreakerClient struct {
	client Fetcher
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewCircuitBreakerClient wraps client.
func NewCircuitBreakerClient(client Fetcher) *CircuitBreakerClient {
	return newCircuitBreakerClient(client, "bgg-api", 10, 2*time.Minute)
}

func newCircuitBreakerClient(client Fetcher, name string, minRequests uint32, timeout time.Duration) *CircuitBreakerClient {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},

		IsSuccessful: isHealthyResponse,
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: name}
}

// isHealthyResponse reports outcomes that must not trip the breaker.
func isHealthyResponse(err error) bool {
	return err == nil ||
		errors.Is(err, ErrProcessingPending) ||
		IsAuth(err) ||
		errors.Is(err, context.Canceled)
}

// execute runs fn under breaker protection.
func (cbc *CircuitBreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		if isHealthyResponse(err) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
			return nil, err
		}
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		counts := cbc.cb.Counts()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(counts.ConsecutiveFailures))
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)
	return result, nil
}

// castResult type-asserts a breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// State returns the breaker state as "closed", "half-open" or "open".
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

// FetchPlays implements Fetcher.
func (cbc *CircuitBreakerClient) FetchPlays(ctx context.Context, username, token string) ([]byte, error) {
	return castResult[[]byte](cbc.execute(func() (any, error) {
		return cbc.client.FetchPlays(ctx, username, token)
	}))
}

// FetchGamePlays implements Fetcher.
func (cbc *CircuitBreakerClient) FetchGamePlays(ctx context.Context, username, token string, gameID int) ([]byte, error) {
	return castResult[[]byte](cbc.execute(func() (any, error) {
		return cbc.client.FetchGamePlays(ctx, username, token, gameID)
	}))
}

// FetchCollection implements Fetcher.
func (cbc *CircuitBreakerClient) FetchCollection(ctx context.Context, username, token, subType string) ([]byte, error) {
	return castResult[[]byte](cbc.execute(func() (any, error) {
		return cbc.client.FetchCollection(ctx, username, token, subType)
	}))
}

// FetchGameMetadata implements Fetcher.
func (cbc *CircuitBreakerClient) FetchGameMetadata(ctx context.Context, token string, ids []int) ([][]byte, error) {
	return castResult[[][]byte](cbc.execute(func() (any, error) {
		return cbc.client.FetchGameMetadata(ctx, token, ids)
	}))
}

// ValidateAuth implements Fetcher.
func (cbc *CircuitBreakerClient) ValidateAuth(ctx context.Context, username, token string) error {
	_, err := cbc.execute(func() (any, error) {
		return nil, cbc.client.ValidateAuth(ctx, username, token)
	})
	return err
}
