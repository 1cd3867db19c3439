// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
client.go - Core BoardGameGeek API Client

This file provides the Client struct and the HTTP layer for the BGG XML API 2
read endpoints (plays, collection, thing). The write path (login and play
submission) lives in session.go.

Client Features:
  - Bearer token authentication per request (tokens belong to accounts, not the client)
  - Client-side rate limiting (golang.org/x/time/rate, default 1 req/s burst 2)
  - Automatic HTTP 429 handling honouring Retry-After, exponential backoff otherwise
  - HTTP 202 / <message> "processing" responses surfaced as ErrProcessingPending
  - Thing lookups batched to at most 20 IDs per request
  - Context support for cancellation and timeouts

Error Mapping:
  - 401/403            -> *AuthError
  - 202 / <message>    -> ErrProcessingPending
  - 429 after retries  -> ErrRateLimited
  - transport, 5xx     -> *NetworkError
*/

//nolint:staticcheck // File documentation, not package doc
package bgg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/bggsync/internal/config"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/metrics"
	"github.com/tomtom215/bggsync/internal/normalize"
)

// MaxThingBatch is the largest number of IDs BGG accepts in one thing request.
const MaxThingBatch = 20

// Endpoint labels for metrics, logs and errors.
const (
	EndpointPlays        = "plays"
	EndpointGamePlays    = "game_plays"
	EndpointCollection   = "collection"
	EndpointThing        = "thing"
	EndpointValidateAuth = "validate_auth"
	EndpointLogin        = "login"
	EndpointSubmitPlay   = "geekplay"
)

const (
	// maxErrorBodySize limits the response body kept for error reporting.
	maxErrorBodySize = 64 * 1024

	// maxBodySize bounds XML payloads; large collections run to a few MB.
	maxBodySize = 32 << 20

	// maxRetryAfter caps server-requested waits.
	maxRetryAfter = 2 * time.Minute
)

// readBodyForError reads at most 64KB of a response body for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBodySize))
	_ = body.Close()
}

// Fetcher is the read side of the BGG API used by the refresh coordinator.
// It is implemented by *Client and *CircuitBreakerClient.
type Fetcher interface {
	FetchPlays(ctx context.Context, username, token string) ([]byte, error)
	FetchGamePlays(ctx context.Context, username, token string, gameID int) ([]byte, error)
	FetchCollection(ctx context.Context, username, token, subType string) ([]byte, error)
	FetchGameMetadata(ctx context.Context, token string, ids []int) ([][]byte, error)
	ValidateAuth(ctx context.Context, username, token string) error
}

// Client talks to the BGG XML API. It is safe for concurrent use; all
// requests share one rate limiter.
type Client struct {
	baseURL        string
	userAgent      string
	http           *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
	batchSize      int
}

// NewClient creates a client from the upstream configuration.
func NewClient(cfg *config.BGGConfig) *Client {
	batch := cfg.ThingBatchSize
	if batch <= 0 || batch > MaxThingBatch {
		batch = MaxThingBatch
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:      ua,
		http:           &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(limit, burst),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		batchSize:      batch,
	}
}

// BaseURL returns the site root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("User-Agent", c.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// do sends the request built by build, waiting on the rate limiter first and
// retrying HTTP 429 responses. build is called once per attempt so request
// bodies are fresh.
func (c *Client) do(ctx context.Context, hc *http.Client, endpoint string, build func() (*http.Request, error)) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &NetworkError{Endpoint: endpoint, Err: err}
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
		}

		start := time.Now()
		resp, err := hc.Do(req)
		if err != nil {
			metrics.RecordBGGRequest(endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &NetworkError{Endpoint: endpoint, Err: err}
		}
		metrics.RecordBGGRequest(endpoint, resp.StatusCode, time.Since(start))

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		retryAfter := resp.Header.Get("Retry-After")
		drainAndClose(resp.Body)

		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("bgg %s after %d retries: %w", endpoint, c.maxRetries, ErrRateLimited)
		}

		delay := retryDelay(retryAfter, c.retryBaseDelay, attempt)
		logging.Debug().
			Str("endpoint", endpoint).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("BGG rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// retryDelay honours a Retry-After header (seconds or HTTP date) and falls
// back to base * 2^attempt.
func retryDelay(header string, base time.Duration, attempt int) time.Duration {
	delay := base * time.Duration(1<<uint(attempt))
	if header != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs >= 0 {
			delay = time.Duration(secs) * time.Second
		} else if at, err := http.ParseTime(header); err == nil {
			delay = time.Until(at)
		}
	}
	if delay < 0 {
		delay = 0
	}
	if delay > maxRetryAfter {
		delay = maxRetryAfter
	}
	return delay
}

// getXML issues a GET against /xmlapi2/{path} and maps the response status.
func (c *Client) getXML(ctx context.Context, endpoint, path string, params url.Values, token string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/xmlapi2/%s?%s", c.baseURL, path, params.Encode())

	resp, err := c.do(ctx, c.http, endpoint, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req, token)
		req.Header.Set("Accept", "application/xml, text/xml")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &NetworkError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
		}
		return body, nil
	case http.StatusAccepted:
		return nil, ErrProcessingPending
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &AuthError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(readBodyForError(resp.Body))}
	default:
		body := readBodyForError(resp.Body)
		return nil, &NetworkError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", logging.TruncateBody(body)),
		}
	}
}

// FetchPlays returns the raw plays document for a user.
func (c *Client) FetchPlays(ctx context.Context, username, token string) ([]byte, error) {
	params := url.Values{}
	params.Set("username", username)
	return c.getXML(ctx, EndpointPlays, "plays", params, token)
}

// FetchGamePlays returns the plays document filtered to one game; its total
// attribute is the user's play count for that game.
func (c *Client) FetchGamePlays(ctx context.Context, username, token string, gameID int) ([]byte, error) {
	params := url.Values{}
	params.Set("username", username)
	params.Set("id", strconv.Itoa(gameID))
	params.Set("type", "thing")
	return c.getXML(ctx, EndpointGamePlays, "plays", params, token)
}

// FetchCollection returns the raw collection document for one sub type.
// BGG builds collections asynchronously: the first request usually gets
// HTTP 202 and ErrProcessingPending is returned until the export is ready.
func (c *Client) FetchCollection(ctx context.Context, username, token, subType string) ([]byte, error) {
	params := url.Values{}
	params.Set("username", username)
	params.Set("subtype", subType)
	params.Set("stats", "1")

	body, err := c.getXML(ctx, EndpointCollection, "collection", params, token)
	if err != nil {
		return nil, err
	}
	if normalize.IsProcessingMessage(body) {
		return nil, ErrProcessingPending
	}
	return body, nil
}

// FetchGameMetadata fetches thing records for ids. IDs are sorted and
// deduplicated, then requested sequentially in batches of at most
// MaxThingBatch. Batch bodies are returned in request order.
func (c *Client) FetchGameMetadata(ctx context.Context, token string, ids []int) ([][]byte, error) {
	batches := ChunkIDs(ids, c.batchSize)
	out := make([][]byte, 0, len(batches))
	for _, batch := range batches {
		params := url.Values{}
		params.Set("id", joinIDs(batch))
		params.Set("stats", "1")

		body, err := c.getXML(ctx, EndpointThing, "thing", params, token)
		if err != nil {
			return nil, err
		}
		metrics.BGGThingBatches.Inc()
		out = append(out, body)
	}
	return out, nil
}

// ValidateAuth checks that token is accepted for username with a brief
// collection request. A queued (202) response counts as valid.
func (c *Client) ValidateAuth(ctx context.Context, username, token string) error {
	params := url.Values{}
	params.Set("username", username)
	params.Set("brief", "1")

	_, err := c.getXML(ctx, EndpointValidateAuth, "collection", params, token)
	if errors.Is(err, ErrProcessingPending) {
		return nil
	}
	return err
}

// ChunkIDs sorts and deduplicates ids, dropping non-positive values, and
// splits them into batches of at most size.
func ChunkIDs(ids []int, size int) [][]int {
	if size <= 0 || size > MaxThingBatch {
		size = MaxThingBatch
	}
	seen := make(map[int]struct{}, len(ids))
	uniq := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Ints(uniq)

	var out [][]int
	for start := 0; start < len(uniq); start += size {
		end := start + size
		if end > len(uniq) {
			end = len(uniq)
		}
		out = append(out, uniq[start:end])
	}
	return out
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
