// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
cycle.go - One Refresh Cycle

A cycle builds the next snapshot from a clone of the previous one, so any
endpoint that cannot be refreshed keeps its earlier data. Errors fall into
three groups:

  - recoverable (processing pending, parse failure): the endpoint's previous
    data is kept and the cycle continues
  - auth: the cycle stops, the account is Failed/auth and unavailable
  - everything else: the cycle stops, the account is Failed/network
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/bggsync/internal/bgg"
	"github.com/tomtom215/bggsync/internal/config"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/metrics"
	"github.com/tomtom215/bggsync/internal/models"
	"github.com/tomtom215/bggsync/internal/normalize"
)

type cycleRun struct {
	c       *Coordinator
	account models.TrackedAccount
	prev    *models.CoordinatorSnapshot
	next    models.CoordinatorSnapshot
}

// runCycle fetches everything for account and returns the snapshot to publish.
func (c *Coordinator) runCycle(ctx context.Context, account models.TrackedAccount, prev *models.CoordinatorSnapshot) *models.CoordinatorSnapshot {
	ctx = logging.ContextWithAccount(logging.ContextWithNewCorrelationID(ctx), account.Username)
	r := &cycleRun{c: c, account: account, prev: prev, next: prev.Clone()}
	r.next.Username = account.Username

	steps := []func(context.Context) error{
		r.fetchPlays,
		r.fetchCollection,
		r.fetchGamePlays,
		r.fetchMetadata,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return r.fail(ctx, err)
		}
	}

	now := c.now().UTC()
	r.attachImages()
	r.next.State = models.StateReady
	r.next.FailureReason = ""
	r.next.LastError = ""
	r.next.Available = true
	r.next.Stale = false
	r.next.LastSync = now
	r.next.UpdatedAt = now

	logging.CtxDebug(ctx).
		Int("plays", r.next.Plays.Total).
		Int("collection", r.next.Collection.Len()).
		Int("metadata", len(r.next.Metadata)).
		Bool("collection_stale", r.next.CollectionStale).
		Msg("Refresh cycle complete")
	return &r.next
}

// recoverable reports whether err only invalidates the endpoint that
// produced it.
func recoverable(err error) bool {
	var pe *normalize.ParseError
	return errors.Is(err, bgg.ErrProcessingPending) || errors.As(err, &pe)
}

func (r *cycleRun) skip(ctx context.Context, endpoint string, err error) {
	if errors.Is(err, bgg.ErrProcessingPending) {
		logging.CtxDebug(ctx).Str("endpoint", endpoint).Msg("BGG still processing, keeping previous data")
		return
	}
	metrics.ParseErrors.WithLabelValues(endpoint).Inc()
	logging.CtxWarn(ctx).Err(err).Str("endpoint", endpoint).Msg("Discarding unparseable BGG response, keeping previous data")
}

func (r *cycleRun) fail(ctx context.Context, err error) *models.CoordinatorSnapshot {
	reason := models.FailureNetwork
	if bgg.IsAuth(err) {
		reason = models.FailureAuth
		logging.CtxWarn(ctx).Err(err).Msg("BGG rejected the account token; update the token to resume syncing")
	} else if ctx.Err() == nil || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logging.CtxWarn(ctx).Err(err).Msg("Refresh cycle failed, will retry on next interval")
	}
	return failedSnapshot(r.prev, reason, err, r.c.now())
}

// failedSnapshot keeps prev's data, marked stale. Only auth failures make
// the account unavailable.
func failedSnapshot(prev *models.CoordinatorSnapshot, reason string, err error, now time.Time) *models.CoordinatorSnapshot {
	s := prev.Clone()
	s.State = models.StateFailed
	s.FailureReason = reason
	s.LastError = logging.Scrub(err.Error())
	s.Stale = true
	if reason == models.FailureAuth {
		s.Available = false
	}
	s.UpdatedAt = now.UTC()
	return &s
}

func (r *cycleRun) fetchPlays(ctx context.Context) error {
	raw, err := r.c.fetcher.FetchPlays(ctx, r.account.Username, r.account.Token)
	var plays models.PlaySnapshot
	if err == nil {
		plays, err = normalize.ParsePlays(raw)
	}
	switch {
	case err == nil:
		r.next.Plays = plays
	case recoverable(err):
		r.skip(ctx, normalize.EndpointPlays, err)
	default:
		return fmt.Errorf("fetch plays: %w", err)
	}
	return nil
}

func (r *cycleRun) fetchCollection(ctx context.Context) error {
	if !r.account.TrackCollection {
		r.next.Collection = models.CollectionSnapshot{}
		r.next.CollectionStale = false
		return nil
	}

	var entries []models.CollectionEntry
	for _, subType := range models.CollectionSubTypes {
		got, err := retryPending(ctx, r.c.cfg, subType, func() ([]models.CollectionEntry, error) {
			raw, err := r.c.fetcher.FetchCollection(ctx, r.account.Username, r.account.Token, subType)
			if err != nil {
				return nil, err
			}
			return normalize.ParseCollection(raw)
		})
		if err != nil {
			if !recoverable(err) {
				return fmt.Errorf("fetch %s collection: %w", subType, err)
			}
			r.skip(ctx, normalize.EndpointCollection, err)
			r.next.CollectionStale = true
			return nil
		}
		entries = append(entries, got...)
	}
	r.next.Collection = models.NewCollectionSnapshot(entries)
	r.next.CollectionStale = false
	return nil
}

func (r *cycleRun) fetchGamePlays(ctx context.Context) error {
	counts := make(map[int]int, len(r.account.Games))
	for _, id := range r.account.TrackedGameIDs() {
		if _, inCollection := r.next.Collection.Find(id); inCollection {
			continue
		}
		raw, err := r.c.fetcher.FetchGamePlays(ctx, r.account.Username, r.account.Token, id)
		var n int
		if err == nil {
			n, err = normalize.ParsePlayCount(raw)
		}
		switch {
		case err == nil:
			counts[id] = n
		case recoverable(err):
			r.skip(ctx, normalize.EndpointPlays, err)
			if old, ok := r.prev.GamePlays[id]; ok {
				counts[id] = old
			}
		default:
			return fmt.Errorf("fetch plays for game %d: %w", id, err)
		}
	}
	r.next.GamePlays = counts
	return nil
}

// metadataIDs returns the games whose metadata the snapshot should carry.
func (r *cycleRun) metadataIDs() []int {
	set := map[int]struct{}{}
	for id := range r.account.Games {
		set[id] = struct{}{}
	}
	if r.account.ImportCollection || r.account.EnableShelfTodo {
		for _, id := range r.next.Collection.OwnedGameIDs() {
			set[id] = struct{}{}
		}
	}
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// fetchMetadata fetches uncached metadata one thing batch at a time. A batch
// that is pending or unparseable falls back to the previous snapshot for its
// IDs; they stay uncached and are requested again next cycle. Batches fetched
// before a transport failure are still cached.
func (r *cycleRun) fetchMetadata(ctx context.Context) error {
	ids := r.metadataIDs()
	found, missing := r.c.cache.Lookup(ids)
	if found == nil {
		found = map[int]models.GameMetadata{}
	}
	r.next.Metadata = found
	if len(missing) == 0 {
		return nil
	}

	fetched := make(map[int]models.GameMetadata, len(missing))
	defer r.cacheMetadata(ctx, fetched)

	for _, batch := range bgg.ChunkIDs(missing, bgg.MaxThingBatch) {
		bodies, err := r.c.fetcher.FetchGameMetadata(ctx, r.account.Token, batch)
		var parsed map[int]models.GameMetadata
		if err == nil {
			parsed, err = normalize.ParseThings(bodies...)
		}
		switch {
		case err == nil:
			now := r.c.now().UTC()
			for id, m := range parsed {
				m.FetchedAt = now
				fetched[id] = m
				found[id] = m
			}
		case recoverable(err):
			r.skip(ctx, normalize.EndpointThing, err)
			for _, id := range batch {
				if m, ok := r.prev.Metadata[id]; ok {
					found[id] = m
				}
			}
		default:
			return fmt.Errorf("fetch game metadata: %w", err)
		}
	}

	if len(fetched) < len(missing) {
		logging.CtxDebug(ctx).Int("requested", len(missing)).Int("returned", len(fetched)).Msg("Game metadata incomplete this cycle")
	}
	return nil
}

func (r *cycleRun) cacheMetadata(ctx context.Context, fetched map[int]models.GameMetadata) {
	if len(fetched) == 0 {
		return
	}
	if err := r.c.cache.Store(ctx, fetched); err != nil {
		logging.CtxWarn(ctx).Err(err).Msg("Failed to cache game metadata")
	}
}

// attachImages fills each play's image from game metadata.
func (r *cycleRun) attachImages() {
	plays := make([]models.Play, len(r.next.Plays.Plays))
	copy(plays, r.next.Plays.Plays)
	for i := range plays {
		if m, ok := r.next.Game(plays[i].GameID); ok {
			if m.Image != "" {
				plays[i].ImageURL = m.Image
			} else if m.Thumbnail != "" {
				plays[i].ImageURL = m.Thumbnail
			}
		}
	}
	r.next.Plays.Plays = plays
}

// retryPending calls fn until it stops reporting processing pending, waiting
// with exponential backoff from cfg.PendingBaseDelay between attempts.
func retryPending[T any](ctx context.Context, cfg config.SyncConfig, what string, fn func() (T, error)) (T, error) {
	delay := cfg.PendingBaseDelay
	for attempt := 0; ; attempt++ {
		v, err := fn()
		if !errors.Is(err, bgg.ErrProcessingPending) {
			return v, err
		}
		if attempt >= cfg.PendingRetries {
			metrics.BGGProcessingPending.WithLabelValues("exhausted").Inc()
			return v, err
		}
		metrics.BGGProcessingPending.WithLabelValues("retried").Inc()
		logging.CtxDebug(ctx).Str("request", what).Int("attempt", attempt+1).Dur("delay", delay).Msg("BGG is preparing the response, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
		delay *= 2
	}
}
