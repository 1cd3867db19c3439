// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package sync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/metrics"
	"github.com/tomtom215/bggsync/internal/models"
)

// accountWorker owns the refresh loop and latest snapshot of one account.
type accountWorker struct {
	coord *Coordinator

	mu      sync.Mutex
	account models.TrackedAccount

	// cycleMu sequences cycles of this account.
	cycleMu sync.Mutex
	snap    atomic.Pointer[models.CoordinatorSnapshot]
	force   chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

func newAccountWorker(c *Coordinator, account models.TrackedAccount, initial *models.CoordinatorSnapshot) *accountWorker {
	w := &accountWorker{
		coord:   c,
		account: account,
		force:   make(chan struct{}, 1),
	}
	w.snap.Store(initial)
	return w
}

func (w *accountWorker) accountCopy() models.TrackedAccount {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.account.Clone()
}

// modify applies fn to a copy of the account and keeps the copy when fn
// succeeds. w.mu is held across fn, so modifications of one account are
// serialized and fn may persist the copy before anyone else reads it.
func (w *accountWorker) modify(fn func(*models.TrackedAccount) error) (models.TrackedAccount, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := w.account.Clone()
	if err := fn(&next); err != nil {
		return models.TrackedAccount{}, err
	}
	next.Username = w.account.Username
	w.account = next
	return next.Clone(), nil
}

func (w *accountWorker) username() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.account.Username
}

// run is the worker loop: an initial cycle, then one per tick or force signal.
func (w *accountWorker) run(ctx context.Context) {
	defer close(w.done)

	w.cycle(ctx)

	ticker := time.NewTicker(w.coord.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cycle(ctx)
		case <-w.force:
			w.cycle(ctx)
		}
	}
}

// stop cancels a launched loop and waits for it to exit.
func (w *accountWorker) stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

// cycle runs one refresh, publishes the result and returns it. A panic is
// recorded as an internal failure on this account only.
func (w *accountWorker) cycle(ctx context.Context) (published *models.CoordinatorSnapshot) {
	w.cycleMu.Lock()
	defer w.cycleMu.Unlock()

	account := w.accountCopy()
	prev := w.snap.Load()
	start := w.coord.now()

	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("username", account.Username).Msg("Refresh cycle panicked")
			published = w.publish(failedSnapshot(prev, models.FailureInternal, fmt.Errorf("panic: %v", r), w.coord.now()), start)
		}
	}()

	fetching := prev.Clone()
	fetching.State = models.StateFetching
	w.snap.Store(&fetching)
	metrics.SetAccountState(account.Username, string(models.StateFetching))

	cctx, cancel := context.WithTimeout(ctx, w.coord.cfg.CycleTimeout)
	defer cancel()

	next := w.coord.runCycle(cctx, account, prev)
	if ctx.Err() != nil && next.State == models.StateFailed {
		// Shutdown interrupted the cycle; keep the previous snapshot as is.
		w.snap.Store(prev)
		metrics.SetAccountState(account.Username, string(prev.State))
		return prev
	}
	return w.publish(next, start)
}

func (w *accountWorker) publish(next *models.CoordinatorSnapshot, start time.Time) *models.CoordinatorSnapshot {
	w.snap.Store(next)

	result := string(models.StateReady)
	if next.State == models.StateFailed {
		result = next.FailureReason
	}
	metrics.RecordSyncCycle(next.Username, result, w.coord.now().Sub(start), len(next.Plays.Plays)+next.Collection.Len())
	metrics.SetAccountState(next.Username, string(next.State))

	w.coord.notify(next)
	return next
}
