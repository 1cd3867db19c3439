// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
coordinator.go - Refresh Coordinator Lifecycle and Account Registry

Lifecycle Methods:
  - NewCoordinator(): wire fetcher, metadata cache and options
  - Start(): launch one worker per account
  - Stop(): stop all workers and wait for them
  - Serve(): suture.Service adapter around Start/Stop

Account Methods:
  - AddAccount / ModifyAccount / RemoveAccount at runtime
  - ForceRefresh: non-blocking refresh signal
  - RefreshMetadata: drop cached game metadata, then ForceRefresh
  - RefreshNow: synchronous out-of-band cycle
  - Snapshot / Snapshots: latest published snapshots

Thread Safety:
  - mu: protects running state, the worker map and listeners
  - each worker guards its own account copy and sequences its own cycles
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/bggsync/internal/bgg"
	"github.com/tomtom215/bggsync/internal/config"
	"github.com/tomtom215/bggsync/internal/events"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/metrics"
	"github.com/tomtom215/bggsync/internal/models"
	"github.com/tomtom215/bggsync/internal/store"
)

var (
	// ErrUnknownAccount is returned for operations on an untracked username.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrDuplicateAccount is returned by AddAccount for a tracked username.
	ErrDuplicateAccount = errors.New("account already tracked")
)

// Listener is called after every cycle with the new snapshot. Listeners run
// on the account's worker goroutine and must not mutate the snapshot.
type Listener func(snap *models.CoordinatorSnapshot)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPublisher publishes snapshot.updated and account.removed events.
func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithSnapshotStore persists snapshots and restores them when an account is
// added.
func WithSnapshotStore(s store.SnapshotStore) Option {
	return func(c *Coordinator) { c.snapshots = s }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

const publishTimeout = 5 * time.Second

// Coordinator schedules refresh cycles for every tracked account.
type Coordinator struct {
	fetcher   bgg.Fetcher
	cache     store.MetadataCache
	cfg       config.SyncConfig
	publisher events.Publisher
	snapshots store.SnapshotStore
	now       func() time.Time

	mu        sync.RWMutex
	workers   map[string]*accountWorker
	listeners []Listener
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewCoordinator creates a coordinator. Accounts are added with AddAccount.
func NewCoordinator(fetcher bgg.Fetcher, cache store.MetadataCache, cfg config.SyncConfig, opts ...Option) *Coordinator {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.PendingRetries < 0 {
		cfg.PendingRetries = 0
	}
	if cfg.PendingBaseDelay <= 0 {
		cfg.PendingBaseDelay = 5 * time.Second
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 10 * time.Minute
	}
	c := &Coordinator{
		fetcher: fetcher,
		cache:   cache,
		cfg:     cfg,
		now:     time.Now,
		workers: map[string]*accountWorker{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func accountKey(username string) string {
	return strings.ToLower(username)
}

// AddListener registers fn to be called after every cycle.
func (c *Coordinator) AddListener(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Start launches a worker for every account. Each worker runs an initial
// cycle immediately.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("refresh coordinator is already running")
	}

	logging.Info().Int("accounts", len(c.workers)).Dur("interval", c.cfg.Interval).Msg("Starting refresh coordinator...")

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	for _, w := range c.workers {
		c.launch(w)
	}
	return nil
}

// launch starts w's loop. Callers hold c.mu and c.running is true.
func (c *Coordinator) launch(w *accountWorker) {
	ctx, cancel := context.WithCancel(c.ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		w.run(ctx)
	}()
}

// Stop cancels all workers and waits for in-flight cycles to finish.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return fmt.Errorf("refresh coordinator is not running")
	}
	c.running = false
	c.cancel()
	c.mu.Unlock()

	logging.Info().Msg("Stopping refresh coordinator...")
	c.wg.Wait()
	logging.Info().Msg("Refresh coordinator stopped")
	return nil
}

// Running reports whether Start has been called without a matching Stop.
func (c *Coordinator) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Serve implements suture.Service.
func (c *Coordinator) Serve(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	if err := c.Stop(); err != nil {
		logging.Warn().Err(err).Msg("Refresh coordinator stop")
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (c *Coordinator) String() string {
	return "refresh-coordinator"
}

// AddAccount starts tracking an account. A snapshot persisted by an earlier
// run is restored, marked stale, until the first cycle completes.
func (c *Coordinator) AddAccount(account models.TrackedAccount) error {
	if account.Username == "" {
		return fmt.Errorf("add account: empty username")
	}
	key := accountKey(account.Username)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.workers[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAccount, account.Username)
	}

	w := newAccountWorker(c, account.Clone(), c.initialSnapshot(account.Username))
	c.workers[key] = w
	metrics.SetAccountState(account.Username, string(models.StateIdle))
	if c.running {
		c.launch(w)
	}
	logging.Info().Str("username", account.Username).Int("games", len(account.Games)).Msg("Tracking BGG account")
	return nil
}

func (c *Coordinator) initialSnapshot(username string) *models.CoordinatorSnapshot {
	if c.snapshots != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		prev, ok, err := c.snapshots.LoadSnapshot(ctx, username)
		switch {
		case err != nil:
			logging.Warn().Err(err).Str("username", username).Msg("Failed to restore snapshot")
		case ok:
			restored := prev.Clone()
			restored.Username = username
			restored.State = models.StateIdle
			restored.Stale = true
			return &restored
		}
	}
	return &models.CoordinatorSnapshot{
		Username:  username,
		State:     models.StateIdle,
		Metadata:  map[int]models.GameMetadata{},
		GamePlays: map[int]int{},
		Available: true,
		UpdatedAt: c.now().UTC(),
	}
}

// ModifyAccount applies fn to a copy of a tracked account's settings and
// keeps the result when fn returns nil. Calls for the same account run one at
// a time, so a read-modify-write through fn (including persisting the copy)
// never loses a concurrent change. fn must not call back into the
// coordinator for the same account. The username cannot be changed.
//
// The change takes effect on the next cycle; call ForceRefresh to run it now.
func (c *Coordinator) ModifyAccount(username string, fn func(*models.TrackedAccount) error) (models.TrackedAccount, error) {
	w, err := c.worker(username)
	if err != nil {
		return models.TrackedAccount{}, err
	}
	return w.modify(fn)
}

// RemoveAccount stops the account's worker and forgets its snapshot.
func (c *Coordinator) RemoveAccount(username string) error {
	key := accountKey(username)

	c.mu.Lock()
	w, ok := c.workers[key]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAccount, username)
	}
	delete(c.workers, key)
	c.mu.Unlock()

	w.stop()
	metrics.ForgetAccount(w.username())

	if c.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := c.publisher.Publish(ctx, events.TopicAccountRemoved, events.AccountRemoved{Username: w.username()}); err != nil {
			logging.Warn().Err(err).Str("username", username).Msg("Failed to publish account removal")
		}
	}
	logging.Info().Str("username", username).Msg("Stopped tracking BGG account")
	return nil
}

func (c *Coordinator) worker(username string) (*accountWorker, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.workers[accountKey(username)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, username)
	}
	return w, nil
}

// Account returns a copy of a tracked account.
func (c *Coordinator) Account(username string) (models.TrackedAccount, bool) {
	w, err := c.worker(username)
	if err != nil {
		return models.TrackedAccount{}, false
	}
	return w.accountCopy(), true
}

// Accounts returns copies of all tracked accounts sorted by username.
func (c *Coordinator) Accounts() []models.TrackedAccount {
	c.mu.RLock()
	out := make([]models.TrackedAccount, 0, len(c.workers))
	for _, w := range c.workers {
		out = append(out, w.accountCopy())
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// ForceRefresh signals the account's worker to start a cycle without waiting
// for the next tick. It never blocks; a signal already pending absorbs it.
func (c *Coordinator) ForceRefresh(username string) error {
	w, err := c.worker(username)
	if err != nil {
		return err
	}
	select {
	case w.force <- struct{}{}:
		logging.Debug().Str("username", username).Msg("Refresh requested")
	default:
	}
	return nil
}

// RefreshMetadata drops cached metadata for ids, or for every game in the
// account's latest snapshot when ids is empty, and requests a refresh so the
// next cycle fetches them again.
func (c *Coordinator) RefreshMetadata(ctx context.Context, username string, ids ...int) error {
	w, err := c.worker(username)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		for id := range w.snap.Load().Metadata {
			ids = append(ids, id)
		}
		sort.Ints(ids)
	}
	if err := c.cache.Invalidate(ctx, ids); err != nil {
		return fmt.Errorf("invalidate metadata: %w", err)
	}
	logging.Info().Str("username", username).Int("games", len(ids)).Msg("Game metadata invalidated")
	return c.ForceRefresh(username)
}

// RefreshNow runs a cycle synchronously and returns the resulting snapshot.
// It works whether or not the coordinator is running.
func (c *Coordinator) RefreshNow(ctx context.Context, username string) (models.CoordinatorSnapshot, error) {
	w, err := c.worker(username)
	if err != nil {
		return models.CoordinatorSnapshot{}, err
	}
	snap := w.cycle(ctx)
	return snap.Clone(), nil
}

// Snapshot returns the latest published snapshot for username.
func (c *Coordinator) Snapshot(username string) (*models.CoordinatorSnapshot, bool) {
	w, err := c.worker(username)
	if err != nil {
		return nil, false
	}
	return w.snap.Load(), true
}

// Snapshots returns the latest snapshot of every account sorted by username.
func (c *Coordinator) Snapshots() []*models.CoordinatorSnapshot {
	c.mu.RLock()
	out := make([]*models.CoordinatorSnapshot, 0, len(c.workers))
	for _, w := range c.workers {
		out = append(out, w.snap.Load())
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// notify persists, publishes and fans out a freshly published snapshot.
func (c *Coordinator) notify(snap *models.CoordinatorSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if c.snapshots != nil {
		if err := c.snapshots.SaveSnapshot(ctx, snap); err != nil {
			logging.Warn().Err(err).Str("username", snap.Username).Msg("Failed to persist snapshot")
		}
	}

	if c.publisher != nil {
		evt := events.SnapshotUpdated{
			Username:      snap.Username,
			State:         snap.State,
			FailureReason: snap.FailureReason,
			Stale:         snap.Stale,
			UpdatedAt:     snap.UpdatedAt,
		}
		if err := c.publisher.Publish(ctx, events.TopicSnapshotUpdated, evt); err != nil {
			logging.Warn().Err(err).Str("username", snap.Username).Msg("Failed to publish snapshot update")
		}
	}

	c.mu.RLock()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.RUnlock()
	for _, fn := range listeners {
		callListener(fn, snap)
	}
}

func callListener(fn Listener, snap *models.CoordinatorSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("username", snap.Username).Msg("Snapshot listener panicked")
		}
	}()
	fn(snap)
}
