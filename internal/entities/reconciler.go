// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
reconciler.go - Snapshot to Registry Reconciliation

Diff compares registered records with the desired entity set:
  - desired but not registered: Create
  - registered with a different description: Update
  - registered but no longer desired: Remove

Apply runs creates first, then updates, then removals. A failed operation is
logged and the rest of the plan still runs; the joined error is returned.
*/

//nolint:staticcheck // File documentation, not package doc
package entities

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/tomtom215/bggsync/internal/events"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/metrics"
	"github.com/tomtom215/bggsync/internal/models"
)

// Plan is the set of registry operations that moves current to desired.
type Plan struct {
	Create []Record
	Update []Record
	Remove []string
}

// Empty reports whether the plan has no operations.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Remove) == 0
}

// Diff computes the plan from the registered records to the desired set.
func Diff(current []Record, desired []Entity) Plan {
	have := make(map[string]Record, len(current))
	for _, r := range current {
		have[r.UniqueID] = r
	}

	var plan Plan
	want := make(map[string]struct{}, len(desired))
	for _, e := range desired {
		rec := RecordOf(e)
		if _, dup := want[rec.UniqueID]; dup {
			continue
		}
		want[rec.UniqueID] = struct{}{}

		old, ok := have[rec.UniqueID]
		switch {
		case !ok:
			plan.Create = append(plan.Create, rec)
		case old.Kind != rec.Kind || !reflect.DeepEqual(old.Description, rec.Description):
			plan.Update = append(plan.Update, rec)
		}
	}
	for id := range have {
		if _, ok := want[id]; !ok {
			plan.Remove = append(plan.Remove, id)
		}
	}
	sort.Strings(plan.Remove)
	return plan
}

// SnapshotSource provides the latest snapshot and settings of an account.
// The refresh coordinator implements it.
type SnapshotSource interface {
	Snapshot(username string) (*models.CoordinatorSnapshot, bool)
	Account(username string) (models.TrackedAccount, bool)
}

// Reconciler applies snapshots to a Registry.
type Reconciler struct {
	registry Registry
	opts     Options
	policy   TodoPolicy

	// mu serializes plans so two snapshots never interleave their operations.
	mu sync.Mutex
}

// NewReconciler creates a reconciler.
func NewReconciler(registry Registry, opts Options, policy TodoPolicy) *Reconciler {
	if policy == "" {
		policy = TodoPolicyIgnore
	}
	return &Reconciler{registry: registry, opts: opts, policy: policy}
}

// Apply reconciles the account's registered entities with snap.
func (r *Reconciler) Apply(ctx context.Context, snap *models.CoordinatorSnapshot, account models.TrackedAccount) (Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.registry.List(ctx, account.Username)
	if err != nil {
		return Plan{}, fmt.Errorf("list entities: %w", err)
	}
	plan := Diff(current, Desired(snap, account, r.opts))
	if plan.Empty() {
		return plan, nil
	}

	var errs []error
	created, updated, removed := 0, 0, 0
	for _, rec := range plan.Create {
		if err := r.registry.Create(ctx, rec); err != nil {
			errs = append(errs, err)
			continue
		}
		created++
	}
	for _, rec := range plan.Update {
		if err := r.registry.Update(ctx, rec); err != nil {
			errs = append(errs, err)
			continue
		}
		updated++
	}
	for _, id := range plan.Remove {
		if err := r.registry.Remove(ctx, id); err != nil && !errors.Is(err, ErrEntityNotFound) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	metrics.RecordEntityOperations(events.OpCreate, created)
	metrics.RecordEntityOperations(events.OpUpdate, updated)
	metrics.RecordEntityOperations(events.OpRemove, removed)

	logging.CtxDebug(ctx).
		Str("username", account.Username).
		Int("created", created).
		Int("updated", updated).
		Int("removed", removed).
		Msg("Entities reconciled")

	if len(errs) > 0 {
		err := errors.Join(errs...)
		logging.CtxWarn(ctx).Err(err).Str("username", account.Username).Msg("Some entity operations failed")
		return plan, err
	}
	return plan, nil
}

// RemoveAccount unregisters every entity of username.
func (r *Reconciler) RemoveAccount(ctx context.Context, username string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.registry.List(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("list entities: %w", err)
	}
	n := 0
	for _, rec := range current {
		if err := r.registry.Remove(ctx, rec.UniqueID); err != nil && !errors.Is(err, ErrEntityNotFound) {
			return n, err
		}
		n++
	}
	metrics.RecordEntityOperations(events.OpRemove, n)
	return n, nil
}

// HandleSnapshotUpdated returns a bus handler that reconciles the account
// named in a snapshot.updated event.
func (r *Reconciler) HandleSnapshotUpdated(src SnapshotSource) events.HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		evt, err := events.Decode[events.SnapshotUpdated](payload)
		if err != nil {
			return err
		}
		snap, ok := src.Snapshot(evt.Username)
		if !ok {
			return nil
		}
		account, ok := src.Account(evt.Username)
		if !ok {
			return nil
		}
		_, err = r.Apply(ctx, snap, account)
		return err
	}
}

// HandleAccountRemoved returns a bus handler that drops a removed account's
// entities.
func (r *Reconciler) HandleAccountRemoved() events.HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		evt, err := events.Decode[events.AccountRemoved](payload)
		if err != nil {
			return err
		}
		_, err = r.RemoveAccount(ctx, evt.Username)
		return err
	}
}
