// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package entities

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/bggsync/internal/logging"
)

// TodoPolicy decides how a user toggling a shelf item is handled. Shelf
// items mirror the BGG collection and are never written back.
type TodoPolicy string

// Toggle policies.
const (
	TodoPolicyIgnore TodoPolicy = "ignore"
	TodoPolicyWarn   TodoPolicy = "warn"
)

// ErrNotTodoItem is returned when a status change targets another kind.
var ErrNotTodoItem = errors.New("entity is not a to-do item")

// ParseTodoPolicy validates a configured policy name.
func ParseTodoPolicy(s string) (TodoPolicy, error) {
	switch p := TodoPolicy(s); p {
	case TodoPolicyIgnore, TodoPolicyWarn:
		return p, nil
	case "":
		return TodoPolicyIgnore, nil
	default:
		return "", fmt.Errorf("unknown to-do toggle policy %q (want ignore or warn)", s)
	}
}

// SetTodoStatus handles a user toggling a shelf item. The item keeps its
// published state; depending on the policy the attempt is logged at debug or
// warning level.
func (r *Reconciler) SetTodoStatus(ctx context.Context, uniqueID string, status TodoStatus) error {
	if status != TodoNeedsAction && status != TodoCompleted {
		return fmt.Errorf("invalid to-do status %q", status)
	}

	records, err := r.registry.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list entities: %w", err)
	}
	var found *Record
	for i := range records {
		if records[i].UniqueID == uniqueID {
			found = &records[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, uniqueID)
	}
	if found.Kind != KindTodoItem {
		return fmt.Errorf("%w: %s", ErrNotTodoItem, uniqueID)
	}

	switch r.policy {
	case TodoPolicyWarn:
		logging.CtxWarn(ctx).
			Str("entity", uniqueID).
			Str("status", string(status)).
			Msg("Shelf items mirror the BGG collection and cannot be changed here; the change was not sent to BGG")
	default:
		logging.CtxDebug(ctx).Str("entity", uniqueID).Str("status", string(status)).Msg("Ignoring shelf item toggle")
	}
	return nil
}

// Policy returns the configured toggle policy.
func (r *Reconciler) Policy() TodoPolicy {
	return r.policy
}
