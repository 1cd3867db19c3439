// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/bggsync/internal/models"
)

// SnapshotStore keeps the last published snapshot per account so entities
// can be restored, marked stale, before the first cycle after a restart.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *models.CoordinatorSnapshot) error
	LoadSnapshot(ctx context.Context, username string) (*models.CoordinatorSnapshot, bool, error)
}

// BadgerSnapshotStore implements SnapshotStore.
type BadgerSnapshotStore struct {
	db *badger.DB
}

// NewSnapshotStore creates a snapshot store.
func NewSnapshotStore(d *DB) *BadgerSnapshotStore {
	return &BadgerSnapshotStore{db: d.db}
}

// SaveSnapshot stores snap under its username.
func (s *BadgerSnapshotStore) SaveSnapshot(ctx context.Context, snap *models.CoordinatorSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(snapshotKeyPrefix, snap.Username), data)
	})
}

// LoadSnapshot returns the stored snapshot for username, if any.
func (s *BadgerSnapshotStore) LoadSnapshot(ctx context.Context, username string) (*models.CoordinatorSnapshot, bool, error) {
	var snap models.CoordinatorSnapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(snapshotKeyPrefix, username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot: %w", err)
	}
	return &snap, true, nil
}
