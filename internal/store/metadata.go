// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/bggsync/internal/models"
)

// MetadataCache holds game metadata shared by all accounts. Entries never
// expire; Invalidate drops them so the next cycle fetches them again.
type MetadataCache interface {
	Get(id int) (models.GameMetadata, bool)
	Lookup(ids []int) (found map[int]models.GameMetadata, missing []int)
	Store(ctx context.Context, meta map[int]models.GameMetadata) error
	Invalidate(ctx context.Context, ids []int) error
	Len() int
}

// BadgerMetadataCache keeps every record in memory and writes through to
// badger so the cache survives restarts.
type BadgerMetadataCache struct {
	db *badger.DB

	mu    sync.RWMutex
	items map[int]models.GameMetadata
}

// NewMetadataCache loads all cached metadata from d.
func NewMetadataCache(d *DB) (*BadgerMetadataCache, error) {
	c := &BadgerMetadataCache{db: d.db, items: map[int]models.GameMetadata{}}
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(metadataKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m models.GameMetadata
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				continue
			}
			if m.ID > 0 {
				c.items[m.ID] = m
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load metadata cache: %w", err)
	}
	return c, nil
}

// Get returns the cached record for id.
func (c *BadgerMetadataCache) Get(id int) (models.GameMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.items[id]
	return m, ok
}

// Lookup splits ids into cached records and IDs that still need fetching.
// missing is sorted and deduplicated.
func (c *BadgerMetadataCache) Lookup(ids []int) (map[int]models.GameMetadata, []int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	found := make(map[int]models.GameMetadata, len(ids))
	seen := make(map[int]struct{}, len(ids))
	var missing []int
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if m, ok := c.items[id]; ok {
			found[id] = m
		} else {
			missing = append(missing, id)
		}
	}
	sort.Ints(missing)
	return found, missing
}

// Store writes meta through to badger and the in-memory map.
func (c *BadgerMetadataCache) Store(ctx context.Context, meta map[int]models.GameMetadata) error {
	if len(meta) == 0 {
		return nil
	}
	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	for id, m := range meta {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal metadata %d: %w", id, err)
		}
		if err := wb.Set([]byte(metadataKeyPrefix+strconv.Itoa(id)), data); err != nil {
			return fmt.Errorf("set metadata %d: %w", id, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush metadata: %w", err)
	}

	c.mu.Lock()
	for id, m := range meta {
		c.items[id] = m
	}
	c.mu.Unlock()
	return nil
}

// Invalidate removes ids from badger and the in-memory map. Unknown IDs are
// ignored.
func (c *BadgerMetadataCache) Invalidate(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	for _, id := range ids {
		if err := wb.Delete([]byte(metadataKeyPrefix + strconv.Itoa(id))); err != nil {
			return fmt.Errorf("delete metadata %d: %w", id, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush metadata: %w", err)
	}

	c.mu.Lock()
	for _, id := range ids {
		delete(c.items, id)
	}
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached games.
func (c *BadgerMetadataCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
