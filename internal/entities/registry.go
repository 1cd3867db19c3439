// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package entities

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/bggsync/internal/events"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/metrics"
)

var (
	// ErrEntityNotFound is returned for an unknown unique ID.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrEntityExists is returned by Create for a registered unique ID.
	ErrEntityExists = errors.New("entity already registered")
)

// Record is a registered entity as the host sees it.
type Record struct {
	Kind     Kind   `json:"kind"`
	UniqueID string `json:"unique_id"`
	Username string `json:"username"`
	Description
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordOf converts an entity into a registry record.
func RecordOf(e Entity) Record {
	return Record{
		Kind:        e.Kind(),
		UniqueID:    e.UniqueID(),
		Username:    e.Username(),
		Description: e.Describe(),
	}
}

// Registry is the host entity registry.
type Registry interface {
	Create(ctx context.Context, r Record) error
	Update(ctx context.Context, r Record) error
	Remove(ctx context.Context, uniqueID string) error
	List(ctx context.Context, username string) ([]Record, error)
}

// MemoryRegistry is an in-process Registry. Mutations are published as
// entity.changed events when a publisher is set.
type MemoryRegistry struct {
	mu        sync.RWMutex
	records   map[string]Record
	publisher events.Publisher
	now       func() time.Time
}

// NewMemoryRegistry creates an empty registry. publisher may be nil.
func NewMemoryRegistry(publisher events.Publisher) *MemoryRegistry {
	return &MemoryRegistry{
		records:   map[string]Record{},
		publisher: publisher,
		now:       time.Now,
	}
}

// Create registers a new entity.
func (m *MemoryRegistry) Create(ctx context.Context, r Record) error {
	m.mu.Lock()
	if _, exists := m.records[r.UniqueID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEntityExists, r.UniqueID)
	}
	r.UpdatedAt = m.now().UTC()
	m.records[r.UniqueID] = r
	m.refreshGauges()
	m.mu.Unlock()

	m.publish(ctx, events.OpCreate, r)
	return nil
}

// Update replaces a registered entity's description.
func (m *MemoryRegistry) Update(ctx context.Context, r Record) error {
	m.mu.Lock()
	if _, exists := m.records[r.UniqueID]; !exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEntityNotFound, r.UniqueID)
	}
	r.UpdatedAt = m.now().UTC()
	m.records[r.UniqueID] = r
	m.mu.Unlock()

	m.publish(ctx, events.OpUpdate, r)
	return nil
}

// Remove unregisters an entity.
func (m *MemoryRegistry) Remove(ctx context.Context, uniqueID string) error {
	m.mu.Lock()
	r, exists := m.records[uniqueID]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEntityNotFound, uniqueID)
	}
	delete(m.records, uniqueID)
	m.refreshGauges()
	m.mu.Unlock()

	m.publish(ctx, events.OpRemove, r)
	return nil
}

// List returns the entities of username, or of every account when username
// is empty, sorted by kind then unique ID.
func (m *MemoryRegistry) List(_ context.Context, username string) ([]Record, error) {
	m.mu.RLock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		if username == "" || r.Username == username {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].UniqueID < out[j].UniqueID
	})
	return out, nil
}

// Get returns one entity.
func (m *MemoryRegistry) Get(uniqueID string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[uniqueID]
	return r, ok
}

// refreshGauges recomputes entities_registered. Callers hold m.mu.
func (m *MemoryRegistry) refreshGauges() {
	counts := make(map[Kind]int, len(Kinds))
	for _, r := range m.records {
		counts[r.Kind]++
	}
	for _, k := range Kinds {
		metrics.EntitiesRegistered.WithLabelValues(string(k)).Set(float64(counts[k]))
	}
}

func (m *MemoryRegistry) publish(ctx context.Context, op string, r Record) {
	if m.publisher == nil {
		return
	}
	evt := events.EntityChanged{
		Operation: op,
		Kind:      string(r.Kind),
		UniqueID:  r.UniqueID,
		Username:  r.Username,
		Name:      r.Name,
		State:     r.State,
		Available: r.Available,
		Attrs:     r.Attributes,
	}
	if err := m.publisher.Publish(ctx, events.TopicEntityChanged, evt); err != nil {
		logging.CtxWarn(ctx).Err(err).Str("entity", r.UniqueID).Msg("Failed to publish entity change")
	}
}
