// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

// Package store persists tracked accounts, cached game metadata and the last
// good snapshot per account in BadgerDB.
//
// Key layout:
//
//	account:<lowercase username>   -> storedAccount (credentials encrypted)
//	meta:<game id>                 -> models.GameMetadata
//	snapshot:<lowercase username>  -> models.CoordinatorSnapshot
//
// Values are JSON encoded with goccy/go-json.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/bggsync/internal/config"
	"github.com/tomtom215/bggsync/internal/logging"
)

// Key prefixes for BadgerDB storage
const (
	accountKeyPrefix  = "account:"
	metadataKeyPrefix = "meta:"
	snapshotKeyPrefix = "snapshot:"
)

// ErrAccountNotFound is returned when no account is stored under a username.
var ErrAccountNotFound = errors.New("account not found")

// DB owns the badger database shared by the stores in this package.
type DB struct {
	db *badger.DB
}

// Open opens the database described by cfg. An in-memory database is used
// when cfg.InMemory is set.
func Open(cfg config.StoreConfig) (*DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db at %q: %w", cfg.Path, err)
	}
	return &DB{db: db}, nil
}

// OpenInMemory opens a throwaway in-memory database.
func OpenInMemory() (*DB, error) {
	return Open(config.StoreConfig{InMemory: true})
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// CollectGarbage rewrites value log files until badger reports nothing left
// to reclaim. It is a no-op for in-memory databases.
func (d *DB) CollectGarbage(discardRatio float64) error {
	for {
		err := d.db.RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
	}
}

func userKey(prefix, username string) []byte {
	return []byte(prefix + strings.ToLower(username))
}

// badgerLogger forwards badger's warnings and errors to zerolog. Info and
// debug output is dropped; badger is chatty about compactions.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", "badger").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", "badger").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Infof(string, ...interface{}) {}

func (badgerLogger) Debugf(string, ...interface{}) {}
