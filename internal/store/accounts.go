// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/bggsync/internal/config"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/models"
)

// AccountStore persists tracked accounts.
type AccountStore interface {
	List(ctx context.Context) ([]models.TrackedAccount, error)
	Get(ctx context.Context, username string) (models.TrackedAccount, error)
	Put(ctx context.Context, account models.TrackedAccount) error
	Delete(ctx context.Context, username string) error
}

// storedAccount is the on-disk form of a TrackedAccount.
type storedAccount struct {
	Username         string                      `json:"username"`
	TokenEnc         string                      `json:"token_enc,omitempty"`
	PasswordEnc      string                      `json:"password_enc,omitempty"`
	TrackCollection  bool                        `json:"track_collection"`
	LogPlays         bool                        `json:"log_plays"`
	ImportCollection bool                        `json:"import_collection"`
	EnableShelfTodo  bool                        `json:"enable_shelf_todo"`
	Games            map[int]models.GameOverride `json:"games,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// BadgerAccountStore stores accounts with their token and password
// encrypted by a CredentialEncryptor. Without an encryptor credentials are
// not written at all and must be supplied again on every start.
type BadgerAccountStore struct {
	db  *badger.DB
	enc *config.CredentialEncryptor
}

// NewAccountStore creates an account store. enc may be nil.
func NewAccountStore(d *DB, enc *config.CredentialEncryptor) *BadgerAccountStore {
	if enc == nil {
		logging.Warn().Msg("No encryption key configured: account credentials will not be persisted")
	}
	return &BadgerAccountStore{db: d.db, enc: enc}
}

func (s *BadgerAccountStore) seal(plain string) (string, error) {
	if plain == "" || s.enc == nil {
		return "", nil
	}
	return s.enc.Encrypt(plain)
}

func (s *BadgerAccountStore) open(sealed string) (string, error) {
	if sealed == "" || s.enc == nil {
		return "", nil
	}
	return s.enc.Decrypt(sealed)
}

func (s *BadgerAccountStore) encode(a models.TrackedAccount) ([]byte, error) {
	token, err := s.seal(a.Token)
	if err != nil {
		return nil, fmt.Errorf("encrypt token: %w", err)
	}
	password, err := s.seal(a.Password)
	if err != nil {
		return nil, fmt.Errorf("encrypt password: %w", err)
	}
	return json.Marshal(storedAccount{
		Username:         a.Username,
		TokenEnc:         token,
		PasswordEnc:      password,
		TrackCollection:  a.TrackCollection,
		LogPlays:         a.LogPlays,
		ImportCollection: a.ImportCollection,
		EnableShelfTodo:  a.EnableShelfTodo,
		Games:            a.Games,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	})
}

func (s *BadgerAccountStore) decode(val []byte) (models.TrackedAccount, error) {
	var sa storedAccount
	if err := json.Unmarshal(val, &sa); err != nil {
		return models.TrackedAccount{}, fmt.Errorf("unmarshal account: %w", err)
	}
	account := models.TrackedAccount{
		Username:         sa.Username,
		TrackCollection:  sa.TrackCollection,
		LogPlays:         sa.LogPlays,
		ImportCollection: sa.ImportCollection,
		EnableShelfTodo:  sa.EnableShelfTodo,
		Games:            sa.Games,
		CreatedAt:        sa.CreatedAt,
		UpdatedAt:        sa.UpdatedAt,
	}
	if account.Games == nil {
		account.Games = map[int]models.GameOverride{}
	}

	token, err := s.open(sa.TokenEnc)
	if err != nil {
		return account, fmt.Errorf("decrypt token for %s: %w", sa.Username, err)
	}
	password, err := s.open(sa.PasswordEnc)
	if err != nil {
		return account, fmt.Errorf("decrypt password for %s: %w", sa.Username, err)
	}
	account.Token = token
	account.Password = password
	return account, nil
}

// Put creates or replaces an account.
func (s *BadgerAccountStore) Put(ctx context.Context, account models.TrackedAccount) error {
	data, err := s.encode(account)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(userKey(accountKeyPrefix, account.Username), data); err != nil {
			return fmt.Errorf("set account: %w", err)
		}
		return nil
	})
}

// Get returns the account stored under username (case-insensitive).
func (s *BadgerAccountStore) Get(ctx context.Context, username string) (models.TrackedAccount, error) {
	var account models.TrackedAccount
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(accountKeyPrefix, username))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		return item.Value(func(val []byte) error {
			a, err := s.decode(val)
			account = a
			return err
		})
	})
	return account, err
}

// List returns all accounts sorted by username. Accounts whose credentials
// cannot be decrypted, for example after an encryption key change, are
// returned without credentials and logged.
func (s *BadgerAccountStore) List(ctx context.Context) ([]models.TrackedAccount, error) {
	var accounts []models.TrackedAccount
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(accountKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				a, err := s.decode(val)
				if err != nil {
					if a.Username == "" {
						return err
					}
					logging.Warn().Err(err).Str("username", a.Username).Msg("Stored credentials unreadable, re-enter token and password")
				}
				accounts = append(accounts, a)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Username < accounts[j].Username })
	return accounts, nil
}

// Delete removes an account and its stored snapshot. Deleting a missing
// account is not an error.
func (s *BadgerAccountStore) Delete(ctx context.Context, username string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, prefix := range []string{accountKeyPrefix, snapshotKeyPrefix} {
			if err := txn.Delete(userKey(prefix, username)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete account: %w", err)
			}
		}
		return nil
	})
}
