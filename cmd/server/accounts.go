// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/bggsync/internal/config"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/models"
	"github.com/tomtom215/bggsync/internal/store"
)

// loadAccounts merges accounts declared in configuration with accounts
// previously added through the API. A configured account takes its
// credentials and options from configuration, keeps the games tracked on the
// stored copy (the stored override wins for a game in both) and is written
// back so the store stays the single list the API edits. Stored accounts that
// lost their token (no ENCRYPTION_KEY) are skipped.
func loadAccounts(ctx context.Context, cfg *config.Config, accounts store.AccountStore) ([]models.TrackedAccount, error) {
	seeded, err := cfg.SeedAccounts()
	if err != nil {
		return nil, fmt.Errorf("seed accounts: %w", err)
	}

	stored, err := accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored accounts: %w", err)
	}

	storedByName := make(map[string]models.TrackedAccount, len(stored))
	byName := make(map[string]models.TrackedAccount, len(seeded)+len(stored))
	for _, acct := range stored {
		key := strings.ToLower(acct.Username)
		storedByName[key] = acct
		if acct.Token == "" {
			logging.Warn().Str("username", acct.Username).Msg("Stored account has no token, skipping; re-add it or set ENCRYPTION_KEY")
			continue
		}
		byName[key] = acct
	}
	for _, acct := range seeded {
		if prev, ok := storedByName[strings.ToLower(acct.Username)]; ok {
			acct = mergeStoredGames(acct, prev)
		}
		if err := accounts.Put(ctx, acct); err != nil {
			return nil, fmt.Errorf("store account %s: %w", acct.Username, err)
		}
		byName[strings.ToLower(acct.Username)] = acct
	}

	out := make([]models.TrackedAccount, 0, len(byName))
	for _, acct := range byName {
		out = append(out, acct)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})

	logging.Info().
		Int("configured", len(seeded)).
		Int("stored", len(stored)).
		Int("tracked", len(out)).
		Msg("Accounts loaded")
	return out, nil
}

// mergeStoredGames adds the games tracked on the stored copy of a configured
// account. Games only in configuration keep their (empty) override.
func mergeStoredGames(configured, stored models.TrackedAccount) models.TrackedAccount {
	out := configured.Clone()
	if !stored.CreatedAt.IsZero() {
		out.CreatedAt = stored.CreatedAt
	}
	for id, override := range stored.Games {
		out.Games[id] = override
	}
	return out
}
