// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tomtom215/bggsync/internal/models"
)

// ParseGameList parses the legacy comma-separated game ID list, e.g.
// "13, 822,  174430". Empty entries are skipped; duplicates collapse.
func ParseGameList(csv string) ([]int, error) {
	seen := make(map[int]struct{})
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid game id %q", part)
		}
		seen[id] = struct{}{}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// ParseAccountSpecs parses BGG_ACCOUNTS. Accounts are separated by ';' and
// each is "username[:token[:games]]", where games is a legacy game list:
//
//	BGG_ACCOUNTS="alice:tok123:13,822;bob:tok456"
func ParseAccountSpecs(spec string) ([]AccountConfig, error) {
	var out []AccountConfig
	for _, raw := range strings.Split(spec, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 3)
		acct := AccountConfig{Username: strings.TrimSpace(parts[0])}
		if acct.Username == "" {
			return nil, fmt.Errorf("BGG_ACCOUNTS entry %q has no username", raw)
		}
		if len(parts) > 1 {
			acct.Token = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			acct.Games = parts[2]
		}
		out = append(out, acct)
	}
	return out, nil
}

// ToTrackedAccount converts a seed entry into a tracked account.
func (a AccountConfig) ToTrackedAccount() (models.TrackedAccount, error) {
	acct := models.NewTrackedAccount(strings.TrimSpace(a.Username))
	if acct.Username == "" {
		return models.TrackedAccount{}, fmt.Errorf("account username is required")
	}
	acct.Token = a.Token
	acct.Password = a.Password
	acct.LogPlays = a.LogPlays
	acct.ImportCollection = a.ImportCollection
	if a.TrackCollection != nil {
		acct.TrackCollection = *a.TrackCollection
	}
	if a.EnableShelfTodo != nil {
		acct.EnableShelfTodo = *a.EnableShelfTodo
	}

	ids, err := ParseGameList(a.Games)
	if err != nil {
		return models.TrackedAccount{}, fmt.Errorf("account %s: %w", acct.Username, err)
	}
	for _, id := range ids {
		acct.Games[id] = models.GameOverride{}
	}
	for _, g := range a.TrackedGames {
		if g.ID <= 0 {
			return models.TrackedAccount{}, fmt.Errorf("account %s: invalid tracked game id %d", acct.Username, g.ID)
		}
		acct.Games[g.ID] = models.GameOverride{NFCTag: g.NFCTag, Music: g.Music, CustomImage: g.CustomImage}
	}

	if acct.LogPlays && acct.Password == "" {
		return models.TrackedAccount{}, fmt.Errorf("account %s: log_plays requires a password", acct.Username)
	}
	return acct, nil
}

// SeedAccounts returns the accounts declared in the config file and in
// BGG_ACCOUNTS. A username may appear only once across both sources.
func (c *Config) SeedAccounts() ([]models.TrackedAccount, error) {
	fromEnv, err := ParseAccountSpecs(c.BGG.AccountsSpec)
	if err != nil {
		return nil, err
	}

	all := make([]AccountConfig, 0, len(c.Accounts)+len(fromEnv))
	all = append(all, c.Accounts...)
	all = append(all, fromEnv...)

	seen := make(map[string]struct{}, len(all))
	out := make([]models.TrackedAccount, 0, len(all))
	for _, a := range all {
		acct, err := a.ToTrackedAccount()
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(acct.Username)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("account %s is configured more than once", acct.Username)
		}
		seen[key] = struct{}{}
		out = append(out, acct)
	}
	return out, nil
}
