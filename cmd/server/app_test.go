// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/bggsync/internal/config"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/models"
	"github.com/tomtom215/bggsync/internal/store"
	"github.com/tomtom215/bggsync/internal/supervisor"
	"github.com/tomtom215/bggsync/internal/testinfra"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

func writeConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	return cfg
}

func testConfig(t *testing.T, bggURL string) *config.Config {
	return writeConfig(t, fmt.Sprintf(`
bgg:
  base_url: %s
  rate_limit: 100
  rate_burst: 10
  max_retries: 1
  retry_base_delay: 1ms
sync:
  interval: 1h
  pending_retries: 0
store:
  in_memory: true
server:
  host: 127.0.0.1
  port: 18765
security:
  encryption_key: test-encryption-key-0123
  rate_limit_disabled: true
accounts:
  - username: alice
    token: tok
    password: s3cret
    log_plays: true
    games: "13"
`, bggURL))
}

func TestLoadAccounts_MergesConfigAndStore(t *testing.T) {
	cfg := writeConfig(t, `
store:
  in_memory: true
accounts:
  - username: Alice
    token: new-token
`)
	db, err := store.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	enc, _ := config.NewCredentialEncryptor("test-encryption-key-0123")
	accounts := store.NewAccountStore(db, enc)
	ctx := context.Background()

	old := models.NewTrackedAccount("alice")
	old.Token = "old-token"
	bob := models.NewTrackedAccount("bob")
	bob.Token = "bob-token"
	for _, a := range []models.TrackedAccount{old, bob} {
		if err := accounts.Put(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	got, err := loadAccounts(ctx, cfg, accounts)
	if err != nil {
		t.Fatalf("loadAccounts: %v", err)
	}
	if len(got) != 2 || got[0].Username != "Alice" || got[1].Username != "bob" {
		t.Fatalf("accounts = %+v, want [Alice bob]", got)
	}
	if got[0].Token != "new-token" {
		t.Errorf("configured account did not replace the stored one: token %q", got[0].Token)
	}

	stored, err := accounts.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Token != "new-token" {
		t.Errorf("configured account not written back, token %q", stored.Token)
	}
}

func TestLoadAccounts_KeepsGamesTrackedAtRuntime(t *testing.T) {
	cfg := writeConfig(t, `
store:
  in_memory: true
accounts:
  - username: alice
    token: tok
    games: "13,30549"
`)
	db, err := store.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	enc, _ := config.NewCredentialEncryptor("test-encryption-key-0123")
	accounts := store.NewAccountStore(db, enc)
	ctx := context.Background()

	first, err := loadAccounts(ctx, cfg, accounts)
	if err != nil {
		t.Fatalf("first loadAccounts: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("accounts = %+v", first)
	}

	// track_game between restarts: a new game and an override on a
	// configured one.
	alice := first[0]
	alice.UpsertGame(822, models.GameOverride{})
	alice.UpsertGame(13, models.GameOverride{NFCTag: "04:A2"})
	if err := accounts.Put(ctx, alice); err != nil {
		t.Fatal(err)
	}

	second, err := loadAccounts(ctx, cfg, accounts)
	if err != nil {
		t.Fatalf("second loadAccounts: %v", err)
	}
	games := second[0].Games
	for _, id := range []int{13, 822, 30549} {
		if _, ok := games[id]; !ok {
			t.Errorf("game %d lost across restart: %v", id, games)
		}
	}
	if games[13].NFCTag != "04:A2" {
		t.Errorf("override for 13 = %+v, want the stored one", games[13])
	}

	stored, err := accounts.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := stored.Games[822]; !ok {
		t.Errorf("merged account not written back: %v", stored.Games)
	}
}

func TestLoadAccounts_SkipsAccountsWithoutToken(t *testing.T) {
	cfg := writeConfig(t, "store:\n  in_memory: true\n")
	db, err := store.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// Without an encryptor the store keeps no credentials.
	accounts := store.NewAccountStore(db, nil)
	a := models.NewTrackedAccount("carol")
	a.Token = "dropped"
	if err := accounts.Put(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	got, err := loadAccounts(context.Background(), cfg, accounts)
	if err != nil {
		t.Fatalf("loadAccounts: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("accounts = %+v, want none", got)
	}
}

func TestLoadAccounts_InvalidSeed(t *testing.T) {
	cfg := &config.Config{BGG: config.BGGConfig{AccountsSpec: "alice:tok:13,abc"}}
	db, err := store.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := loadAccounts(context.Background(), cfg, store.NewAccountStore(db, nil)); err == nil {
		t.Error("expected error for invalid game list")
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func call(t *testing.T, method, url string, body any) envelope {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, url, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s %s: %v", method, url, err)
	}
	return env
}

func TestApp_EndToEnd(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	fake.SetToken("alice", "tok")
	fake.SetPassword("alice", "s3cret")
	fake.SetPlays("alice", testinfra.PlaysXML(1, testinfra.PlayFixture{
		ID: 1, GameID: 13, GameName: "CATAN", Date: "2024-01-01",
	}))
	fake.SetGamePlays("alice", 13, 1)
	fake.SetCollection("alice", "boardgame", testinfra.CollectionXML(testinfra.CollectionItemFixture{
		GameID: 13, Name: "CATAN", Own: true, NumPlays: 1, Rank: "500",
	}))
	fake.SetCollection("alice", "boardgameexpansion", testinfra.CollectionXML())
	fake.AddThings(testinfra.ThingFixture{ID: 13, Type: "boardgame", Name: "CATAN", Year: 1995})

	cfg := testConfig(t, fake.URL())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	// The test drives the router directly instead of the fixed port.
	a.server.Addr = "127.0.0.1:0"
	srv := httptest.NewServer(a.server.Handler)
	defer srv.Close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{ShutdownTimeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	a.Supervise(tree)
	errCh := tree.ServeBackground(ctx)
	defer func() {
		cancel()
		<-errCh
	}()

	var records []struct {
		Kind     string `json:"kind"`
		UniqueID string `json:"unique_id"`
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		env := call(t, http.MethodGet, srv.URL+"/api/v1/entities?username=alice&kind=game_sensor", nil)
		if env.Success {
			_ = json.Unmarshal(env.Data, &records)
		}
		if len(records) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no game sensor appeared after the first refresh")
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !strings.Contains(records[0].UniqueID, "13") {
		t.Errorf("game sensor unique id = %q, want one for game 13", records[0].UniqueID)
	}

	env := call(t, http.MethodPost, srv.URL+"/api/v1/actions/record_play", map[string]any{
		"username": "alice",
		"game_id":  13,
		"date":     "2024-02-03",
		"players":  []map[string]any{{"name": "Alice", "win": true}},
	})
	if !env.Success {
		t.Fatalf("record_play failed: %+v", env.Error)
	}
	subs := fake.Submissions()
	if len(subs) != 1 || subs[0].Get("objectid") != "13" || subs[0].Get("playdate") != "2024-02-03" {
		t.Errorf("submissions = %v", subs)
	}

	health := call(t, http.MethodGet, srv.URL+"/api/v1/health/ready", nil)
	if !health.Success {
		t.Errorf("ready check failed: %+v", health.Error)
	}
}
