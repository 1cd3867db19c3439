// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package models

import (
	"reflect"
	"testing"

	"github.com/goccy/go-json"
)

func TestNewCollectionSnapshot_UniquePerKey(t *testing.T) {
	entries := []CollectionEntry{
		{GameID: 1, SubType: SubTypeBoardGame, Name: "First"},
		{GameID: 1, SubType: SubTypeBoardGame, Name: "First (again)"},
		{GameID: 1, SubType: SubTypeExpansion, Name: "First as expansion"},
		{GameID: 2, SubType: SubTypeBoardGame, Name: "Second"},
	}

	snap := NewCollectionSnapshot(entries)
	if snap.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", snap.Len())
	}

	seen := make(map[CollectionKey]int)
	for _, e := range snap.List() {
		seen[e.Key()]++
	}
	for k, n := range seen {
		if n != 1 {
			t.Errorf("key %+v appears %d times", k, n)
		}
	}

	got := snap.Entries[CollectionKey{GameID: 1, SubType: SubTypeBoardGame}]
	if got.Name != "First (again)" {
		t.Errorf("duplicate key kept %q, want last entry", got.Name)
	}
}

func TestCollectionSnapshot_Counts(t *testing.T) {
	snap := NewCollectionSnapshot([]CollectionEntry{
		{GameID: 1, SubType: SubTypeBoardGame, Status: CollectionStatus{Own: true, WantToPlay: true}},
		{GameID: 2, SubType: SubTypeExpansion, Status: CollectionStatus{Own: true, ForTrade: true}},
		{GameID: 3, SubType: SubTypeBoardGame, Status: CollectionStatus{Wishlist: true, WantToBuy: true}},
		{GameID: 4, SubType: SubTypeBoardGame, Status: CollectionStatus{Preordered: true}},
	})

	want := CollectionCounts{
		Owned:           2,
		OwnedBoardGames: 1,
		OwnedExpansions: 1,
		Wishlist:        1,
		WantToPlay:      1,
		WantToBuy:       1,
		ForTrade:        1,
		Preordered:      1,
	}
	if got := snap.Counts(); got != want {
		t.Errorf("Counts() = %+v, want %+v", got, want)
	}

	if ids := snap.OwnedGameIDs(); !reflect.DeepEqual(ids, []int{1, 2}) {
		t.Errorf("OwnedGameIDs() = %v, want [1 2]", ids)
	}
}

func TestCollectionSnapshot_JSONRoundTripKeepsEntries(t *testing.T) {
	snap := NewCollectionSnapshot([]CollectionEntry{
		{GameID: 7, SubType: SubTypeBoardGame, Name: "Seven"},
	})
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back CollectionSnapshot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Entries, snap.Entries) {
		t.Errorf("entries differ after round trip: %+v", back.Entries)
	}

	var empty CollectionSnapshot
	data, _ = json.Marshal(empty)
	if string(data) != "null" {
		t.Errorf("unfetched collection encodes as %s, want null", data)
	}
}

func TestSortPlays_NewestFirst(t *testing.T) {
	plays := []Play{
		{ID: 10, Date: "2024-01-01"},
		{ID: 12, Date: "2024-03-01"},
		{ID: 11, Date: "2024-03-01"},
		{ID: 9, Date: "2023-12-31"},
	}
	SortPlays(plays)

	var ids []int
	for _, p := range plays {
		ids = append(ids, p.ID)
	}
	if !reflect.DeepEqual(ids, []int{12, 11, 10, 9}) {
		t.Errorf("order = %v", ids)
	}

	latest, ok := PlaySnapshot{Plays: plays}.Latest()
	if !ok || latest.ID != 12 {
		t.Errorf("Latest() = %d, %v", latest.ID, ok)
	}
}

func TestCoordinatorSnapshot_CloneIsIndependent(t *testing.T) {
	orig := CoordinatorSnapshot{
		Username:   "alice",
		Metadata:   map[int]GameMetadata{1: {ID: 1, Name: "One"}},
		GamePlays:  map[int]int{1: 3},
		Collection: NewCollectionSnapshot([]CollectionEntry{{GameID: 1, SubType: SubTypeBoardGame}}),
	}

	c := orig.Clone()
	c.Metadata[2] = GameMetadata{ID: 2}
	c.GamePlays[1] = 99
	delete(c.Collection.Entries, CollectionKey{GameID: 1, SubType: SubTypeBoardGame})

	if len(orig.Metadata) != 1 || orig.GamePlays[1] != 3 || orig.Collection.Len() != 1 {
		t.Error("mutating the clone changed the original snapshot")
	}
}

func TestCoordinatorSnapshot_GameFallsBackToCollection(t *testing.T) {
	snap := CoordinatorSnapshot{
		Metadata: map[int]GameMetadata{5: {ID: 5}},
		Collection: NewCollectionSnapshot([]CollectionEntry{
			{GameID: 5, SubType: SubTypeBoardGame, Name: "Five", Image: "five.png", NumPlays: 4},
			{GameID: 6, SubType: SubTypeBoardGame, Name: "Six"},
		}),
	}

	m, ok := snap.Game(5)
	if !ok || m.Name != "Five" || m.Image != "five.png" {
		t.Errorf("Game(5) = %+v, %v", m, ok)
	}
	if m, ok := snap.Game(6); !ok || m.Name != "Six" {
		t.Errorf("Game(6) = %+v, %v", m, ok)
	}
	if _, ok := snap.Game(7); ok {
		t.Error("Game(7) should be unknown")
	}
	if n := snap.PlayCount(5); n != 4 {
		t.Errorf("PlayCount(5) = %d, want 4", n)
	}
}

func TestTrackedAccount_UpsertGame(t *testing.T) {
	acct := NewTrackedAccount("alice")
	if !acct.EnableShelfTodo {
		t.Error("shelf to-do should default to enabled")
	}

	if !acct.UpsertGame(13, GameOverride{}) {
		t.Error("first upsert should report a new game")
	}
	if acct.UpsertGame(13, GameOverride{NFCTag: "tag"}) {
		t.Error("second upsert should not report a new game")
	}
	if acct.Games[13].NFCTag != "tag" {
		t.Error("override not replaced")
	}

	clone := acct.Clone()
	clone.Games[99] = GameOverride{}
	if _, ok := acct.Games[99]; ok {
		t.Error("clone shares its games map")
	}
}

func TestPlayRecordRequest_Winners(t *testing.T) {
	req := PlayRecordRequest{Players: []PlayerEntry{
		{Name: "Ann", Win: true},
		{Name: "Bob"},
		{Username: "carol", Win: true},
	}}
	if got := req.Winners(); !reflect.DeepEqual(got, []string{"Ann", "carol"}) {
		t.Errorf("Winners() = %v", got)
	}
}
