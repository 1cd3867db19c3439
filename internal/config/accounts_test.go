// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package config

import (
	"reflect"
	"testing"
)

func TestParseGameList(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", []int{}, false},
		{"13", []int{13}, false},
		{" 822, 13,,13 ", []int{13, 822}, false},
		{"13,abc", nil, true},
		{"0", nil, true},
		{"-5", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseGameList(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseGameList(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseGameList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseAccountSpecs(t *testing.T) {
	got, err := ParseAccountSpecs("alice:tok1:13,822; bob:tok2 ;carol;")
	if err != nil {
		t.Fatal(err)
	}
	want := []AccountConfig{
		{Username: "alice", Token: "tok1", Games: "13,822"},
		{Username: "bob", Token: "tok2"},
		{Username: "carol"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v\nwant %+v", got, want)
	}

	if _, err := ParseAccountSpecs(":tok"); err == nil {
		t.Error("expected error for missing username")
	}
}

func TestToTrackedAccount_Defaults(t *testing.T) {
	acct, err := AccountConfig{Username: " alice "}.ToTrackedAccount()
	if err != nil {
		t.Fatal(err)
	}
	if acct.Username != "alice" {
		t.Errorf("username = %q", acct.Username)
	}
	if !acct.TrackCollection || !acct.EnableShelfTodo {
		t.Error("track_collection and enable_shelf_todo default to true")
	}
	if acct.LogPlays || acct.ImportCollection {
		t.Error("log_plays and import_collection default to false")
	}

	off := false
	acct, err = AccountConfig{Username: "bob", TrackCollection: &off, LogPlays: true, Password: "pw"}.ToTrackedAccount()
	if err != nil {
		t.Fatal(err)
	}
	if acct.TrackCollection || !acct.CanLogPlays() {
		t.Errorf("unexpected account %+v", acct)
	}
}
