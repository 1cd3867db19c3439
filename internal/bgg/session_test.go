// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package bgg

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/bggsync/internal/models"
	"github.com/tomtom215/bggsync/internal/testinfra"
)

func testPlay() models.PlayRecordRequest {
	return models.PlayRecordRequest{
		Username: "alice",
		GameID:   13,
		Date:     "2024-05-01",
		Length:   45,
		Comments: "Close game",
		Location: "Home",
		Players: []models.PlayerEntry{
			{Name: "Alice", Username: "alice", Win: true, Score: "10", Color: "red"},
			{Name: "Bob", Score: "8"},
		},
	}
}

func newTestSession(t *testing.T, fake *testinfra.FakeBGG) *Session {
	t.Helper()
	fake.SetPassword("alice", "s3cret")
	client := NewClient(testConfig(fake.URL()))
	s, err := client.NewSession("alice", "s3cret")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestNewSession_RequiresPassword(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:1"))
	if _, err := client.NewSession("alice", ""); !errors.Is(err, ErrNoPassword) {
		t.Fatalf("expected ErrNoPassword, got %v", err)
	}
}

func TestSession_SubmitPlay(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	s := newTestSession(t, fake)
	ctx := context.Background()

	ack, err := s.SubmitPlay(ctx, testPlay())
	if err != nil {
		t.Fatalf("SubmitPlay: %v", err)
	}
	if ack.PlayID != 90001 || ack.NumPlays != 1 {
		t.Errorf("unexpected ack %+v", ack)
	}

	if _, err := s.SubmitPlay(ctx, testPlay()); err != nil {
		t.Fatalf("second SubmitPlay: %v", err)
	}
	if got := len(fake.CapturesFor("/login/api/v1")); got != 1 {
		t.Errorf("expected a single login, got %d", got)
	}

	subs := fake.Submissions()
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	form := subs[0]
	checks := map[string]string{
		"action":               "save",
		"objectid":             "13",
		"objecttype":           "thing",
		"playdate":             "2024-05-01",
		"length":               "45",
		"comments":             "Close game",
		"ajax":                 "1",
		"players[0][name]":     "Alice",
		"players[0][win]":      "1",
		"players[0][score]":    "10",
		"players[1][name]":     "Bob",
		"players[1][win]":      "0",
		"players[1][username]": "",
	}
	for k, want := range checks {
		if got := form.Get(k); got != want {
			t.Errorf("form[%s] = %q, want %q", k, got, want)
		}
	}

	geek := fake.CapturesFor("/geekplay.php")[0]
	if got := geek.Headers.Get("Referer"); !strings.HasSuffix(got, "/boardgame/13") {
		t.Errorf("Referer = %q", got)
	}
}

func TestSession_ReloginOnExpiredSession(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	s := newTestSession(t, fake)
	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}

	fake.ExpireSessions(1)
	if _, err := s.SubmitPlay(context.Background(), testPlay()); err != nil {
		t.Fatalf("SubmitPlay after expiry: %v", err)
	}
	if got := len(fake.CapturesFor("/login/api/v1")); got != 2 {
		t.Errorf("expected 2 logins, got %d", got)
	}
	if got := len(fake.Submissions()); got != 1 {
		t.Errorf("expected 1 accepted submission, got %d", got)
	}
}

func TestSession_SecondUnauthorizedIsAuthError(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	s := newTestSession(t, fake)

	fake.ExpireSessions(2)
	_, err := s.SubmitPlay(context.Background(), testPlay())
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
	if ae.Endpoint != EndpointSubmitPlay {
		t.Errorf("Endpoint = %q", ae.Endpoint)
	}
}

func TestSession_LoginFailure(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	fake.SetPassword("alice", "other")
	client := NewClient(testConfig(fake.URL()))
	s, err := client.NewSession("alice", "s3cret")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	_, err = s.SubmitPlay(context.Background(), testPlay())
	var le *LoginError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoginError, got %v", err)
	}
	if le.StatusCode != http.StatusUnauthorized || !IsAuth(err) {
		t.Errorf("unexpected LoginError %+v", le)
	}
	if strings.Contains(le.Body, "s3cret") {
		t.Error("login error body must not contain the password")
	}
	if len(fake.CapturesFor("/geekplay.php")) != 0 {
		t.Error("no play must be submitted when login fails")
	}
}

func TestSession_ErrorBody(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	s := newTestSession(t, fake)
	fake.SetSubmitResponse(http.StatusOK, []byte(`{"error":"Invalid item. Play not saved."}`))

	_, err := s.SubmitPlay(context.Background(), testPlay())
	var se *SubmitError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SubmitError, got %v", err)
	}
	if !strings.Contains(se.Body, "Play not saved") {
		t.Errorf("body not preserved: %q", se.Body)
	}
}

func TestSession_NonOKStatus(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	s := newTestSession(t, fake)
	fake.SetSubmitResponse(http.StatusInternalServerError, []byte("oops"))

	_, err := s.SubmitPlay(context.Background(), testPlay())
	var se *SubmitError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected *SubmitError with 500, got %v", err)
	}
}

func TestSession_EmptyAckIsSuccess(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	s := newTestSession(t, fake)
	fake.SetSubmitResponse(http.StatusOK, []byte(""))

	ack, err := s.SubmitPlay(context.Background(), testPlay())
	if err != nil {
		t.Fatalf("SubmitPlay: %v", err)
	}
	if ack.PlayID != 0 {
		t.Errorf("expected empty ack, got %+v", ack)
	}
}

func TestPlayForm(t *testing.T) {
	req := models.PlayRecordRequest{GameID: 822, Date: "2024-01-01", Incomplete: true}
	form := PlayForm(req)

	if form.Get("length") != "" {
		t.Errorf("zero length must be empty, got %q", form.Get("length"))
	}
	if form.Get("incomplete") != "1" || form.Get("nowinstats") != "0" {
		t.Errorf("flags = %q/%q", form.Get("incomplete"), form.Get("nowinstats"))
	}
	if form.Get("quantity") != "1" {
		t.Errorf("quantity = %q", form.Get("quantity"))
	}
	if _, ok := form["players[0][name]"]; ok {
		t.Error("no player fields expected")
	}
}
