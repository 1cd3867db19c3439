// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package sync

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/bggsync/internal/bgg"
	"github.com/tomtom215/bggsync/internal/config"
	"github.com/tomtom215/bggsync/internal/events"
	"github.com/tomtom215/bggsync/internal/metrics"
	"github.com/tomtom215/bggsync/internal/models"
	"github.com/tomtom215/bggsync/internal/store"
	"github.com/tomtom215/bggsync/internal/testinfra"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, payload)
	return nil
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		Interval:         time.Hour,
		PendingRetries:   3,
		PendingBaseDelay: time.Millisecond,
		CycleTimeout:     10 * time.Second,
	}
}

func openStore(t *testing.T) *store.DB {
	t.Helper()
	d, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func newTestCoordinator(t *testing.T, fetcher bgg.Fetcher, opts ...Option) *Coordinator {
	t.Helper()
	cache, err := store.NewMetadataCache(openStore(t))
	if err != nil {
		t.Fatalf("NewMetadataCache: %v", err)
	}
	return NewCoordinator(fetcher, cache, testSyncConfig(), opts...)
}

func fakeClient(fake *testinfra.FakeBGG) *bgg.Client {
	return bgg.NewClient(&config.BGGConfig{
		BaseURL:        fake.URL(),
		Timeout:        5 * time.Second,
		RateBurst:      1,
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
		ThingBatchSize: bgg.MaxThingBatch,
	})
}

// seedAlice serves a plays document, a two-item board game collection and
// one owned expansion.
func seedAlice(fake *testinfra.FakeBGG) {
	fake.SetToken("alice", "tok")
	fake.SetPlays("alice", testinfra.PlaysXML(12,
		testinfra.PlayFixture{ID: 2, GameID: 13, GameName: "Catan", Date: "2024-03-02"},
		testinfra.PlayFixture{ID: 1, GameID: 822, GameName: "Carcassonne", Date: "2024-03-01"},
	))
	fake.SetCollection("alice", models.SubTypeBoardGame, testinfra.CollectionXML(
		testinfra.CollectionItemFixture{GameID: 13, SubType: models.SubTypeBoardGame, Name: "Catan", NumPlays: 9, Own: true},
		testinfra.CollectionItemFixture{GameID: 822, SubType: models.SubTypeBoardGame, Name: "Carcassonne", Wishlist: true},
	))
	fake.SetCollection("alice", models.SubTypeExpansion, testinfra.CollectionXML(
		testinfra.CollectionItemFixture{GameID: 926, SubType: models.SubTypeExpansion, Name: "Catan: Seafarers", Own: true},
	))
	fake.SetGamePlays("alice", 555, 7)
	fake.AddThings(
		testinfra.ThingFixture{ID: 13, Type: models.SubTypeBoardGame, Name: "Catan", Rank: "400"},
		testinfra.ThingFixture{ID: 555, Type: models.SubTypeBoardGame, Name: "Not Owned"},
	)
}

func aliceAccount() models.TrackedAccount {
	a := models.NewTrackedAccount("alice")
	a.Token = "tok"
	a.UpsertGame(13, models.GameOverride{})
	a.UpsertGame(555, models.GameOverride{})
	return a
}

func TestRefreshNow_FullCycle(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	seedAlice(fake)
	pub := &recordingPublisher{}
	c := newTestCoordinator(t, fakeClient(fake), WithPublisher(pub))
	if err := c.AddAccount(aliceAccount()); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}

	snap, err := c.RefreshNow(context.Background(), "alice")
	if err != nil {
		t.Fatalf("RefreshNow: %v", err)
	}
	if snap.State != models.StateReady || snap.Stale || !snap.Available {
		t.Fatalf("unexpected state %+v", snap)
	}
	if snap.Plays.Total != 12 || len(snap.Plays.Plays) != 2 {
		t.Errorf("plays = %+v", snap.Plays)
	}
	if snap.Collection.Len() != 3 || snap.CollectionStale {
		t.Errorf("collection len = %d stale = %v", snap.Collection.Len(), snap.CollectionStale)
	}

	// Game 13 is in the collection, so only 555 needs a per-game request.
	if len(snap.GamePlays) != 1 || snap.GamePlays[555] != 7 {
		t.Errorf("GamePlays = %v", snap.GamePlays)
	}
	if snap.PlayCount(13) != 9 {
		t.Errorf("PlayCount(13) = %d, want collection numplays 9", snap.PlayCount(13))
	}

	for _, id := range []int{13, 555, 926} {
		if _, ok := snap.Metadata[id]; !ok {
			t.Errorf("metadata for %d missing", id)
		}
	}
	if _, ok := snap.Metadata[822]; ok {
		t.Error("wishlist-only game must not be fetched")
	}
	if latest, _ := snap.Plays.Latest(); latest.ImageURL == "" {
		t.Error("latest play image not attached")
	}
	if pub.count(events.TopicSnapshotUpdated) != 1 {
		t.Errorf("snapshot.updated published %d times", pub.count(events.TopicSnapshotUpdated))
	}

	// A second cycle is served from the metadata cache.
	if _, err := c.RefreshNow(context.Background(), "alice"); err != nil {
		t.Fatalf("second RefreshNow: %v", err)
	}
	if got := len(fake.CapturesFor("/xmlapi2/thing")); got != 1 {
		t.Errorf("thing requests = %d, want 1", got)
	}
}

func TestRefreshNow_PendingThenReady(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	seedAlice(fake)
	fake.SetCollectionPending(2)
	c := newTestCoordinator(t, fakeClient(fake))
	if err := c.AddAccount(aliceAccount()); err != nil {
		t.Fatal(err)
	}

	before := testutil.ToFloat64(metrics.BGGProcessingPending.WithLabelValues("retried"))
	snap, err := c.RefreshNow(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != models.StateReady || snap.CollectionStale {
		t.Fatalf("expected fresh Ready snapshot, got %s stale=%v", snap.State, snap.CollectionStale)
	}
	if snap.Collection.Len() != 3 {
		t.Errorf("collection len = %d", snap.Collection.Len())
	}
	if got := testutil.ToFloat64(metrics.BGGProcessingPending.WithLabelValues("retried")) - before; got != 4 {
		t.Errorf("pending retries = %v, want 4", got)
	}
	if got := len(fake.CapturesFor("/xmlapi2/collection")); got != 6 {
		t.Errorf("collection requests = %d, want 6", got)
	}
}

func TestRefreshNow_PendingExhaustedKeepsPreviousCollection(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	seedAlice(fake)
	c := newTestCoordinator(t, fakeClient(fake))
	if err := c.AddAccount(aliceAccount()); err != nil {
		t.Fatal(err)
	}
	first, err := c.RefreshNow(context.Background(), "alice")
	if err != nil || first.Collection.Len() != 3 {
		t.Fatalf("first cycle: %v %d", err, first.Collection.Len())
	}

	fake.SetCollectionPending(-1)
	fake.SetPlays("alice", testinfra.PlaysXML(13))
	snap, err := c.RefreshNow(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != models.StateReady {
		t.Fatalf("exhaustion must not fail the cycle, got %s", snap.State)
	}
	if !snap.CollectionStale {
		t.Error("collection must be marked stale")
	}
	if snap.Collection.Len() != 3 {
		t.Errorf("previous collection not kept: %d", snap.Collection.Len())
	}
	if snap.Plays.Total != 13 {
		t.Errorf("plays must still refresh, total = %d", snap.Plays.Total)
	}
	// Boardgame sub type: 1 + PendingRetries attempts, then the cycle moves on.
	if got := len(fake.CapturesFor("/xmlapi2/collection")); got != 2+4 {
		t.Errorf("collection requests = %d, want 6", got)
	}
}

func TestRefreshNow_AuthFailureKeepsDataStale(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	seedAlice(fake)
	c := newTestCoordinator(t, fakeClient(fake))
	if err := c.AddAccount(aliceAccount()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RefreshNow(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}

	fake.SetToken("alice", "rotated")
	snap, err := c.RefreshNow(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != models.StateFailed || snap.FailureReason != models.FailureAuth {
		t.Fatalf("expected Failed/auth, got %s/%s", snap.State, snap.FailureReason)
	}
	if snap.Available || !snap.Stale {
		t.Errorf("auth failure: available=%v stale=%v", snap.Available, snap.Stale)
	}
	if snap.Plays.Total != 12 || snap.Collection.Len() != 3 {
		t.Errorf("previous data lost: %+v", snap.Plays)
	}
	if snap.LastSync.IsZero() {
		t.Error("LastSync of the earlier success must be kept")
	}

	// Restoring the token recovers the account.
	fake.SetToken("alice", "tok")
	snap, _ = c.RefreshNow(context.Background(), "alice")
	if snap.State != models.StateReady || !snap.Available || snap.Stale {
		t.Errorf("expected recovery, got %+v", snap.State)
	}
}

func TestRefreshNow_NetworkFailure(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	seedAlice(fake)
	c := newTestCoordinator(t, fakeClient(fake))
	if err := c.AddAccount(aliceAccount()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RefreshNow(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}

	fake.SetIntercept(func(w http.ResponseWriter, r *http.Request) bool {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return true
	})
	snap, _ := c.RefreshNow(context.Background(), "alice")
	if snap.State != models.StateFailed || snap.FailureReason != models.FailureNetwork {
		t.Fatalf("expected Failed/network, got %s/%s", snap.State, snap.FailureReason)
	}
	if !snap.Available || !snap.Stale || snap.Plays.Total != 12 {
		t.Errorf("network failure must keep data available and stale: %+v", snap)
	}
	if snap.LastError == "" {
		t.Error("LastError not recorded")
	}
}

func TestRefreshNow_ParseErrorDropsOnlyThatEndpoint(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	seedAlice(fake)
	c := newTestCoordinator(t, fakeClient(fake))
	if err := c.AddAccount(aliceAccount()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RefreshNow(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}

	fake.SetIntercept(func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == "/xmlapi2/plays" && r.URL.Query().Get("id") == "" {
			_, _ = w.Write([]byte("<plays><play"))
			return true
		}
		return false
	})
	fake.SetGamePlays("alice", 555, 8)

	before := testutil.ToFloat64(metrics.ParseErrors.WithLabelValues("plays"))
	snap, _ := c.RefreshNow(context.Background(), "alice")
	if snap.State != models.StateReady {
		t.Fatalf("parse error must not fail the cycle, got %s", snap.State)
	}
	if snap.Plays.Total != 12 {
		t.Errorf("previous plays not kept: %d", snap.Plays.Total)
	}
	if snap.GamePlays[555] != 8 {
		t.Errorf("other endpoints must refresh, GamePlays = %v", snap.GamePlays)
	}
	if got := testutil.ToFloat64(metrics.ParseErrors.WithLabelValues("plays")) - before; got != 1 {
		t.Errorf("parse errors = %v, want 1", got)
	}
}

func TestRefreshNow_CollectionNotTracked(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	seedAlice(fake)
	fake.SetGamePlays("alice", 13, 4)
	c := newTestCoordinator(t, fakeClient(fake))
	account := aliceAccount()
	account.TrackCollection = false
	if err := c.AddAccount(account); err != nil {
		t.Fatal(err)
	}

	snap, _ := c.RefreshNow(context.Background(), "alice")
	if snap.Collection.Fetched() {
		t.Error("collection must not be fetched")
	}
	if len(fake.CapturesFor("/xmlapi2/collection")) != 0 {
		t.Error("unexpected collection request")
	}
	if snap.GamePlays[13] != 4 || snap.GamePlays[555] != 7 {
		t.Errorf("GamePlays = %v", snap.GamePlays)
	}
}

func TestCoordinator_UnknownAccount(t *testing.T) {
	c := newTestCoordinator(t, &panicFetcher{})
	if err := c.ForceRefresh("nobody"); !errors.Is(err, ErrUnknownAccount) {
		t.Errorf("ForceRefresh: %v", err)
	}
	if _, err := c.RefreshNow(context.Background(), "nobody"); !errors.Is(err, ErrUnknownAccount) {
		t.Errorf("RefreshNow: %v", err)
	}
	if err := c.RemoveAccount("nobody"); !errors.Is(err, ErrUnknownAccount) {
		t.Errorf("RemoveAccount: %v", err)
	}
	if _, err := c.ModifyAccount("nobody", func(*models.TrackedAccount) error { return nil }); !errors.Is(err, ErrUnknownAccount) {
		t.Errorf("ModifyAccount: %v", err)
	}
	if err := c.AddAccount(models.NewTrackedAccount("Bob")); err != nil {
		t.Fatal(err)
	}
	if err := c.AddAccount(models.NewTrackedAccount("bob")); !errors.Is(err, ErrDuplicateAccount) {
		t.Errorf("duplicate AddAccount: %v", err)
	}
}

func TestCoordinator_StartStopAndForceRefresh(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	seedAlice(fake)
	c := newTestCoordinator(t, fakeClient(fake))
	if err := c.AddAccount(aliceAccount()); err != nil {
		t.Fatal(err)
	}

	cycles := make(chan *models.CoordinatorSnapshot, 8)
	c.AddListener(func(s *models.CoordinatorSnapshot) { cycles <- s })

	if err := c.Stop(); err == nil {
		t.Error("Stop before Start must fail")
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(context.Background()); err == nil {
		t.Error("second Start must fail")
	}

	wait := func(what string) *models.CoordinatorSnapshot {
		t.Helper()
		select {
		case s := <-cycles:
			return s
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", what)
			return nil
		}
	}

	if s := wait("initial cycle"); s.State != models.StateReady {
		t.Errorf("initial cycle state = %s", s.State)
	}
	if err := c.ForceRefresh("ALICE"); err != nil {
		t.Fatalf("ForceRefresh: %v", err)
	}
	wait("forced cycle")

	snap, ok := c.Snapshot("alice")
	if !ok || snap.State != models.StateReady {
		t.Errorf("Snapshot = %+v, %v", snap, ok)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestCoordinator_AddAccountWhileRunning(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	seedAlice(fake)
	c := newTestCoordinator(t, fakeClient(fake))

	done := make(chan string, 4)
	c.AddListener(func(s *models.CoordinatorSnapshot) { done <- s.Username })
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Stop() }()

	if err := c.AddAccount(aliceAccount()); err != nil {
		t.Fatal(err)
	}
	select {
	case u := <-done:
		if u != "alice" {
			t.Errorf("cycle for %q", u)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("account added at runtime never refreshed")
	}
}

// panicFetcher panics on every call for the username "boom".
type panicFetcher struct{}

func (panicFetcher) FetchPlays(_ context.Context, username, _ string) ([]byte, error) {
	if username == "boom" {
		panic("malformed upstream state")
	}
	return testinfra.PlaysXML(1), nil
}

func (panicFetcher) FetchGamePlays(context.Context, string, string, int) ([]byte, error) {
	return testinfra.PlaysXML(0), nil
}

func (panicFetcher) FetchCollection(context.Context, string, string, string) ([]byte, error) {
	return testinfra.CollectionXML(), nil
}

func (panicFetcher) FetchGameMetadata(context.Context, string, []int) ([][]byte, error) {
	return nil, nil
}

func (panicFetcher) ValidateAuth(context.Context, string, string) error {
	return nil
}

func TestCoordinator_PanicIsolatedToAccount(t *testing.T) {
	c := newTestCoordinator(t, panicFetcher{})
	for _, name := range []string{"boom", "calm"} {
		if err := c.AddAccount(models.NewTrackedAccount(name)); err != nil {
			t.Fatal(err)
		}
	}

	boom, err := c.RefreshNow(context.Background(), "boom")
	if err != nil {
		t.Fatal(err)
	}
	if boom.State != models.StateFailed || boom.FailureReason != models.FailureInternal {
		t.Errorf("boom = %s/%s", boom.State, boom.FailureReason)
	}
	calm, _ := c.RefreshNow(context.Background(), "calm")
	if calm.State != models.StateReady || calm.Plays.Total != 1 {
		t.Errorf("calm = %+v", calm)
	}
}

func TestCoordinator_RemoveAccount(t *testing.T) {
	pub := &recordingPublisher{}
	c := newTestCoordinator(t, panicFetcher{}, WithPublisher(pub))
	if err := c.AddAccount(models.NewTrackedAccount("calm")); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Stop() }()

	if err := c.RemoveAccount("calm"); err != nil {
		t.Fatalf("RemoveAccount: %v", err)
	}
	if _, ok := c.Snapshot("calm"); ok {
		t.Error("snapshot still present")
	}
	if pub.count(events.TopicAccountRemoved) != 1 {
		t.Error("account.removed not published")
	}
	if len(c.Accounts()) != 0 {
		t.Error("account still listed")
	}
}

func TestCoordinator_RestoresPersistedSnapshot(t *testing.T) {
	d := openStore(t)
	snaps := store.NewSnapshotStore(d)
	prev := &models.CoordinatorSnapshot{
		Username:  "calm",
		State:     models.StateReady,
		Plays:     models.PlaySnapshot{Total: 99},
		Available: true,
	}
	if err := snaps.SaveSnapshot(context.Background(), prev); err != nil {
		t.Fatal(err)
	}

	cache, err := store.NewMetadataCache(d)
	if err != nil {
		t.Fatal(err)
	}
	c := NewCoordinator(panicFetcher{}, cache, testSyncConfig(), WithSnapshotStore(snaps))
	if err := c.AddAccount(models.NewTrackedAccount("calm")); err != nil {
		t.Fatal(err)
	}

	restored, ok := c.Snapshot("calm")
	if !ok || restored.Plays.Total != 99 || !restored.Stale || restored.State != models.StateIdle {
		t.Fatalf("restored = %+v", restored)
	}

	if _, err := c.RefreshNow(context.Background(), "calm"); err != nil {
		t.Fatal(err)
	}
	saved, ok, err := snaps.LoadSnapshot(context.Background(), "calm")
	if err != nil || !ok || saved.Plays.Total != 1 || saved.Stale {
		t.Errorf("saved = %+v ok=%v err=%v", saved, ok, err)
	}
}

func TestModifyAccount_TakesEffectNextCycle(t *testing.T) {
	fake := testinfra.NewFakeBGG(t)
	seedAlice(fake)
	fake.SetGamePlays("alice", 777, 3)
	c := newTestCoordinator(t, fakeClient(fake))
	if err := c.AddAccount(aliceAccount()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RefreshNow(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}

	if _, err := c.ModifyAccount("alice", func(a *models.TrackedAccount) error {
		a.UpsertGame(777, models.GameOverride{NFCTag: "abc"})
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	snap, _ := c.RefreshNow(context.Background(), "alice")
	if snap.GamePlays[777] != 3 {
		t.Errorf("GamePlays = %v", snap.GamePlays)
	}
	if _, ok := snap.Metadata[777]; !ok {
		t.Error("metadata for newly tracked game missing")
	}
}

func TestModifyAccount_ConcurrentUpsertsAreKept(t *testing.T) {
	c := newTestCoordinator(t, &panicFetcher{})
	if err := c.AddAccount(models.NewTrackedAccount("alice")); err != nil {
		t.Fatal(err)
	}

	const n = 200
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := c.ModifyAccount("alice", func(a *models.TrackedAccount) error {
				a.UpsertGame(id, models.GameOverride{})
				return nil
			}); err != nil {
				t.Errorf("ModifyAccount(%d): %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	account, _ := c.Account("alice")
	if len(account.Games) != n {
		t.Errorf("games = %d, want %d", len(account.Games), n)
	}
}

func TestModifyAccount_ErrorLeavesAccountUnchanged(t *testing.T) {
	c := newTestCoordinator(t, &panicFetcher{})
	if err := c.AddAccount(models.NewTrackedAccount("alice")); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("store unavailable")
	_, err := c.ModifyAccount("alice", func(a *models.TrackedAccount) error {
		a.UpsertGame(13, models.GameOverride{})
		a.Username = "mallory"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	account, _ := c.Account("alice")
	if len(account.Games) != 0 {
		t.Errorf("games = %v, want none after a failed modification", account.Games)
	}

	got, err := c.ModifyAccount("alice", func(a *models.TrackedAccount) error {
		a.Username = "mallory"
		return nil
	})
	if err != nil || got.Username != "alice" {
		t.Errorf("username = %q, err = %v; want alice unchanged", got.Username, err)
	}
}

// thingFetcher serves empty plays and collections and answers thing batches
// from fixtures. A batch containing badID gets a truncated document.
type thingFetcher struct {
	panicFetcher

	mu      sync.Mutex
	badID   int
	batches [][]int
}

func (f *thingFetcher) FetchGameMetadata(_ context.Context, _ string, ids []int) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]int(nil), ids...))
	things := make([]testinfra.ThingFixture, 0, len(ids))
	for _, id := range ids {
		if id == f.badID {
			return [][]byte{[]byte(`<?xml version="1.0"?><items><item id="`)}, nil
		}
		things = append(things, testinfra.ThingFixture{ID: id})
	}
	return [][]byte{testinfra.ThingsXML(things...)}, nil
}

func (f *thingFetcher) requested() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int
	for _, b := range f.batches {
		ids = append(ids, b...)
	}
	return ids
}

func TestRefreshNow_MalformedThingBatchKeepsOtherBatches(t *testing.T) {
	fetcher := &thingFetcher{badID: 22}
	c := newTestCoordinator(t, fetcher)
	account := models.NewTrackedAccount("alice")
	account.TrackCollection = false
	for id := 1; id <= 25; id++ {
		account.UpsertGame(id, models.GameOverride{})
	}
	if err := c.AddAccount(account); err != nil {
		t.Fatal(err)
	}

	snap, err := c.RefreshNow(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != models.StateReady {
		t.Fatalf("state = %s (%s), want ready", snap.State, snap.LastError)
	}
	for id := 1; id <= 20; id++ {
		if _, ok := snap.Metadata[id]; !ok {
			t.Errorf("metadata for %d missing although its batch parsed", id)
		}
	}
	if _, ok := snap.Metadata[22]; ok {
		t.Error("metadata for 22 present although its batch was malformed")
	}

	// Only the failed batch is requested again.
	fetcher.mu.Lock()
	fetcher.badID = 0
	fetcher.batches = nil
	fetcher.mu.Unlock()
	snap, err = c.RefreshNow(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got := fetcher.requested(); len(got) != 5 || got[0] != 21 || got[4] != 25 {
		t.Errorf("second cycle requested %v, want 21..25", got)
	}
	if len(snap.Metadata) != 25 {
		t.Errorf("metadata = %d games, want 25", len(snap.Metadata))
	}
}

func TestRefreshMetadata_RefetchesInvalidatedGames(t *testing.T) {
	fetcher := &thingFetcher{}
	c := newTestCoordinator(t, fetcher)
	account := models.NewTrackedAccount("alice")
	account.TrackCollection = false
	account.UpsertGame(13, models.GameOverride{})
	account.UpsertGame(822, models.GameOverride{})
	if err := c.AddAccount(account); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RefreshNow(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}

	fetcher.mu.Lock()
	fetcher.batches = nil
	fetcher.mu.Unlock()
	if err := c.RefreshMetadata(context.Background(), "alice", 822); err != nil {
		t.Fatalf("RefreshMetadata: %v", err)
	}
	if _, err := c.RefreshNow(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}
	if got := fetcher.requested(); len(got) != 1 || got[0] != 822 {
		t.Errorf("requested %v, want [822]", got)
	}

	fetcher.mu.Lock()
	fetcher.batches = nil
	fetcher.mu.Unlock()
	if err := c.RefreshMetadata(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RefreshNow(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}
	if got := fetcher.requested(); len(got) != 2 {
		t.Errorf("requested %v, want every game of the snapshot", got)
	}

	if err := c.RefreshMetadata(context.Background(), "nobody"); !errors.Is(err, ErrUnknownAccount) {
		t.Errorf("unknown account: %v", err)
	}
}
