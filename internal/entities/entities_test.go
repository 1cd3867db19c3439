// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package entities

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/bggsync/internal/events"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/metrics"
	"github.com/tomtom215/bggsync/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.EntityChanged
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if evt, ok := payload.(events.EntityChanged); ok && topic == events.TopicEntityChanged {
		p.events = append(p.events, evt)
	}
	return nil
}

func (p *recordingPublisher) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Operation)
	}
	return out
}

func testSnapshot() *models.CoordinatorSnapshot {
	return &models.CoordinatorSnapshot{
		Username: "alice",
		State:    models.StateReady,
		Plays: models.PlaySnapshot{
			Total: 42,
			Plays: []models.Play{
				{ID: 9, GameID: 13, GameName: "Catan", Date: "2024-05-02", Comment: "close game",
					Winners: []string{"Bob"}, Players: []string{"alice"}, Expansions: []string{"Seafarers"}},
				{ID: 8, GameID: 822, GameName: "Carcassonne", Date: "2024-05-01"},
			},
		},
		Collection: models.NewCollectionSnapshot([]models.CollectionEntry{
			{GameID: 13, SubType: models.SubTypeBoardGame, CollID: 501, Name: "Catan", NumPlays: 9, Status: models.CollectionStatus{Own: true}},
			{GameID: 30549, SubType: models.SubTypeBoardGame, Name: "Pandemic", Status: models.CollectionStatus{Own: true, ForTrade: true}},
			{GameID: 822, SubType: models.SubTypeBoardGame, Name: "Carcassonne", Status: models.CollectionStatus{Wishlist: true}},
			{GameID: 926, SubType: models.SubTypeExpansion, Name: "Catan: Seafarers", Status: models.CollectionStatus{Own: true}},
		}),
		Metadata: map[int]models.GameMetadata{
			13: {ID: 13, Name: "Catan", Image: "https://img/13.jpg", Thumbnail: "https://img/13_t.jpg",
				GameStats: models.GameStats{Rank: "400", Rating: 7.14, MinPlayers: 3, MaxPlayers: 4}},
			30549: {ID: 30549, Name: "Pandemic", GameStats: models.GameStats{MinPlayers: 2, MaxPlayers: 4}},
			555:   {ID: 555, Name: "Tracked Only", Image: "https://img/555.jpg"},
		},
		GamePlays: map[int]int{555: 7},
		Available: true,
		LastSync:  time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC),
	}
}

func testAccount() models.TrackedAccount {
	a := models.NewTrackedAccount("alice")
	a.UpsertGame(13, models.GameOverride{NFCTag: "04:A2", CustomImage: "/local/catan.png"})
	a.UpsertGame(555, models.GameOverride{Music: "spotify:playlist:1"})
	return a
}

func byID(list []Entity) map[string]Description {
	out := make(map[string]Description, len(list))
	for _, e := range list {
		out[e.UniqueID()] = e.Describe()
	}
	return out
}

func TestDesired_AccountSensors(t *testing.T) {
	got := byID(Desired(testSnapshot(), testAccount(), DefaultOptions()))

	want := map[string]string{
		"alice_plays":            "42",
		"alice_collection":       "3",
		"alice_owned_boardgames": "2",
		"alice_owned_expansions": "1",
		"alice_wishlist":         "1",
		"alice_want_to_play":     "0",
		"alice_want_to_buy":      "0",
		"alice_for_trade":        "1",
		"alice_preordered":       "0",
	}
	for id, state := range want {
		d, ok := got[id]
		if !ok {
			t.Errorf("%s missing", id)
			continue
		}
		if d.State != state {
			t.Errorf("%s state = %s, want %s", id, d.State, state)
		}
	}

	plays := got["alice_plays"]
	if plays.Attributes["last_play_game"] != "Catan" || plays.Attributes["last_play_date"] != "2024-05-02" {
		t.Errorf("last play attributes = %v", plays.Attributes)
	}
	if !reflect.DeepEqual(plays.Attributes["winners"], []string{"Bob"}) {
		t.Errorf("winners = %v", plays.Attributes["winners"])
	}
	if !reflect.DeepEqual(plays.Attributes["expansions"], []string{"Seafarers"}) {
		t.Errorf("expansions = %v", plays.Attributes["expansions"])
	}
	if recent, _ := plays.Attributes["recent_plays"].([]map[string]any); len(recent) != 2 {
		t.Errorf("recent_plays = %v", plays.Attributes["recent_plays"])
	}
	if _, stale := plays.Attributes["stale"]; stale {
		t.Error("fresh snapshot must not be stale")
	}
}

func TestDesired_GameSensorsApplyOverridesLast(t *testing.T) {
	got := byID(Desired(testSnapshot(), testAccount(), Options{}))

	catan, ok := got["alice_game_13"]
	if !ok {
		t.Fatal("alice_game_13 missing")
	}
	if catan.State != "9" {
		t.Errorf("catan plays = %s, want collection numplays 9", catan.State)
	}
	if catan.Picture != "/local/catan.png" {
		t.Errorf("custom image must win, picture = %q", catan.Picture)
	}
	if catan.Attributes["nfc_tag"] != "04:A2" || catan.Attributes["rank"] != "400" || catan.Attributes["coll_id"] != 501 {
		t.Errorf("catan attributes = %v", catan.Attributes)
	}

	tracked := got["alice_game_555"]
	if tracked.State != "7" || tracked.Picture != "https://img/555.jpg" || tracked.Attributes["music"] != "spotify:playlist:1" {
		t.Errorf("tracked game = %+v", tracked)
	}
	if tracked.Attributes["rank"] != models.NotRanked {
		t.Errorf("rank default = %v", tracked.Attributes["rank"])
	}

	if _, ok := got["alice_game_30549"]; ok {
		t.Error("owned game must not get a sensor without import_collection")
	}
}

func TestDesired_ImportCollection(t *testing.T) {
	account := testAccount()
	account.ImportCollection = true
	got := byID(Desired(testSnapshot(), account, Options{}))

	for _, id := range []string{"alice_game_13", "alice_game_555", "alice_game_30549", "alice_game_926"} {
		if _, ok := got[id]; !ok {
			t.Errorf("%s missing", id)
		}
	}
	if _, ok := got["alice_game_822"]; ok {
		t.Error("wishlist game must not be imported")
	}
}

func TestDesired_ShelfTodo(t *testing.T) {
	list := Desired(testSnapshot(), testAccount(), Options{})
	var todos []TodoItem
	for _, e := range list {
		if ti, ok := e.(TodoItem); ok {
			todos = append(todos, ti)
		}
	}
	if len(todos) != 2 {
		t.Fatalf("todo items = %d, want 2 owned board games", len(todos))
	}
	if todos[0].Summary != "Catan" || todos[1].Summary != "Pandemic" {
		t.Errorf("todo order = %s, %s", todos[0].Summary, todos[1].Summary)
	}
	if todos[0].UniqueID() != "alice_shelf/13" {
		t.Errorf("uid = %s", todos[0].UniqueID())
	}
	if want := "Rank: 400 | Rating: 7.1 | Players: 3-4"; todos[0].Details != want {
		t.Errorf("description = %q, want %q", todos[0].Details, want)
	}
	if want := "Rank: Not Ranked | Rating: N/A | Players: 2-4"; todos[1].Details != want {
		t.Errorf("description = %q, want %q", todos[1].Details, want)
	}

	account := testAccount()
	account.EnableShelfTodo = false
	for _, e := range Desired(testSnapshot(), account, Options{}) {
		if e.Kind() == KindTodoItem {
			t.Fatal("shelf disabled but todo items produced")
		}
	}
}

func TestDesired_NoCollectionTracking(t *testing.T) {
	account := testAccount()
	account.TrackCollection = false
	got := byID(Desired(testSnapshot(), account, Options{}))
	if _, ok := got["alice_collection"]; ok {
		t.Error("collection sensor without collection tracking")
	}
	if _, ok := got["alice_plays"]; !ok {
		t.Error("plays sensor missing")
	}
}

func TestDiff(t *testing.T) {
	desired := []Entity{
		AccountSensor{Account: "a", Key: KeyPlays, Name: "Plays", Value: 2, Available: true},
		AccountSensor{Account: "a", Key: KeyWishlist, Name: "Wishlist", Value: 1, Available: true},
		GameSensor{Account: "a", GameID: 1},
	}
	current := []Record{
		RecordOf(AccountSensor{Account: "a", Key: KeyPlays, Name: "Plays", Value: 1, Available: true}),
		RecordOf(AccountSensor{Account: "a", Key: KeyWishlist, Name: "Wishlist", Value: 1, Available: true}),
		RecordOf(GameSensor{Account: "a", GameID: 2}),
	}

	plan := Diff(current, desired)
	if len(plan.Create) != 1 || plan.Create[0].UniqueID != "a_game_1" {
		t.Errorf("Create = %+v", plan.Create)
	}
	if len(plan.Update) != 1 || plan.Update[0].UniqueID != "a_plays" {
		t.Errorf("Update = %+v", plan.Update)
	}
	if !reflect.DeepEqual(plan.Remove, []string{"a_game_2"}) {
		t.Errorf("Remove = %v", plan.Remove)
	}
	if !Diff(nil, nil).Empty() {
		t.Error("empty diff expected")
	}
}

func TestReconciler_TrackGameWhileReady(t *testing.T) {
	pub := &recordingPublisher{}
	reg := NewMemoryRegistry(pub)
	rec := NewReconciler(reg, Options{}, TodoPolicyIgnore)
	ctx := context.Background()

	snap := testSnapshot()
	account := testAccount()
	if _, err := rec.Apply(ctx, snap, account); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	before, _ := reg.List(ctx, "alice")

	account.UpsertGame(30549, models.GameOverride{})
	plan, err := rec.Apply(ctx, snap, account)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if len(plan.Create) != 1 || plan.Create[0].UniqueID != "alice_game_30549" {
		t.Errorf("Create = %+v", plan.Create)
	}
	if len(plan.Remove) != 0 || len(plan.Update) != 0 {
		t.Errorf("existing entities touched: %+v", plan)
	}

	after, _ := reg.List(ctx, "alice")
	if len(after) != len(before)+1 {
		t.Errorf("entities %d -> %d", len(before), len(after))
	}
	for _, r := range after {
		if !r.Available {
			t.Errorf("%s unavailable after track_game", r.UniqueID)
		}
	}
	if got := testutil.ToFloat64(metrics.EntitiesRegistered.WithLabelValues(string(KindGameSensor))); got != 3 {
		t.Errorf("game sensors gauge = %v", got)
	}

	ops := pub.ops()
	if ops[len(ops)-1] != events.OpCreate {
		t.Errorf("last published op = %s", ops[len(ops)-1])
	}
}

func TestReconciler_AuthFailureKeepsStaleData(t *testing.T) {
	reg := NewMemoryRegistry(nil)
	rec := NewReconciler(reg, Options{}, "")
	ctx := context.Background()

	snap := testSnapshot()
	if _, err := rec.Apply(ctx, snap, testAccount()); err != nil {
		t.Fatal(err)
	}

	failed := snap.Clone()
	failed.State = models.StateFailed
	failed.FailureReason = models.FailureAuth
	failed.Available = false
	failed.Stale = true
	if _, err := rec.Apply(ctx, &failed, testAccount()); err != nil {
		t.Fatal(err)
	}

	plays, _ := reg.Get("alice_plays")
	if plays.Available {
		t.Error("account sensor must be unavailable on auth failure")
	}
	if plays.State != "42" || plays.Attributes["last_play_game"] != "Catan" || plays.Attributes["stale"] != true {
		t.Errorf("plays sensor lost data: %+v", plays)
	}
	game, _ := reg.Get("alice_game_13")
	if !game.Available || game.Attributes["stale"] != true || game.State != "9" {
		t.Errorf("game sensor = %+v", game)
	}
	if _, ok := reg.Get("alice_shelf/13"); !ok {
		t.Error("shelf item removed on auth failure")
	}
}

func TestReconciler_RemovesSoldItemsAndAccounts(t *testing.T) {
	reg := NewMemoryRegistry(nil)
	rec := NewReconciler(reg, Options{}, "")
	ctx := context.Background()

	snap := testSnapshot()
	if _, err := rec.Apply(ctx, snap, testAccount()); err != nil {
		t.Fatal(err)
	}

	sold := snap.Clone()
	delete(sold.Collection.Entries, models.CollectionKey{GameID: 30549, SubType: models.SubTypeBoardGame})
	plan, err := rec.Apply(ctx, &sold, testAccount())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(plan.Remove, []string{"alice_shelf/30549"}) {
		t.Errorf("Remove = %v", plan.Remove)
	}

	n, err := rec.RemoveAccount(ctx, "alice")
	if err != nil || n == 0 {
		t.Fatalf("RemoveAccount: %d %v", n, err)
	}
	if left, _ := reg.List(ctx, "alice"); len(left) != 0 {
		t.Errorf("entities left: %d", len(left))
	}
}

type fakeSource struct {
	snap    *models.CoordinatorSnapshot
	account models.TrackedAccount
}

func (f fakeSource) Snapshot(username string) (*models.CoordinatorSnapshot, bool) {
	return f.snap, username == f.account.Username
}

func (f fakeSource) Account(username string) (models.TrackedAccount, bool) {
	return f.account, username == f.account.Username
}

func TestReconciler_EventHandlers(t *testing.T) {
	reg := NewMemoryRegistry(nil)
	rec := NewReconciler(reg, Options{}, "")
	ctx := context.Background()
	src := fakeSource{snap: testSnapshot(), account: testAccount()}

	handle := rec.HandleSnapshotUpdated(src)
	if err := handle(ctx, []byte(`{"username":"alice","state":"ready"}`)); err != nil {
		t.Fatal(err)
	}
	if list, _ := reg.List(ctx, "alice"); len(list) == 0 {
		t.Fatal("snapshot event did not register entities")
	}
	if err := handle(ctx, []byte(`{"username":"ghost"}`)); err != nil {
		t.Errorf("unknown account must be ignored: %v", err)
	}
	if err := handle(ctx, []byte(`{`)); err == nil {
		t.Error("malformed payload must fail")
	}

	if err := rec.HandleAccountRemoved()(ctx, []byte(`{"username":"alice"}`)); err != nil {
		t.Fatal(err)
	}
	if list, _ := reg.List(ctx, "alice"); len(list) != 0 {
		t.Errorf("entities left after removal: %d", len(list))
	}
}

func TestSetTodoStatus(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(prev) })

	reg := NewMemoryRegistry(nil)
	ctx := context.Background()
	if _, err := NewReconciler(reg, Options{}, "").Apply(ctx, testSnapshot(), testAccount()); err != nil {
		t.Fatal(err)
	}

	warn := NewReconciler(reg, Options{}, TodoPolicyWarn)
	if err := warn.SetTodoStatus(ctx, "alice_shelf/13", TodoCompleted); err != nil {
		t.Fatalf("SetTodoStatus: %v", err)
	}
	if !strings.Contains(buf.String(), "not sent to BGG") {
		t.Errorf("warn policy must log, got %q", buf.String())
	}
	if r, _ := reg.Get("alice_shelf/13"); r.State != string(TodoNeedsAction) {
		t.Errorf("item state changed to %s", r.State)
	}

	if err := warn.SetTodoStatus(ctx, "alice_shelf/1", TodoCompleted); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("unknown item: %v", err)
	}
	if err := warn.SetTodoStatus(ctx, "alice_plays", TodoCompleted); !errors.Is(err, ErrNotTodoItem) {
		t.Errorf("non-todo entity: %v", err)
	}
	if err := warn.SetTodoStatus(ctx, "alice_shelf/13", "done"); err == nil {
		t.Error("invalid status accepted")
	}
}

func TestParseTodoPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    TodoPolicy
		wantErr bool
	}{
		{"", TodoPolicyIgnore, false},
		{"ignore", TodoPolicyIgnore, false},
		{"warn", TodoPolicyWarn, false},
		{"sync", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTodoPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTodoPolicy(%q) = %q, %v", tt.in, got, err)
		}
	}
}
