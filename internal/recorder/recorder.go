// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package recorder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/bggsync/internal/bgg"
	"github.com/tomtom215/bggsync/internal/events"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/metrics"
	"github.com/tomtom215/bggsync/internal/models"
	"github.com/tomtom215/bggsync/internal/normalize"
	"github.com/tomtom215/bggsync/internal/store"
	syncer "github.com/tomtom215/bggsync/internal/sync"
	"github.com/tomtom215/bggsync/internal/validation"
)

// AccountSource resolves accounts and triggers refreshes. The refresh
// coordinator implements it.
type AccountSource interface {
	Account(username string) (models.TrackedAccount, bool)
	Snapshot(username string) (*models.CoordinatorSnapshot, bool)
	ForceRefresh(username string) error
}

// Submitter posts a play over an authenticated session.
type Submitter interface {
	SubmitPlay(ctx context.Context, req models.PlayRecordRequest) (models.PlayAck, error)
}

// SessionFactory opens a write session for an account.
type SessionFactory func(username, password string) (Submitter, error)

// ClientSessions returns a SessionFactory backed by c.
func ClientSessions(c *bgg.Client) SessionFactory {
	return func(username, password string) (Submitter, error) {
		s, err := c.NewSession(username, password)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Result describes a play BGG accepted.
type Result struct {
	Username string   `json:"username"`
	GameID   int      `json:"game_id"`
	GameName string   `json:"game_name,omitempty"`
	PlayID   int      `json:"play_id,omitempty"`
	NumPlays int      `json:"num_plays,omitempty"`
	Date     string   `json:"date"`
	Winners  []string `json:"winners,omitempty"`
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the wall clock used for default dates.
func WithClock(c Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

// WithLocation sets the time zone of default dates.
func WithLocation(loc *time.Location) Option {
	return func(r *Recorder) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithPublisher publishes play.recorded events.
func WithPublisher(p events.Publisher) Option {
	return func(r *Recorder) { r.publisher = p }
}

// WithMetadataCache lets game resolution use and fill the shared cache.
func WithMetadataCache(c store.MetadataCache) Option {
	return func(r *Recorder) { r.cache = c }
}

// WithFetcher lets game resolution fetch unknown games from BGG.
func WithFetcher(f bgg.Fetcher) Option {
	return func(r *Recorder) { r.fetcher = f }
}

type accountSession struct {
	password string
	sub      Submitter
}

// Recorder validates and submits plays.
type Recorder struct {
	accounts  AccountSource
	sessions  SessionFactory
	worker    *BoundaryWorker
	fetcher   bgg.Fetcher
	cache     store.MetadataCache
	publisher events.Publisher
	clock     Clock
	loc       *time.Location

	mu   sync.Mutex
	open map[string]*accountSession
}

// New creates a Recorder that submits through worker.
func New(accounts AccountSource, sessions SessionFactory, worker *BoundaryWorker, opts ...Option) *Recorder {
	r := &Recorder{
		accounts: accounts,
		sessions: sessions,
		worker:   worker,
		clock:    ClockFunc(time.Now),
		loc:      time.Local,
		open:     map[string]*accountSession{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record validates req, submits it to BGG and refreshes the account.
func (r *Recorder) Record(ctx context.Context, req models.PlayRecordRequest) (res Result, err error) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	ctx = logging.ContextWithAccount(ctx, req.Username)
	defer func() {
		result := "success"
		if err != nil {
			result = string(Classify(err))
		}
		metrics.BGGPlaySubmissions.WithLabelValues(result).Inc()
	}()

	req = trimRequest(req)
	if verr := validation.ValidateStruct(&req); verr != nil {
		return Result{}, &ValidationError{Err: verr}
	}

	account, err := r.account(req.Username)
	if err != nil {
		logging.CtxWarn(ctx).Err(err).Msg("Play not recorded")
		return Result{}, err
	}
	req.Username = account.Username

	if req.Date == "" {
		req.Date = r.clock.Now().In(r.loc).Format(models.PlayDateLayout)
	}

	name, err := r.resolveGame(ctx, account, req.GameID)
	if err != nil {
		return Result{}, err
	}

	sub, err := r.session(account)
	if err != nil {
		return Result{}, &ConfigError{Username: account.Username, Err: err}
	}

	fut, err := Call(ctx, r.worker, func(ctx context.Context) (models.PlayAck, error) {
		return sub.SubmitPlay(ctx, req)
	})
	if err != nil {
		return Result{}, fmt.Errorf("queue play submission: %w", err)
	}
	ack, err := fut.Wait(ctx)
	if err != nil {
		r.logFailure(ctx, err)
		return Result{}, fmt.Errorf("submit play: %w", err)
	}

	res = Result{
		Username: account.Username,
		GameID:   req.GameID,
		GameName: name,
		PlayID:   ack.PlayID,
		NumPlays: ack.NumPlays,
		Date:     req.Date,
		Winners:  req.Winners(),
	}
	logging.CtxInfo(ctx).
		Int("game_id", res.GameID).
		Int("play_id", res.PlayID).
		Str("date", res.Date).
		Msg("Play recorded")

	if err := r.accounts.ForceRefresh(account.Username); err != nil {
		logging.CtxWarn(ctx).Err(err).Msg("Could not schedule refresh after recording play")
	}
	r.publish(ctx, res)
	return res, nil
}

// account checks that username may log plays. No network I/O happens here.
func (r *Recorder) account(username string) (models.TrackedAccount, error) {
	account, ok := r.accounts.Account(username)
	if !ok {
		return models.TrackedAccount{}, &ConfigError{Username: username, Err: syncer.ErrUnknownAccount}
	}
	if !account.LogPlays {
		return account, &ConfigError{Username: account.Username, Err: ErrLoggingDisabled}
	}
	if account.Password == "" {
		return account, &ConfigError{Username: account.Username, Err: ErrMissingCredentials}
	}
	return account, nil
}

// resolveGame returns the game's name when it is known locally or exists on
// BGG.
func (r *Recorder) resolveGame(ctx context.Context, account models.TrackedAccount, id int) (string, error) {
	if snap, ok := r.accounts.Snapshot(account.Username); ok {
		if meta, ok := snap.Game(id); ok {
			return meta.Name, nil
		}
		if e, ok := snap.Collection.Find(id); ok {
			return e.Name, nil
		}
	}
	if r.cache != nil {
		if meta, ok := r.cache.Get(id); ok {
			return meta.Name, nil
		}
	}
	if _, ok := account.Games[id]; ok {
		return "", nil
	}
	if r.fetcher == nil {
		return "", invalid("game_id", "exists", fmt.Sprintf("game %d is not known", id))
	}

	raw, err := r.fetcher.FetchGameMetadata(ctx, account.Token, []int{id})
	if err != nil {
		return "", fmt.Errorf("look up game %d: %w", id, err)
	}
	found, err := normalize.ParseThings(raw...)
	if err != nil {
		return "", fmt.Errorf("look up game %d: %w", id, err)
	}
	meta, ok := found[id]
	if !ok {
		return "", invalid("game_id", "exists", fmt.Sprintf("game %d does not exist on BGG", id))
	}

	if r.cache != nil {
		meta.FetchedAt = r.clock.Now().UTC()
		if err := r.cache.Store(ctx, map[int]models.GameMetadata{id: meta}); err != nil {
			logging.CtxWarn(ctx).Err(err).Int("game_id", id).Msg("Failed to cache game metadata")
		}
	}
	return meta.Name, nil
}

// session returns the account's write session, opening a new one when the
// password changed.
func (r *Recorder) session(account models.TrackedAccount) (Submitter, error) {
	key := strings.ToLower(account.Username)

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.open[key]; ok && s.password == account.Password {
		return s.sub, nil
	}
	sub, err := r.sessions(account.Username, account.Password)
	if err != nil {
		return nil, err
	}
	r.open[key] = &accountSession{password: account.Password, sub: sub}
	return sub, nil
}

// Forget drops the cached session of username.
func (r *Recorder) Forget(username string) {
	r.mu.Lock()
	delete(r.open, strings.ToLower(username))
	r.mu.Unlock()
}

func (r *Recorder) logFailure(ctx context.Context, err error) {
	switch Classify(err) {
	case KindAuth:
		logging.CtxWarn(ctx).Err(err).Msg("BGG rejected the account password; update the credentials to log plays")
	case KindSubmit:
		logging.CtxWarn(ctx).Err(err).Msg("BGG did not accept the play")
	case KindNetwork:
		logging.CtxWarn(ctx).Err(err).Msg("Play submission failed, retry later")
	default:
		logging.CtxError(ctx).Err(err).Msg("Play submission failed")
	}
}

func (r *Recorder) publish(ctx context.Context, res Result) {
	if r.publisher == nil {
		return
	}
	evt := events.PlayRecorded{
		Username: res.Username,
		GameID:   res.GameID,
		PlayID:   res.PlayID,
		Date:     res.Date,
		Winners:  res.Winners,
		At:       r.clock.Now().UTC(),
	}
	if err := r.publisher.Publish(ctx, events.TopicPlayRecorded, evt); err != nil {
		logging.CtxWarn(ctx).Err(err).Msg("Failed to publish play.recorded")
	}
}

func trimRequest(req models.PlayRecordRequest) models.PlayRecordRequest {
	req.Username = strings.TrimSpace(req.Username)
	req.Date = strings.TrimSpace(req.Date)
	req.Location = strings.TrimSpace(req.Location)
	if len(req.Players) > 0 {
		players := make([]models.PlayerEntry, len(req.Players))
		for i, p := range req.Players {
			p.Name = strings.TrimSpace(p.Name)
			p.Username = strings.TrimSpace(p.Username)
			players[i] = p
		}
		req.Players = players
	}
	return req
}
