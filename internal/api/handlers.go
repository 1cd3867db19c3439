// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package api

import (
	"context"
	"time"

	"github.com/tomtom215/bggsync/internal/entities"
	"github.com/tomtom215/bggsync/internal/models"
	"github.com/tomtom215/bggsync/internal/recorder"
	"github.com/tomtom215/bggsync/internal/store"
	ws "github.com/tomtom215/bggsync/internal/websocket"
)

// Coordinator is the part of the refresh coordinator the API drives.
type Coordinator interface {
	Account(username string) (models.TrackedAccount, bool)
	Accounts() []models.TrackedAccount
	AddAccount(account models.TrackedAccount) error
	ModifyAccount(username string, fn func(*models.TrackedAccount) error) (models.TrackedAccount, error)
	RemoveAccount(username string) error
	ForceRefresh(username string) error
	RefreshMetadata(ctx context.Context, username string, ids ...int) error
	Snapshot(username string) (*models.CoordinatorSnapshot, bool)
	Running() bool
}

// AuthValidator checks a BGG token before an account is added.
type AuthValidator interface {
	ValidateAuth(ctx context.Context, username, token string) error
}

// PlayRecorder writes plays to BGG.
type PlayRecorder interface {
	Record(ctx context.Context, req models.PlayRecordRequest) (recorder.Result, error)
	Forget(username string)
}

// TodoHandler handles shelf to-do toggles.
type TodoHandler interface {
	SetTodoStatus(ctx context.Context, uniqueID string, status entities.TodoStatus) error
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_actions.go: track_game and record_play
//   - handlers_accounts.go: account management and forced refresh
//   - handlers_entities.go: entity listing and to-do toggles
//   - handlers_health.go: health and readiness probes
//   - handlers_websocket.go: WebSocket upgrade
type Handler struct {
	coordinator Coordinator
	accounts    store.AccountStore
	validator   AuthValidator
	recorder    PlayRecorder
	registry    entities.Registry
	todos       TodoHandler
	wsHub       *ws.Hub
	origins     []string
	startTime   time.Time
}

// HandlerDeps groups the collaborators of a Handler. Validator, Recorder,
// Todos and Hub may be nil; the matching endpoints then answer 503.
type HandlerDeps struct {
	Coordinator Coordinator
	Accounts    store.AccountStore
	Validator   AuthValidator
	Recorder    PlayRecorder
	Registry    entities.Registry
	Todos       TodoHandler
	Hub         *ws.Hub

	// AllowedOrigins lists origins accepted for WebSocket upgrades. "*"
	// accepts any origin.
	AllowedOrigins []string
}

// NewHandler creates a new API handler.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		coordinator: deps.Coordinator,
		accounts:    deps.Accounts,
		validator:   deps.Validator,
		recorder:    deps.Recorder,
		registry:    deps.Registry,
		todos:       deps.Todos,
		wsHub:       deps.Hub,
		origins:     deps.AllowedOrigins,
		startTime:   time.Now(),
	}
}
