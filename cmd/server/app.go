// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/bggsync/internal/api"
	"github.com/tomtom215/bggsync/internal/bgg"
	"github.com/tomtom215/bggsync/internal/config"
	"github.com/tomtom215/bggsync/internal/entities"
	"github.com/tomtom215/bggsync/internal/events"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/recorder"
	"github.com/tomtom215/bggsync/internal/store"
	"github.com/tomtom215/bggsync/internal/supervisor"
	"github.com/tomtom215/bggsync/internal/supervisor/services"
	syncer "github.com/tomtom215/bggsync/internal/sync"
	ws "github.com/tomtom215/bggsync/internal/websocket"
)

// app holds every wired component of the server.
type app struct {
	cfg *config.Config

	db          *store.DB
	accounts    store.AccountStore
	bus         *events.Bus
	coordinator *syncer.Coordinator
	reconciler  *entities.Reconciler
	worker      *recorder.BoundaryWorker
	hub         *ws.Hub
	server      *http.Server
}

// newApp opens the store and wires the components. Nothing runs until
// Supervise adds them to a tree and the tree is served.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db}
	if err := a.wire(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	var enc *config.CredentialEncryptor
	if cfg.Security.EncryptionKey != "" {
		var err error
		if enc, err = config.NewCredentialEncryptor(cfg.Security.EncryptionKey); err != nil {
			return fmt.Errorf("credential encryptor: %w", err)
		}
	} else {
		logging.Warn().Msg("ENCRYPTION_KEY is not set: accounts added through the API will not keep their credentials across restarts")
	}
	a.accounts = store.NewAccountStore(a.db, enc)

	cache, err := store.NewMetadataCache(a.db)
	if err != nil {
		return fmt.Errorf("metadata cache: %w", err)
	}
	logging.Info().Int("games", cache.Len()).Msg("Game metadata cache loaded")

	client := bgg.NewClient(&cfg.BGG)
	var fetcher bgg.Fetcher = client
	if cfg.BGG.CircuitBreaker {
		fetcher = bgg.NewCircuitBreakerClient(client)
	}

	if a.bus, err = events.NewBus(events.DefaultConfig()); err != nil {
		return fmt.Errorf("event bus: %w", err)
	}

	a.coordinator = syncer.NewCoordinator(fetcher, cache, cfg.Sync,
		syncer.WithPublisher(a.bus),
		syncer.WithSnapshotStore(store.NewSnapshotStore(a.db)),
	)

	policy, err := entities.ParseTodoPolicy(cfg.Entities.TodoTogglePolicy)
	if err != nil {
		return err
	}
	registry := entities.NewMemoryRegistry(a.bus)
	a.reconciler = entities.NewReconciler(registry, entities.DefaultOptions(), policy)
	if err := a.bus.Subscribe("entities.reconcile", events.TopicSnapshotUpdated, a.reconciler.HandleSnapshotUpdated(a.coordinator)); err != nil {
		return err
	}
	if err := a.bus.Subscribe("entities.remove", events.TopicAccountRemoved, a.reconciler.HandleAccountRemoved()); err != nil {
		return err
	}

	a.worker = recorder.NewBoundaryWorker(cfg.Recorder.QueueSize, cfg.Recorder.SubmitTimeout)
	rec := recorder.New(a.coordinator, recorder.ClientSessions(client), a.worker,
		recorder.WithFetcher(fetcher),
		recorder.WithMetadataCache(cache),
		recorder.WithPublisher(a.bus),
		recorder.WithLocation(cfg.PlayLocation()),
	)

	a.hub = ws.NewHub()
	if err := a.hub.Subscribe(a.bus); err != nil {
		return err
	}

	tracked, err := loadAccounts(ctx, cfg, a.accounts)
	if err != nil {
		return err
	}
	for _, acct := range tracked {
		if err := a.coordinator.AddAccount(acct); err != nil {
			return fmt.Errorf("add account %s: %w", acct.Username, err)
		}
	}

	handler := api.NewHandler(api.HandlerDeps{
		Coordinator:    a.coordinator,
		Accounts:       a.accounts,
		Validator:      fetcher,
		Recorder:       rec,
		Registry:       registry,
		Todos:          a.reconciler,
		Hub:            a.hub,
		AllowedOrigins: cfg.Security.CORSOrigins,
	})
	mwConfig := api.ChiMiddlewareConfigFrom(cfg.Security)
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	router := api.NewRouter(handler, mwConfig)

	a.server = &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// record_play waits for the BGG submission, which may take up
		// to the recorder's submit timeout.
		WriteTimeout: maxDuration(cfg.Server.Timeout, cfg.Recorder.SubmitTimeout+5*time.Second),
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

// Supervise adds every service to tree.
func (a *app) Supervise(tree *supervisor.SupervisorTree) {
	tree.AddDataService(a.coordinator)
	if !a.cfg.Store.InMemory {
		tree.AddDataService(services.NewPeriodicService("store-gc", a.cfg.Store.GCInterval, func(context.Context) error {
			return a.db.CollectGarbage(0.5)
		}))
	}

	tree.AddMessagingService(a.bus)
	tree.AddMessagingService(a.hub)

	tree.AddAPIService(a.worker)
	tree.AddAPIService(services.NewHTTPServerService(a.server, a.cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", a.server.Addr).Msg("HTTP server service added")
}

// Close releases the store. Call it after the tree has stopped.
func (a *app) Close() {
	if err := a.bus.Close(); err != nil {
		logging.Warn().Err(err).Msg("Error closing event bus")
	}
	if err := a.db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing store")
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
