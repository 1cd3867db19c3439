// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

// Package main is the entry point for the BGG Sync server.
//
// BGG Sync polls BoardGameGeek for every tracked account, keeps
// home-automation entities (account sensors, game sensors and shelf to-do
// items) in step with the result, and records plays back to BGG through a
// small HTTP action API.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 (defaults, config.yaml, environment)
//  2. Logging: zerolog
//  3. Store: BadgerDB for accounts, cached game metadata and snapshots
//  4. BGG client: rate limited, optionally behind a circuit breaker
//  5. Event bus, refresh coordinator, entity reconciler, play recorder
//  6. WebSocket hub and Chi router
//  7. Supervisor tree (suture v4)
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops every
// service, the HTTP server drains for SERVER_SHUTDOWN_TIMEOUT and queued
// play submissions are aborted with a worker-stopped error.
//
// # Example
//
//	export BGG_ACCOUNTS='alice:xxxxxxxx:13,822'
//	export ENCRYPTION_KEY=$(openssl rand -base64 32)
//	export STORE_PATH=/data/bggsync
//	./bggsync
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/bggsync/internal/config"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/supervisor"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("store", storeDescription(cfg.Store)).
		Dur("interval", cfg.Sync.Interval).
		Str("addr", cfg.Server.Address()).
		Msg("Starting BGG Sync")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApp(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer app.Close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	app.Supervise(tree)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Int("accounts", len(app.coordinator.Accounts())).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// suture sends exactly one value and never closes the channel.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("BGG Sync stopped")
}

func storeDescription(s config.StoreConfig) string {
	if s.InMemory {
		return "memory"
	}
	return s.Path
}
