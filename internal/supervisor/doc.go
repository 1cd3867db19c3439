// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
Package supervisor provides process supervision for BGG Sync using suture v4.

Every long-running component runs under a three-layer tree:

	RootSupervisor ("bggsync")
	├── DataSupervisor ("data-layer")
	│   ├── refresh-coordinator   (one poll loop per tracked account)
	│   └── store-gc              (badger value log GC)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── event-bus             (watermill router)
	│   └── websocket-hub
	└── APISupervisor ("api-layer")
	    ├── boundary-worker       (serialized BGG play submissions)
	    └── http-server

A panic or error in one service restarts that service only. Failures decay
over FailureDecay seconds; crossing FailureThreshold puts the layer into
FailureBackoff before the next restart.

# Logging

Supervisor events go through sutureslog to an *slog.Logger. cmd/server
passes logging.NewSlogLogger so these events land in the same zerolog
stream as everything else.

# Shutdown

Canceling the context passed to Serve or ServeBackground stops every
service. Services that miss ShutdownTimeout are listed by
UnstoppedServiceReport.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(coordinator)
	tree.AddMessagingService(bus)
	tree.AddMessagingService(hub)
	tree.AddAPIService(worker)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)

See the services subpackage for the wrappers used by components without a
native Serve method.
*/
package supervisor
