// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

/*
Package supervisor runs Encore's long-lived services under a suture v4 tree.

	root ("encore")
	├── state-layer:   StateGCService (badger backend only)
	├── workers-layer: scheduler.Scheduler (when scheduler.enabled)
	└── api-layer:     HTTPServerService

Each layer is its own supervisor, so a crashing scheduler restarts without
taking the trigger endpoint down. Supervisor events are logged through
sutureslog on the zerolog-backed slog handler.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{})
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	tree.AddWorkerService(sched)
	err = tree.Serve(ctx)
*/
package supervisor
