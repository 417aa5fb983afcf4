// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

/*
Package supervisor runs the long-lived parts of the process under a
suture supervisor tree.

Tree layout:

	story-pull (root)
	├── storage-layer     revocation cleanup
	├── messaging-layer   NATS RPC server
	└── api-layer         HTTP server

A service that returns an error is restarted with backoff by its layer's
supervisor; a crash in one layer does not stop the others. Supervisor
events are logged through sutureslog, bridged into zerolog by
logging.NewSlogLogger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddStorageService(services.NewRevocationCleanupService(store, 5*time.Minute))
	tree.AddMessagingService(rpcServer)
	tree.AddAPIService(services.NewHTTPServerService(httpServer, ":4001", 15*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
