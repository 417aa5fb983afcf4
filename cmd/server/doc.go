// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

// Package main is the entry point for the Story Pull content server.
//
// One process hosts both services: the content catalogue (list, create,
// get, update) and authentication (register, login, logout, token
// validation). Both are reachable over HTTP and, when NATS is enabled,
// as request/reply subjects on a NATS queue group.
//
// # Startup Order
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. Logging (zerolog)
//  3. DuckDB schema and connection
//  4. Token manager, revocation store and admission guard
//  5. Casbin content policy
//  6. NATS connection, optionally backed by an embedded server
//  7. Content event publisher (watermill-nats)
//  8. Supervisor tree: revocation cleanup, RPC server, HTTP server
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops the
// HTTP server gracefully, unsubscribes the RPC handlers and waits for
// in-flight requests, then NATS, the revocation store and the database
// are closed in that order.
//
// # Example Usage
//
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export NATS_ENABLED=true
//	export NATS_EMBEDDED_SERVER=true
//	./story-pull
package main
