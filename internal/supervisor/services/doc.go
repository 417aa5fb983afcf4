// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

// Package services adapts blocking components to suture.Service.
//
// Services:
//   - HTTPServerService: binds the API listener, serves, drains on cancel
//   - RevocationCleanupService: periodic purge of expired revocation entries
//
// The NATS RPC server implements suture.Service itself and needs no wrapper.
package services
