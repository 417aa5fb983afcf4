// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

/*
Package rpc exposes the content and auth operations as NATS request/reply
endpoints for internal callers such as an API gateway.

Subjects (with the default prefix "storypull"):

	storypull.content.list         QueryFilter
	storypull.content.create       NewContentItem
	storypull.content.get          {"id": "..."}
	storypull.content.update       {"id": "...", "patch": ContentPatch}
	storypull.auth.validateToken   {"token": "..."} or Authorization header
	storypull.auth.logout          {"token": "..."} or Authorization header
	storypull.auth.register        RegisterRequest
	storypull.auth.login           LoginRequest

Content subjects require an "Authorization: Bearer <token>" message
header; the token goes through the same auth.Guard as HTTP requests.
Every reply body is a models.APIResponse (a ContentListResponse for
content.list), and the reply carries a "Status" header holding the
HTTP-equivalent status code so callers can branch without decoding.

Server subscribes with a queue group so several replicas share the load.
Admission is bounded twice: a token bucket (golang.org/x/time/rate)
rejects bursts with RATE_LIMIT_EXCEEDED, and a semaphore caps requests in
flight. Each request runs under its own timeout.

EmbeddedServer starts an in-process nats-server for single-binary
deployments and tests.
*/
package rpc
