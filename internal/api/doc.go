// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

/*
Package api provides the HTTP surface of the service using the chi router.

Routes:

	GET    /api/v1/health/live       liveness probe
	GET    /api/v1/health/ready      readiness probe (database ping)
	GET    /metrics                  Prometheus exposition
	POST   /api/v1/auth/register     create an account
	POST   /api/v1/auth/login        issue a bearer token
	POST   /api/v1/auth/logout       revoke the presented token
	POST   /api/v1/auth/validate     report whether the presented token is admitted
	GET    /api/v1/content           list the caller's content
	POST   /api/v1/content           create content
	GET    /api/v1/content/{id}      read one item
	PATCH  /api/v1/content/{id}      update one item

Every response body uses models.APIResponse. Errors from the services are
mapped to status codes by ClassifyError, which the NATS transport shares.

Middleware order for the content routes:

	RequestID -> RealIP -> Recoverer -> CORS -> RateLimit ->
	SecurityHeaders -> PrometheusMetrics -> Authenticate -> handler
*/
package api
