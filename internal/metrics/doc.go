// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

/*
Package metrics provides Prometheus collectors shared across the service.

# Overview

The package provides metrics for:
  - HTTP request latency and throughput
  - NATS RPC request latency, admission and in-flight requests
  - Content store query performance (DuckDB)
  - Content service outcomes and lifecycle event publishing
  - Build information and uptime

Authentication collectors (guard decisions, revocation store) live in the
auth package next to the code that records them.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:4001/metrics
*/
package metrics
