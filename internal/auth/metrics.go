// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuardDecisionsTotal counts guard outcomes.
	// Labels:
	//   - outcome: "admit", "deny"
	//   - reason: deny reason, empty on admit
	GuardDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_guard_decisions_total",
			Help: "Total number of bearer token admission decisions",
		},
		[]string{"outcome", "reason"},
	)

	// RevocationOperationsTotal counts revocation store calls.
	// Labels:
	//   - operation: "check", "revoke", "cleanup"
	//   - outcome: "revoked", "not_revoked", "success", "error", "timeout", "circuit_open"
	RevocationOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_revocation_operations_total",
			Help: "Total number of revocation store operations",
		},
		[]string{"operation", "outcome"},
	)

	RevocationLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_revocation_lookup_duration_seconds",
			Help:    "Latency of revocation store lookups",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	// RevocationBreakerState is 0 closed, 1 half-open, 2 open.
	RevocationBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auth_revocation_circuit_breaker_state",
			Help: "Revocation store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// AuthOperationsTotal counts register, login and logout calls.
	AuthOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Total number of account and session operations",
		},
		[]string{"operation", "outcome"},
	)
)
