// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
)

// GuardedRevocationStoreConfig tunes GuardedRevocationStore.
type GuardedRevocationStoreConfig struct {
	// Timeout bounds every call to the wrapped store.
	Timeout time.Duration
	// MaxFailures consecutive failures open the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// GuardedRevocationStore bounds each call to the wrapped store with a
// timeout and stops calling it while a circuit breaker is open. Every
// failure it returns wraps ErrRevocationUnavailable.
type GuardedRevocationStore struct {
	next    RevocationStore
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[interface{}]
}

func NewGuardedRevocationStore(next RevocationStore, cfg GuardedRevocationStoreConfig) *GuardedRevocationStore {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 250 * time.Millisecond
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	maxFailures := cfg.MaxFailures

	settings := gobreaker.Settings{
		Name:        "revocation-store",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A caller that gave up says nothing about the store's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			RevocationBreakerState.Set(breakerStateValue(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("revocation store circuit breaker state changed")
		},
	}

	return &GuardedRevocationStore{
		next:    next,
		timeout: cfg.Timeout,
		cb:      gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (g *GuardedRevocationStore) IsRevoked(ctx context.Context, tokenKey string) (bool, error) {
	start := time.Now()
	defer func() { RevocationLookupDuration.Observe(time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.cb.Execute(func() (interface{}, error) {
		return g.next.IsRevoked(ctx, tokenKey)
	})
	if err != nil {
		outcome := classifyStoreError(ctx, err)
		RevocationOperationsTotal.WithLabelValues("check", outcome).Inc()
		return false, fmt.Errorf("%w (%s): %w", ErrRevocationUnavailable, outcome, err)
	}

	revoked, ok := result.(bool)
	if !ok {
		RevocationOperationsTotal.WithLabelValues("check", "error").Inc()
		return false, fmt.Errorf("%w: unexpected result type %T", ErrRevocationUnavailable, result)
	}
	if revoked {
		RevocationOperationsTotal.WithLabelValues("check", "revoked").Inc()
	} else {
		RevocationOperationsTotal.WithLabelValues("check", "not_revoked").Inc()
	}
	return revoked, nil
}

func (g *GuardedRevocationStore) Revoke(ctx context.Context, tokenKey string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.next.Revoke(ctx, tokenKey, ttl)
	})
	if err != nil {
		outcome := classifyStoreError(ctx, err)
		RevocationOperationsTotal.WithLabelValues("revoke", outcome).Inc()
		return fmt.Errorf("%w (%s): %w", ErrRevocationUnavailable, outcome, err)
	}
	RevocationOperationsTotal.WithLabelValues("revoke", "success").Inc()
	return nil
}

// CleanupExpired bypasses the breaker; it runs in the background and has
// no caller waiting on it.
func (g *GuardedRevocationStore) CleanupExpired(ctx context.Context) (int, error) {
	n, err := g.next.CleanupExpired(ctx)
	if err != nil {
		RevocationOperationsTotal.WithLabelValues("cleanup", "error").Inc()
		return n, err
	}
	RevocationOperationsTotal.WithLabelValues("cleanup", "success").Inc()
	return n, nil
}

func (g *GuardedRevocationStore) Close() error {
	return g.next.Close()
}

// State exposes the breaker state for health reporting.
func (g *GuardedRevocationStore) State() gobreaker.State {
	return g.cb.State()
}

func classifyStoreError(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
