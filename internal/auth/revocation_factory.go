// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package auth

import (
	"fmt"

	"github.com/Danny-Lenko/story-pull-backend/internal/config"
	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
)

// RevocationStoreType selects the revocation backend.
type RevocationStoreType string

const (
	RevocationStoreMemory RevocationStoreType = "memory"
	RevocationStoreBadger RevocationStoreType = "badger"
)

// NewRevocationStore builds the configured backend and wraps it in a
// GuardedRevocationStore.
func NewRevocationStore(cfg *config.SecurityConfig) (*GuardedRevocationStore, error) {
	var backend RevocationStore

	switch RevocationStoreType(cfg.RevocationStore) {
	case RevocationStoreMemory:
		backend = NewMemoryRevocationStore()
	case RevocationStoreBadger:
		store, err := OpenBadgerRevocationStore(cfg.RevocationPath)
		if err != nil {
			return nil, err
		}
		backend = store
	default:
		return nil, fmt.Errorf("unknown revocation store %q", cfg.RevocationStore)
	}

	logging.Info().
		Str("store", cfg.RevocationStore).
		Dur("timeout", cfg.RevocationTimeout).
		Msg("revocation store initialized")

	return NewGuardedRevocationStore(backend, GuardedRevocationStoreConfig{
		Timeout:     cfg.RevocationTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}), nil
}
