// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package services

import (
	"context"
	"time"

	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
)

// ExpiredEntryCleaner removes revocation entries whose token has expired.
// Every auth.RevocationStore implements it.
type ExpiredEntryCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// RevocationCleanupService purges expired revocation entries on a fixed
// interval. A failed pass is logged and retried on the next tick; it
// never stops the service.
type RevocationCleanupService struct {
	store    ExpiredEntryCleaner
	interval time.Duration
}

// NewRevocationCleanupService runs a pass every interval; non-positive
// means five minutes.
func NewRevocationCleanupService(store ExpiredEntryCleaner, interval time.Duration) *RevocationCleanupService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RevocationCleanupService{store: store, interval: interval}
}

// Serve implements suture.Service.
func (s *RevocationCleanupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *RevocationCleanupService) runOnce(ctx context.Context) {
	n, err := s.store.CleanupExpired(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Revocation cleanup failed")
		return
	}
	if n > 0 {
		logging.Debug().Int("removed", n).Msg("Revocation cleanup removed expired entries")
	}
}

func (s *RevocationCleanupService) String() string {
	return "revocation-cleanup"
}
