// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

// readinessTimeout bounds the database ping of the readiness probe.
const readinessTimeout = 2 * time.Second

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status            string  `json:"status"`
	DatabaseConnected bool    `json:"databaseConnected"`
	Uptime            float64 `json:"uptime"`
}

// HealthLive handles GET /api/v1/health/live. It never touches dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, HealthStatus{
		Status: "alive",
		Uptime: time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles GET /api/v1/health/ready and answers 503 while the
// database is unreachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:            "ready",
		DatabaseConnected: true,
		Uptime:            time.Since(h.startTime).Seconds(),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed: database unreachable")
			status.Status = "unavailable"
			status.DatabaseConnected = false
			respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{Success: false, Data: status})
			return
		}
	}

	respondSuccess(w, http.StatusOK, status)
}
