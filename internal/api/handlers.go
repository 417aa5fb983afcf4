// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package api

import (
	"context"
	"time"

	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

// ContentService is the content operation set served over HTTP and NATS.
// *content.Service implements it.
type ContentService interface {
	List(ctx context.Context, q models.QueryFilter, callerID string) (*models.ContentListResponse, error)
	Create(ctx context.Context, req models.NewContentItem, callerID string) (*models.ContentItem, error)
	Get(ctx context.Context, id, callerID string) (*models.ContentItem, error)
	Update(ctx context.Context, id string, patch models.ContentPatch, callerID string) (*models.ContentItem, error)
}

// AuthService is the account and token operation set. *auth.Service
// implements it.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
	Logout(ctx context.Context, authorization string) (*models.LogoutResult, error)
	ValidateToken(ctx context.Context, authorization string) *models.TokenValidation
}

// Pinger reports store reachability for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_content.go: list, create, get, update
//   - handlers_auth.go: register, login, logout, validate
//   - handlers_health.go: liveness and readiness
type Handler struct {
	content   ContentService
	auth      AuthService
	db        Pinger
	startTime time.Time
}

// NewHandler creates a handler. db may be nil, in which case readiness
// only reports the process as up.
func NewHandler(contentSvc ContentService, authSvc AuthService, db Pinger) *Handler {
	return &Handler{
		content:   contentSvc,
		auth:      authSvc,
		db:        db,
		startTime: time.Now(),
	}
}
