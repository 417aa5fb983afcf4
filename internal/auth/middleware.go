// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package auth

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

// MessageUnauthorized is the only text a denied caller sees.
const MessageUnauthorized = "Unauthorized"

// Middleware admits HTTP requests through a Guard.
type Middleware struct {
	guard *Guard
}

func NewMiddleware(guard *Guard) *Middleware {
	return &Middleware{guard: guard}
}

// Authenticate runs the guard on the Authorization header and stores the
// principal in the request context. Every denial is a bare 401; the
// reason is logged by the guard.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := m.guard.Admit(r.Context(), ExtractBearer(r.Header.Get("Authorization")))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="story-pull"`)
			writeUnauthorized(w, logging.RequestIDFromContext(r.Context()))
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

func writeUnauthorized(w http.ResponseWriter, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	body := models.APIResponse{
		Success: false,
		Error: &models.APIError{
			Code:      models.CodeUnauthorized,
			Message:   MessageUnauthorized,
			RequestID: requestID,
		},
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode unauthorized response")
	}
}
