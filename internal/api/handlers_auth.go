// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package api

import (
	"net/http"

	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	token, err := h.auth.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, token)
}

// Logout handles POST /api/v1/auth/logout. It answers success for
// missing, malformed and expired tokens alike.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	result, err := h.auth.Logout(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, result)
}

// ValidateToken handles POST /api/v1/auth/validate. It always answers 200;
// the verdict is in the body.
func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.auth.ValidateToken(r.Context(), r.Header.Get("Authorization")))
}
