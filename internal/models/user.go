// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package models

import "time"

// User is a registered account. Its ID is the subject of issued tokens
// and the authorId of the content it creates.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegisterRequest creates a user. bcrypt ignores input past 72 bytes, so
// longer passwords are refused instead of silently truncated.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresIn   int64     `json:"expiresIn"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// TokenValidation is the result of validateToken. Failure reasons stay in
// the server logs.
type TokenValidation struct {
	Valid   bool   `json:"valid"`
	Subject string `json:"subject,omitempty"`
}

// LogoutResult is the reply to a logout.
type LogoutResult struct {
	Message string `json:"message"`
}
