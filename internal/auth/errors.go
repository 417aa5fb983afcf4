// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package auth

import (
	"errors"
	"fmt"
)

// Token verification failures returned by ValidateToken.
var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenMalformed   = errors.New("token is malformed or its signature is invalid")
	ErrTokenNotYetValid = errors.New("token is not valid yet")
)

var (
	// ErrUnauthorized matches every *DenyError via errors.Is.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRevocationUnavailable means the revocation store could not answer.
	// It is never equivalent to "not revoked".
	ErrRevocationUnavailable = errors.New("revocation store unavailable")

	ErrRevocationStoreClosed = errors.New("revocation store is closed")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
)

// DenyReason is the internal code for a guard refusal. It is logged and
// counted but never sent to callers.
type DenyReason string

const (
	ReasonNoToken          DenyReason = "no_token"
	ReasonInvalidToken     DenyReason = "invalid_token"
	ReasonTokenExpired     DenyReason = "token_expired"
	ReasonTokenNotActive   DenyReason = "token_not_active"
	ReasonTokenBlacklisted DenyReason = "token_blacklisted"
	ReasonValidationFailed DenyReason = "validation_failed"
)

// DenyError is returned by Guard.Admit for every refusal.
type DenyError struct {
	Reason DenyReason
	Err    error
}

func (e *DenyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unauthorized (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unauthorized (%s)", e.Reason)
}

func (e *DenyError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnauthorized}
	}
	return []error{ErrUnauthorized, e.Err}
}

// ReasonOf extracts the deny reason from err, or "" if err is not a denial.
func ReasonOf(err error) DenyReason {
	var de *DenyError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
