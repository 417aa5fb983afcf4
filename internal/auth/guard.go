// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
)

// TokenVerifier verifies a raw bearer token. *JWTManager implements it.
type TokenVerifier interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Principal is the authenticated caller attached to an admitted request.
type Principal struct {
	Subject   string
	Email     string
	TokenKey  string
	ExpiresAt time.Time
	Claims    *Claims
}

// Guard decides whether a bearer token may reach a content operation.
//
// It runs, in order: presence check, signature and time validation,
// revocation lookup. The first failing step ends the request with a
// *DenyError. A revocation store failure denies; it never admits.
type Guard struct {
	verifier    TokenVerifier
	revocations RevocationStore
	security    *logging.SecurityLogger
}

func NewGuard(verifier TokenVerifier, revocations RevocationStore) *Guard {
	return &Guard{
		verifier:    verifier,
		revocations: revocations,
		security:    logging.NewSecurityLogger(),
	}
}

// Admit validates rawToken and returns the caller's principal.
func (g *Guard) Admit(ctx context.Context, rawToken string) (*Principal, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, g.deny(ctx, ReasonNoToken, rawToken, nil)
	}

	claims, err := g.verifier.ValidateToken(rawToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			return nil, g.deny(ctx, ReasonTokenExpired, rawToken, err)
		case errors.Is(err, ErrTokenNotYetValid):
			return nil, g.deny(ctx, ReasonTokenNotActive, rawToken, err)
		default:
			return nil, g.deny(ctx, ReasonInvalidToken, rawToken, err)
		}
	}

	key := TokenKey(claims, rawToken)
	revoked, err := g.revocations.IsRevoked(ctx, key)
	if err != nil {
		return nil, g.deny(ctx, ReasonValidationFailed, rawToken, err)
	}
	if revoked {
		return nil, g.deny(ctx, ReasonTokenBlacklisted, rawToken, nil)
	}

	GuardDecisionsTotal.WithLabelValues("admit", "").Inc()

	p := &Principal{
		Subject:  claims.Subject,
		Email:    claims.Email,
		TokenKey: key,
		Claims:   claims,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

func (g *Guard) deny(ctx context.Context, reason DenyReason, token string, cause error) error {
	GuardDecisionsTotal.WithLabelValues("deny", string(reason)).Inc()
	g.security.LogGuardDenied(ctx, string(reason), token, cause)
	return &DenyError{Reason: reason, Err: cause}
}

// ExtractBearer pulls the token out of an Authorization value. Both
// "Bearer <token>" and a bare token are accepted; any other scheme, or the
// scheme word with no token after it, yields "".
func ExtractBearer(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	scheme, rest, found := strings.Cut(header, " ")
	if !found {
		if strings.EqualFold(header, "Bearer") {
			return ""
		}
		return header
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}

type principalKey struct{}

// ContextWithPrincipal attaches an admitted principal to ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal set by ContextWithPrincipal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
