// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
	"github.com/Danny-Lenko/story-pull-backend/internal/validation"
)

// LogoutMessage is the reply to every successful logout.
const LogoutMessage = "Logout successful"

// UserStore persists accounts. GetUserByEmail returns (nil, nil) when no
// account matches; CreateUser returns models.ErrDuplicate for a taken email.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service implements register, login, logout and token validation.
type Service struct {
	users       UserStore
	tokens      *JWTManager
	guard       *Guard
	revocations RevocationStore
	bcryptCost  int
	security    *logging.SecurityLogger
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(users UserStore, tokens *JWTManager, guard *Guard, revocations RevocationStore, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:       users,
		tokens:      tokens,
		guard:       guard,
		revocations: revocations,
		bcryptCost:  bcryptCost,
		security:    logging.NewSecurityLogger(),
		now:         time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. It returns ErrEmailExists when the email is
// taken and a *validation.RequestValidationError for bad input.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	if verr := validation.ValidateStruct(&req); verr != nil {
		AuthOperationsTotal.WithLabelValues("register", "invalid").Inc()
		return nil, verr
	}

	existing, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		AuthOperationsTotal.WithLabelValues("register", "conflict").Inc()
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			AuthOperationsTotal.WithLabelValues("register", "conflict").Inc()
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	AuthOperationsTotal.WithLabelValues("register", "success").Inc()
	s.security.LogRegistered(ctx, user.ID, user.Email)
	return user, nil
}

// Login checks credentials and issues an access token. Unknown email and
// wrong password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if verr := validation.ValidateStruct(&req); verr != nil {
		AuthOperationsTotal.WithLabelValues("login", "invalid").Inc()
		return nil, verr
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash := s.timingHash()
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil || user == nil {
		AuthOperationsTotal.WithLabelValues("login", "failure").Inc()
		s.security.LogLoginFailure(ctx, req.Email, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	AuthOperationsTotal.WithLabelValues("login", "success").Inc()
	s.security.LogLoginSuccess(ctx, user.ID, user.Email)
	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		ExpiresAt:   expiresAt.UTC(),
	}, nil
}

// timingHash is compared against when the email is unknown so that both
// failure paths cost one bcrypt comparison.
func (s *Service) timingHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.bcryptCost)
	})
	return s.dummyHash
}

// Logout revokes the token for the rest of its lifetime. Missing,
// undecodable and already expired tokens are answered with success and
// nothing is written. Only a revocation store failure on a live token is
// an error, since the token would otherwise stay usable.
func (s *Service) Logout(ctx context.Context, authorization string) (*models.LogoutResult, error) {
	result := &models.LogoutResult{Message: LogoutMessage}

	raw := ExtractBearer(authorization)
	if raw == "" {
		AuthOperationsTotal.WithLabelValues("logout", "no_token").Inc()
		return result, nil
	}

	claims, err := s.tokens.DecodeIgnoringExpiry(raw)
	if err != nil {
		AuthOperationsTotal.WithLabelValues("logout", "undecodable").Inc()
		logging.Ctx(ctx).Debug().Err(err).Msg("logout with undecodable token")
		return result, nil
	}
	if claims.ExpiresAt == nil {
		AuthOperationsTotal.WithLabelValues("logout", "no_expiry").Inc()
		return result, nil
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		AuthOperationsTotal.WithLabelValues("logout", "expired").Inc()
		s.security.LogLogout(ctx, claims.Subject, false)
		return result, nil
	}

	if err := s.revocations.Revoke(ctx, TokenKey(claims, raw), ttl); err != nil {
		AuthOperationsTotal.WithLabelValues("logout", "error").Inc()
		return nil, fmt.Errorf("revoke token: %w", err)
	}

	AuthOperationsTotal.WithLabelValues("logout", "success").Inc()
	s.security.LogLogout(ctx, claims.Subject, true)
	return result, nil
}

// ValidateToken runs the guard and reports only valid/invalid and the
// subject. Infrastructure failures report invalid, matching the guard's
// fail-closed rule.
func (s *Service) ValidateToken(ctx context.Context, authorization string) *models.TokenValidation {
	p, err := s.guard.Admit(ctx, ExtractBearer(authorization))
	if err != nil {
		return &models.TokenValidation{Valid: false}
	}
	return &models.TokenValidation{Valid: true, Subject: p.Subject}
}

// Guard returns the guard used by ValidateToken.
func (s *Service) Guard() *Guard {
	return s.guard
}
