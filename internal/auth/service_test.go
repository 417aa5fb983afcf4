// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Danny-Lenko/story-pull-backend/internal/models"
	"github.com/Danny-Lenko/story-pull-backend/internal/validation"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*models.User)}
}

func (s *memUserStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return models.ErrDuplicate
	}
	cp := *u
	s.users[u.Email] = &cp
	return nil
}

func (s *memUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// countingStore records Revoke calls on top of a memory store.
type countingStore struct {
	*MemoryRevocationStore
	revokes int
	err     error
}

func (c *countingStore) Revoke(ctx context.Context, key string, ttl time.Duration) error {
	c.revokes++
	if c.err != nil {
		return c.err
	}
	return c.MemoryRevocationStore.Revoke(ctx, key, ttl)
}

func newTestService(t *testing.T) (*Service, *countingStore) {
	t.Helper()
	m := newTestManager(t)
	store := &countingStore{MemoryRevocationStore: NewMemoryRevocationStore()}
	svc := NewService(newMemUserStore(), m, NewGuard(m, store), store, bcrypt.MinCost)
	return svc, store
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, models.RegisterRequest{Email: " Alice@Example.com ", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized", user.Email)
	}
	if user.PasswordHash == "correct horse" {
		t.Fatal("password stored in clear")
	}

	if _, err := svc.Register(ctx, models.RegisterRequest{Email: "alice@example.com", Password: "another pass"}); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate Register() error = %v, want ErrEmailExists", err)
	}

	tok, err := svc.Login(ctx, models.LoginRequest{Email: "ALICE@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if tok.TokenType != "Bearer" || tok.ExpiresIn != int64((15*time.Minute).Seconds()) {
		t.Errorf("token response = %+v", tok)
	}

	v := svc.ValidateToken(ctx, "Bearer "+tok.AccessToken)
	if !v.Valid || v.Subject != user.ID {
		t.Errorf("ValidateToken() = %+v, want valid for %s", v, user.ID)
	}
}

func TestService_LoginFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, models.RegisterRequest{Email: "bob@example.com", Password: "password1"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name string
		req  models.LoginRequest
		want error
	}{
		{"wrong password", models.LoginRequest{Email: "bob@example.com", Password: "password2"}, ErrInvalidCredentials},
		{"unknown email", models.LoginRequest{Email: "nobody@example.com", Password: "password1"}, ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Login() error = %v, want %v", err, tt.want)
			}
		})
	}

	_, err := svc.Login(ctx, models.LoginRequest{Email: "not-an-email", Password: "x"})
	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Login() with bad email error = %v, want validation error", err)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "a@example.com", Password: "short"})
	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Register() error = %v, want validation error", err)
	}
	if verr.Fields()[0].Field != "password" {
		t.Errorf("field = %q, want password", verr.Fields()[0].Field)
	}
}

func TestService_LogoutRevokesLiveToken(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.tokens.GenerateToken("user-1", "")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	res, err := svc.Logout(ctx, "Bearer "+token)
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if res.Message != "Logout successful" {
		t.Errorf("message = %q", res.Message)
	}
	if store.revokes != 1 {
		t.Errorf("revokes = %d, want 1", store.revokes)
	}

	if v := svc.ValidateToken(ctx, token); v.Valid {
		t.Error("token must be invalid after logout")
	}
	_, err = svc.Guard().Admit(ctx, token)
	if ReasonOf(err) != ReasonTokenBlacklisted {
		t.Errorf("reason = %q, want %q", ReasonOf(err), ReasonTokenBlacklisted)
	}

	// A second logout with the same token is still a success.
	if _, err := svc.Logout(ctx, token); err != nil {
		t.Errorf("second Logout() error = %v", err)
	}
}

func TestService_LogoutExpiredTokenSkipsRevoke(t *testing.T) {
	svc, store := newTestService(t)

	expired := signClaims(t, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "jti-expired",
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}, jwt.SigningMethodHS256, []byte(testSecret))

	res, err := svc.Logout(context.Background(), expired)
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if res.Message != "Logout successful" {
		t.Errorf("message = %q", res.Message)
	}
	if store.revokes != 0 {
		t.Errorf("revoke called %d times for an expired token", store.revokes)
	}
}

func TestService_LogoutWithoutUsableToken(t *testing.T) {
	svc, store := newTestService(t)

	for _, in := range []string{"", "garbage", "Basic abc"} {
		res, err := svc.Logout(context.Background(), in)
		if err != nil || res.Message != "Logout successful" {
			t.Errorf("Logout(%q) = %+v, %v", in, res, err)
		}
	}
	if store.revokes != 0 {
		t.Errorf("revokes = %d, want 0", store.revokes)
	}
}

func TestService_LogoutStoreFailure(t *testing.T) {
	svc, store := newTestService(t)
	store.err = errors.New("disk full")

	token, _, _ := svc.tokens.GenerateToken("user-1", "")
	if _, err := svc.Logout(context.Background(), token); err == nil {
		t.Fatal("Logout() must fail when a live token could not be revoked")
	}
}
