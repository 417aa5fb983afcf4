// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/Danny-Lenko/story-pull-backend/internal/auth"
	"github.com/Danny-Lenko/story-pull-backend/internal/authz"
	"github.com/Danny-Lenko/story-pull-backend/internal/config"
	"github.com/Danny-Lenko/story-pull-backend/internal/content"
	"github.com/Danny-Lenko/story-pull-backend/internal/database"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

var testDBSemaphore = make(chan struct{}, 1)

const testSecret = "router-test-secret-0123456789abcdef"

type testServer struct {
	handler http.Handler
	db      *database.DB
}

func newTestSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:         testSecret,
		JWTIssuer:         "story-pull-test",
		TokenTTL:          15 * time.Minute,
		RateLimitDisabled: true,
	}
}

func newTestServer(t *testing.T, secCfg *config.SecurityConfig) *testServer {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", Threads: 1})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := auth.NewJWTManager(secCfg)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	revocations := auth.NewMemoryRevocationStore()
	guard := auth.NewGuard(tokens, revocations)
	authSvc := auth.NewService(db, tokens, guard, revocations, bcrypt.MinCost)

	policy, err := authz.NewContentPolicy()
	if err != nil {
		t.Fatalf("NewContentPolicy() error = %v", err)
	}
	contentSvc := content.NewService(db, policy, nil)

	router := NewRouter(NewHandler(contentSvc, authSvc, db), auth.NewMiddleware(guard), secCfg)
	return &testServer{handler: router.SetupChi(), db: db}
}

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Meta    json.RawMessage  `json:"meta"`
	Error   *models.APIError `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode body %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, env
}

// login registers email and returns a bearer token and the user id.
func (s *testServer) login(t *testing.T, email string) (string, string) {
	t.Helper()
	creds := models.RegisterRequest{Email: email, Password: "correct-horse-battery"}

	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", creds)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var user models.User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		t.Fatal(err)
	}

	rec, env = s.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{Email: email, Password: creds.Password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var tok models.TokenResponse
	if err := json.Unmarshal(env.Data, &tok); err != nil {
		t.Fatal(err)
	}
	return tok.AccessToken, user.ID
}

func decodeItem(t *testing.T, env envelope) models.ContentItem {
	t.Helper()
	var item models.ContentItem
	if err := json.Unmarshal(env.Data, &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	return item
}

// ============================================================================
// Authentication endpoints
// ============================================================================

func TestRouter_AuthFlow(t *testing.T) {
	s := newTestServer(t, newTestSecurityConfig())
	token, userID := s.login(t, "writer@example.com")

	t.Run("duplicate email", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "",
			models.RegisterRequest{Email: "Writer@Example.com", Password: "another-password"})
		if rec.Code != http.StatusConflict || env.Error == nil || env.Error.Message != MessageEmailExists {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "",
			models.LoginRequest{Email: "writer@example.com", Password: "not-the-password"})
		if rec.Code != http.StatusUnauthorized || env.Error == nil || env.Error.Code != models.CodeInvalidCredentials {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("short password", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "",
			models.RegisterRequest{Email: "short@example.com", Password: "short"})
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != models.CodeValidationFailed {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("validate live token", func(t *testing.T) {
		_, env := s.do(t, http.MethodPost, "/api/v1/auth/validate", token, nil)
		var v models.TokenValidation
		if err := json.Unmarshal(env.Data, &v); err != nil {
			t.Fatal(err)
		}
		if !v.Valid || v.Subject != userID {
			t.Errorf("validation = %+v, want valid for %s", v, userID)
		}
	})

	t.Run("logout then reuse", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
		if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), auth.LogoutMessage) {
			t.Fatalf("logout status = %d, body = %s", rec.Code, rec.Body.String())
		}

		_, env = s.do(t, http.MethodPost, "/api/v1/auth/validate", token, nil)
		var v models.TokenValidation
		if err := json.Unmarshal(env.Data, &v); err != nil {
			t.Fatal(err)
		}
		if v.Valid {
			t.Error("revoked token still validates")
		}

		rec, _ = s.do(t, http.MethodGet, "/api/v1/content", token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("list with revoked token status = %d, want 401", rec.Code)
		}
	})

	t.Run("logout without token still succeeds", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, "/api/v1/auth/logout", "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestRouter_LoginRateLimit(t *testing.T) {
	cfg := newTestSecurityConfig()
	cfg.RateLimitDisabled = false
	s := newTestServer(t, cfg)

	creds := models.LoginRequest{Email: "nobody@example.com", Password: "whatever-password"}
	for i := 0; i < RateLimitLogin.Requests; i++ {
		rec, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}

	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	if rec.Code != http.StatusTooManyRequests || env.Error == nil || env.Error.Code != models.CodeRateLimited {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

// ============================================================================
// Content endpoints
// ============================================================================

func TestRouter_ContentRequiresToken(t *testing.T) {
	s := newTestServer(t, newTestSecurityConfig())

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/content"},
		{http.MethodPost, "/api/v1/content"},
		{http.MethodGet, "/api/v1/content/0b0f3c1e-5f4a-4c57-9b1a-2d7f0c8e1a11"},
		{http.MethodPatch, "/api/v1/content/0b0f3c1e-5f4a-4c57-9b1a-2d7f0c8e1a11"},
	} {
		rec, env := s.do(t, tc.method, tc.path, "", nil)
		if rec.Code != http.StatusUnauthorized || env.Error == nil || env.Error.Message != "Unauthorized" {
			t.Errorf("%s %s: status = %d, body = %s", tc.method, tc.path, rec.Code, rec.Body.String())
		}
		if rec.Header().Get("X-Request-ID") == "" || env.Error == nil || env.Error.RequestID != rec.Header().Get("X-Request-ID") {
			t.Errorf("%s %s: request id not echoed in error", tc.method, tc.path)
		}
	}
}

func TestRouter_ContentLifecycle(t *testing.T) {
	s := newTestServer(t, newTestSecurityConfig())
	alice, aliceID := s.login(t, "alice@example.com")
	bob, _ := s.login(t, "bob@example.com")

	rec, env := s.do(t, http.MethodPost, "/api/v1/content", alice, map[string]interface{}{
		"title":   "Getting Started with Go",
		"body":    "Modules, packages and the toolchain.",
		"type":    "article",
		"tags":    []string{"go", "tutorial"},
		"article": map[string]string{"category": "programming"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeItem(t, env)
	if created.AuthorID != aliceID || created.Status != models.StatusDraft || created.PublishedAt != nil {
		t.Fatalf("created = %+v", created)
	}
	if created.Slug != "getting-started-with-go" || created.Article == nil || created.Article.Category != "programming" {
		t.Errorf("slug = %q, article = %+v", created.Slug, created.Article)
	}
	itemPath := "/api/v1/content/" + created.ID

	t.Run("owner reads draft", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, itemPath, alice, nil)
		if rec.Code != http.StatusOK || decodeItem(t, env).ID != created.ID {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("other caller cannot read draft", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, itemPath, bob, nil)
		if rec.Code != http.StatusForbidden || env.Error == nil || env.Error.Message != content.MessageForbidden {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), aliceID) {
			t.Error("forbidden response leaks the owner id")
		}
	})

	t.Run("other caller cannot update draft", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPatch, itemPath, bob, map[string]string{"title": "Hijacked"})
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("owner publishes", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPatch, itemPath, alice, map[string]string{"status": "published"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		updated := decodeItem(t, env)
		if updated.Status != models.StatusPublished || updated.PublishedAt == nil || updated.Version != created.Version+1 {
			t.Errorf("updated = %+v", updated)
		}
	})

	t.Run("other caller reads published", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodGet, itemPath, bob, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("other caller updates published", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPatch, itemPath, bob, map[string]string{"body": "Edited by a reader."})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if updated := decodeItem(t, env); updated.AuthorID != aliceID {
			t.Errorf("author changed to %q", updated.AuthorID)
		}
	})

	t.Run("malformed and unknown ids look the same", func(t *testing.T) {
		for _, id := range []string{"not-a-uuid", "7c9e6679-7425-40de-944b-e07fc1f90ae7"} {
			rec, env := s.do(t, http.MethodGet, "/api/v1/content/"+id, alice, nil)
			want := content.NotFoundMessage(id)
			if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Message != want {
				t.Errorf("id %q: status = %d, body = %s", id, rec.Code, rec.Body.String())
			}
		}
	})

	t.Run("invalid create", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/content", alice, map[string]string{"title": "<b>x</b>", "type": "video"})
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != models.CodeValidationFailed {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"field":"title"`) {
			t.Errorf("details missing title: %s", rec.Body.String())
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/content", alice, `{"title":`)
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != models.CodeBadRequest {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})
}

func TestRouter_ContentList(t *testing.T) {
	s := newTestServer(t, newTestSecurityConfig())
	alice, aliceID := s.login(t, "alice@example.com")
	bob, _ := s.login(t, "bob@example.com")

	create := func(token, title string, tags ...string) {
		t.Helper()
		rec, _ := s.do(t, http.MethodPost, "/api/v1/content", token, map[string]interface{}{
			"title": title, "body": "Body of " + title, "type": "page", "tags": tags,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %q status = %d, body = %s", title, rec.Code, rec.Body.String())
		}
	}
	create(alice, "JS basics", "javascript")
	create(alice, "Node servers", "javascript", "nodejs")
	create(bob, "Bob's node notes", "javascript", "nodejs")

	tests := []struct {
		name       string
		query      string
		wantTitles []string
		wantTotal  int64
		wantFilter []string
	}{
		{"all own items", "", []string{"Node servers", "JS basics"}, 2, []string{}},
		{"tags AND", "?tags=javascript,nodejs", []string{"Node servers"}, 1, []string{models.FilterTags}},
		{"repeated tags", "?tags=javascript&tags=nodejs", []string{"Node servers"}, 1, []string{models.FilterTags}},
		{"search and status", "?search=basics&status=draft", []string{"JS basics"}, 1, []string{models.FilterTextSearch, models.FilterStatus}},
		{"title ascending", "?sortBy=title&sortOrder=asc", []string{"JS basics", "Node servers"}, 2, []string{}},
		{"page past end", "?page=5&limit=1", []string{}, 2, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, http.MethodGet, "/api/v1/content"+tt.query, alice, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}

			var items []models.ContentItem
			if err := json.Unmarshal(env.Data, &items); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			var meta models.ListMeta
			if err := json.Unmarshal(env.Meta, &meta); err != nil {
				t.Fatalf("decode meta: %v", err)
			}

			if len(items) != len(tt.wantTitles) {
				t.Fatalf("got %d items, want %d", len(items), len(tt.wantTitles))
			}
			for i, item := range items {
				if item.AuthorID != aliceID {
					t.Errorf("item %q belongs to %s", item.Title, item.AuthorID)
				}
				if item.Title != tt.wantTitles[i] {
					t.Errorf("items[%d] = %q, want %q", i, item.Title, tt.wantTitles[i])
				}
			}
			if meta.Pagination.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", meta.Pagination.Total, tt.wantTotal)
			}
			if len(meta.Filter.Applied) != len(tt.wantFilter) {
				t.Errorf("applied = %v, want %v", meta.Filter.Applied, tt.wantFilter)
			}
			if len(meta.Filter.Available) != len(models.AvailableFilters()) {
				t.Errorf("available = %v", meta.Filter.Available)
			}
		})
	}

	t.Run("bad query", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/v1/content?page=two&dateFrom=yesterday", alice, nil)
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != models.CodeValidationFailed {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("gzip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/content", nil)
		req.Header.Set("Authorization", "Bearer "+alice)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		if rec.Header().Get("Content-Encoding") != "gzip" {
			t.Errorf("Content-Encoding = %q, want gzip", rec.Header().Get("Content-Encoding"))
		}
	})
}

func TestParseQueryFilter(t *testing.T) {
	q, err := parseQueryFilter(map[string][]string{
		"search":    {"  go modules "},
		"status":    {"draft,published", "archived"},
		"tags":      {"go", " ,tutorial"},
		"dateFrom":  {"2026-01-01"},
		"dateTo":    {"2026-02-01T12:00:00Z"},
		"page":      {"2"},
		"limit":     {"25"},
		"sortBy":    {"title"},
		"sortOrder": {"ASC"},
	})
	if err != nil {
		t.Fatalf("parseQueryFilter() error = %v", err)
	}
	if q.Search != "go modules" || len(q.Status) != 3 || len(q.Tags) != 2 || q.Tags[1] != "tutorial" {
		t.Errorf("q = %+v", q)
	}
	if q.Page != 2 || q.Limit != 25 || q.SortBy != models.SortTitle || q.SortOrder != models.SortAsc {
		t.Errorf("window = %+v", q)
	}
	if q.DateFrom == nil || !q.DateFrom.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) || q.DateTo == nil {
		t.Errorf("dates = %v, %v", q.DateFrom, q.DateTo)
	}
}

// ============================================================================
// Health and routing
// ============================================================================

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, newTestSecurityConfig())

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready"} {
		rec, env := s.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK || !env.Success {
			t.Errorf("%s: status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
	}

	h := NewHandler(nil, nil, failingPinger{})
	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with dead database status = %d, want 503", rec.Code)
	}
}

func TestRouter_Fallbacks(t *testing.T) {
	s := newTestServer(t, newTestSecurityConfig())

	rec, env := s.do(t, http.MethodGet, "/api/v2/nothing", "", nil)
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Message != MessageRouteNotFound {
		t.Errorf("unknown route: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/auth/login", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET login status = %d, want 405", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	s.handler.ServeHTTP(mrec, req)
	if mrec.Code != http.StatusOK || !strings.Contains(mrec.Body.String(), "api_requests_total") {
		t.Errorf("/metrics status = %d", mrec.Code)
	}
}
