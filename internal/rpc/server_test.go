// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package rpc

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"golang.org/x/crypto/bcrypt"

	"github.com/Danny-Lenko/story-pull-backend/internal/auth"
	"github.com/Danny-Lenko/story-pull-backend/internal/authz"
	"github.com/Danny-Lenko/story-pull-backend/internal/config"
	"github.com/Danny-Lenko/story-pull-backend/internal/content"
	"github.com/Danny-Lenko/story-pull-backend/internal/database"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

var testDBSemaphore = make(chan struct{}, 1)

const testPrefix = "test"

func startEmbedded(t *testing.T) *natsgo.Conn {
	t.Helper()

	ns, err := NewEmbeddedServer("127.0.0.1", -1)
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ns.Shutdown(ctx)
	})

	nc, err := Connect(ns.ClientURL(), "rpc-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(nc.Close)
	return nc
}

// startServer runs a Server backed by in-memory DuckDB and returns a
// client on the same broker.
func startServer(t *testing.T, cfg ServerConfig) *Client {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", Threads: 1})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := auth.NewJWTManager(&config.SecurityConfig{
		JWTSecret: "rpc-test-secret-0123456789abcdefgh",
		TokenTTL:  15 * time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	revocations := auth.NewMemoryRevocationStore()
	guard := auth.NewGuard(tokens, revocations)
	authSvc := auth.NewService(db, tokens, guard, revocations, bcrypt.MinCost)

	policy, err := authz.NewContentPolicy()
	if err != nil {
		t.Fatal(err)
	}
	contentSvc := content.NewService(db, policy, nil)

	nc := startEmbedded(t)
	cfg.SubjectPrefix = testPrefix
	cfg.QueueGroup = "content-service"
	srv := NewServer(nc, cfg, contentSvc, authSvc, guard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})

	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("Serve() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server not ready")
	}

	return NewClient(nc, testPrefix)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func loginAs(t *testing.T, c *Client, email string) (token, userID string) {
	t.Helper()
	ctx := testContext(t)
	user, err := c.Register(ctx, models.RegisterRequest{Email: email, Password: "correct-horse-battery"})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	tok, err := c.Login(ctx, models.LoginRequest{Email: email, Password: "correct-horse-battery"})
	if err != nil {
		t.Fatalf("Login(%s) error = %v", email, err)
	}
	return tok.AccessToken, user.ID
}

func wantRemote(t *testing.T, err error, status int, code string) *RemoteError {
	t.Helper()
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if re.Status != status || re.Code != code {
		t.Fatalf("remote error = %d %s (%q), want %d %s", re.Status, re.Code, re.Message, status, code)
	}
	return re
}

func TestServer_ContentOperations(t *testing.T) {
	c := startServer(t, ServerConfig{})
	ctx := testContext(t)

	alice, aliceID := loginAs(t, c, "alice@example.com")
	bob, _ := loginAs(t, c, "bob@example.com")

	item, err := c.CreateContent(ctx, alice, models.NewContentItem{
		Title: "Release notes",
		Body:  "What changed in this release.",
		Type:  models.ContentTypeBlogPost,
		Tags:  []string{"release", "changelog"},
		ContentPayload: models.ContentPayload{
			BlogPost: &models.BlogPostFields{Keywords: []string{"release"}},
		},
	})
	if err != nil {
		t.Fatalf("CreateContent() error = %v", err)
	}
	if item.AuthorID != aliceID || item.Status != models.StatusDraft || item.Slug != "release-notes" {
		t.Fatalf("created = %+v", item)
	}

	t.Run("get own", func(t *testing.T) {
		got, err := c.GetContent(ctx, alice, item.ID)
		if err != nil || got.ID != item.ID {
			t.Fatalf("GetContent() = %+v, %v", got, err)
		}
	})

	t.Run("get foreign draft", func(t *testing.T) {
		_, err := c.GetContent(ctx, bob, item.ID)
		re := wantRemote(t, err, http.StatusForbidden, models.CodeForbidden)
		if re.Message != content.MessageForbidden {
			t.Errorf("message = %q", re.Message)
		}
	})

	t.Run("get malformed id", func(t *testing.T) {
		_, err := c.GetContent(ctx, alice, "42")
		re := wantRemote(t, err, http.StatusNotFound, models.CodeNotFound)
		if re.Message != content.NotFoundMessage("42") {
			t.Errorf("message = %q", re.Message)
		}
	})

	t.Run("update foreign draft", func(t *testing.T) {
		title := "Taken over"
		_, err := c.UpdateContent(ctx, bob, item.ID, models.ContentPatch{Title: &title})
		wantRemote(t, err, http.StatusForbidden, models.CodeForbidden)
	})

	t.Run("publish", func(t *testing.T) {
		status := models.StatusPublished
		got, err := c.UpdateContent(ctx, alice, item.ID, models.ContentPatch{Status: &status})
		if err != nil {
			t.Fatalf("UpdateContent() error = %v", err)
		}
		if got.PublishedAt == nil || got.Version != item.Version+1 {
			t.Errorf("updated = %+v", got)
		}
	})

	t.Run("list", func(t *testing.T) {
		resp, err := c.ListContent(ctx, alice, models.QueryFilter{Tags: []string{"release", "changelog"}})
		if err != nil {
			t.Fatalf("ListContent() error = %v", err)
		}
		if len(resp.Data) != 1 || resp.Meta.Pagination.Total != 1 || resp.Meta.Pagination.LastPage != 1 {
			t.Errorf("resp = %+v", resp)
		}

		resp, err = c.ListContent(ctx, bob, models.QueryFilter{})
		if err != nil {
			t.Fatalf("ListContent(bob) error = %v", err)
		}
		if len(resp.Data) != 0 || resp.Meta.Pagination.Total != 0 {
			t.Errorf("bob sees %d items of alice", len(resp.Data))
		}
	})

	t.Run("list validation", func(t *testing.T) {
		_, err := c.ListContent(ctx, alice, models.QueryFilter{SortBy: "body"})
		wantRemote(t, err, http.StatusBadRequest, models.CodeValidationFailed)
	})
}

func TestServer_Unauthorized(t *testing.T) {
	c := startServer(t, ServerConfig{})
	ctx := testContext(t)

	for _, token := range []string{"", "garbage"} {
		_, err := c.ListContent(ctx, token, models.QueryFilter{})
		re := wantRemote(t, err, http.StatusUnauthorized, models.CodeUnauthorized)
		if re.Message != auth.MessageUnauthorized {
			t.Errorf("message = %q", re.Message)
		}
	}
}

func TestServer_TokenLifecycle(t *testing.T) {
	c := startServer(t, ServerConfig{})
	ctx := testContext(t)
	token, userID := loginAs(t, c, "carol@example.com")

	v, err := c.ValidateToken(ctx, token)
	if err != nil || !v.Valid || v.Subject != userID {
		t.Fatalf("ValidateToken() = %+v, %v", v, err)
	}

	out, err := c.Logout(ctx, token)
	if err != nil || out.Message != auth.LogoutMessage {
		t.Fatalf("Logout() = %+v, %v", out, err)
	}

	v, err = c.ValidateToken(ctx, token)
	if err != nil || v.Valid {
		t.Errorf("ValidateToken() after logout = %+v, %v", v, err)
	}

	_, err = c.GetContent(ctx, token, "0b0f3c1e-5f4a-4c57-9b1a-2d7f0c8e1a11")
	wantRemote(t, err, http.StatusUnauthorized, models.CodeUnauthorized)

	out, err = c.Logout(ctx, "not-a-token")
	if err != nil || out.Message != auth.LogoutMessage {
		t.Errorf("Logout(garbage) = %+v, %v", out, err)
	}

	_, err = c.Register(ctx, models.RegisterRequest{Email: "carol@example.com", Password: "another-password"})
	wantRemote(t, err, http.StatusConflict, models.CodeConflict)

	_, err = c.Login(ctx, models.LoginRequest{Email: "carol@example.com", Password: "wrong-password"})
	wantRemote(t, err, http.StatusUnauthorized, models.CodeInvalidCredentials)
}

func TestServer_MalformedPayload(t *testing.T) {
	c := startServer(t, ServerConfig{})
	ctx := testContext(t)

	msg := natsgo.NewMsg(Subject(testPrefix, OpRegister))
	msg.Data = []byte(`{"email":`)
	reply, err := c.conn.RequestMsgWithContext(ctx, msg)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	if reply.Header.Get(HeaderStatus) != "400" {
		t.Errorf("Status header = %q, want 400", reply.Header.Get(HeaderStatus))
	}
	var env models.APIResponse
	if err := json.Unmarshal(reply.Data, &env); err != nil {
		t.Fatal(err)
	}
	if env.Success || env.Error == nil || env.Error.Code != models.CodeBadRequest || env.Error.RequestID == "" {
		t.Errorf("reply = %s", reply.Data)
	}
}

func TestServer_Throttling(t *testing.T) {
	c := startServer(t, ServerConfig{RequestRate: 0.001, RequestBurst: 2})
	ctx := testContext(t)

	var (
		mu        sync.Mutex
		throttled int
	)
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ValidateToken(ctx, "whatever")
			var re *RemoteError
			if errors.As(err, &re) && re.Code == models.CodeRateLimited {
				mu.Lock()
				throttled++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if throttled != 4 {
		t.Errorf("throttled = %d, want 4 past a burst of 2", throttled)
	}
}

func TestServer_DispatchAfterStop(t *testing.T) {
	tests := []struct {
		name       string
		stopped    bool
		wantCalled bool
	}{
		{"accepting", false, true},
		{"stopped", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(nil, ServerConfig{MaxConcurrent: 1}, nil, nil, nil)
			if tt.stopped {
				srv.stopAccepting()
			}

			var called sync.WaitGroup
			var ran bool
			called.Add(1)
			h := func(context.Context, *natsgo.Msg) (interface{}, error) {
				ran = true
				called.Done()
				return nil, nil
			}
			if !tt.wantCalled {
				called.Done()
			}

			srv.dispatch(OpContentList, h)(&natsgo.Msg{Subject: "test.content.list", Reply: "_INBOX.x", Header: natsgo.Header{}})
			called.Wait()
			srv.wg.Wait()

			if ran != tt.wantCalled {
				t.Errorf("handler ran = %v, want %v", ran, tt.wantCalled)
			}
			if len(srv.sem) != 0 {
				t.Errorf("semaphore holds %d slots after dispatch", len(srv.sem))
			}
		})
	}
}

func TestServer_ShutdownUnderLoad(t *testing.T) {
	nc := startEmbedded(t)
	srv := NewServer(nc, ServerConfig{SubjectPrefix: testPrefix, QueueGroup: "content-service", MaxConcurrent: 2}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	<-srv.Ready()

	caller, err := Connect(nc.ConnectedUrl(), "rpc-load")
	if err != nil {
		t.Fatal(err)
	}
	defer caller.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = caller.Request(Subject(testPrefix, OpRegister), []byte(`{`), 500*time.Millisecond)
		}()
	}
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return while requests were arriving")
	}
	wg.Wait()
}

func TestSubject(t *testing.T) {
	if got := Subject("storypull", OpContentList); got != "storypull.content.list" {
		t.Errorf("Subject() = %q", got)
	}
	if got := Subject("", OpLogout); got != "auth.logout" {
		t.Errorf("Subject() = %q", got)
	}
}
