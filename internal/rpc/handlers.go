// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package rpc

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/Danny-Lenko/story-pull-backend/internal/api"
	"github.com/Danny-Lenko/story-pull-backend/internal/auth"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

// decode unmarshals the message body into v. An empty body leaves v at
// its zero value.
func decode(msg *natsgo.Msg, v interface{}) error {
	if len(bytes.TrimSpace(msg.Data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%w: %v", api.ErrMalformedBody, err)
	}
	return nil
}

// admit runs the guard on the Authorization header and returns the caller.
func (s *Server) admit(ctx context.Context, msg *natsgo.Msg) (string, error) {
	p, err := s.guard.Admit(ctx, auth.ExtractBearer(msg.Header.Get(HeaderAuthorization)))
	if err != nil {
		return "", err
	}
	return p.Subject, nil
}

// authorization returns the credentials of a token operation: the body's
// token when present, else the Authorization header.
func authorization(msg *natsgo.Msg) (string, error) {
	var req TokenRequest
	if err := decode(msg, &req); err != nil {
		return "", err
	}
	if req.Token != "" {
		return req.Token, nil
	}
	return msg.Header.Get(HeaderAuthorization), nil
}

func success(data interface{}) *models.APIResponse {
	return &models.APIResponse{Success: true, Data: data}
}

func (s *Server) handleContentList(ctx context.Context, msg *natsgo.Msg) (interface{}, error) {
	caller, err := s.admit(ctx, msg)
	if err != nil {
		return nil, err
	}
	var q models.QueryFilter
	if err := decode(msg, &q); err != nil {
		return nil, err
	}
	return s.content.List(ctx, q, caller)
}

func (s *Server) handleContentCreate(ctx context.Context, msg *natsgo.Msg) (interface{}, error) {
	caller, err := s.admit(ctx, msg)
	if err != nil {
		return nil, err
	}
	var req models.NewContentItem
	if err := decode(msg, &req); err != nil {
		return nil, err
	}
	item, err := s.content.Create(ctx, req, caller)
	if err != nil {
		return nil, err
	}
	return success(item), nil
}

func (s *Server) handleContentGet(ctx context.Context, msg *natsgo.Msg) (interface{}, error) {
	caller, err := s.admit(ctx, msg)
	if err != nil {
		return nil, err
	}
	var req IDRequest
	if err := decode(msg, &req); err != nil {
		return nil, err
	}
	item, err := s.content.Get(ctx, req.ID, caller)
	if err != nil {
		return nil, err
	}
	return success(item), nil
}

func (s *Server) handleContentUpdate(ctx context.Context, msg *natsgo.Msg) (interface{}, error) {
	caller, err := s.admit(ctx, msg)
	if err != nil {
		return nil, err
	}
	var req UpdateRequest
	if err := decode(msg, &req); err != nil {
		return nil, err
	}
	item, err := s.content.Update(ctx, req.ID, req.Patch, caller)
	if err != nil {
		return nil, err
	}
	return success(item), nil
}

// handleValidateToken never fails on a bad token; the verdict is the body.
func (s *Server) handleValidateToken(ctx context.Context, msg *natsgo.Msg) (interface{}, error) {
	authz, err := authorization(msg)
	if err != nil {
		return nil, err
	}
	return success(s.auth.ValidateToken(ctx, authz)), nil
}

func (s *Server) handleLogout(ctx context.Context, msg *natsgo.Msg) (interface{}, error) {
	authz, err := authorization(msg)
	if err != nil {
		return nil, err
	}
	result, err := s.auth.Logout(ctx, authz)
	if err != nil {
		return nil, err
	}
	return success(result), nil
}

func (s *Server) handleRegister(ctx context.Context, msg *natsgo.Msg) (interface{}, error) {
	var req models.RegisterRequest
	if err := decode(msg, &req); err != nil {
		return nil, err
	}
	user, err := s.auth.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return success(user), nil
}

func (s *Server) handleLogin(ctx context.Context, msg *natsgo.Msg) (interface{}, error) {
	var req models.LoginRequest
	if err := decode(msg, &req); err != nil {
		return nil, err
	}
	token, err := s.auth.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	return success(token), nil
}
