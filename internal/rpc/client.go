// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package rpc

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

// RemoteError is a failed reply from the server.
type RemoteError struct {
	Status int
	models.APIError
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("rpc %d %s: %s", e.Status, e.Code, e.Message)
}

// Client calls the RPC surface. Callers pass credentials per call as a
// bearer token; the client adds the "Bearer " scheme.
type Client struct {
	conn   *natsgo.Conn
	prefix string
}

func NewClient(conn *natsgo.Conn, subjectPrefix string) *Client {
	return &Client{conn: conn, prefix: subjectPrefix}
}

// call sends req and decodes a successful reply's data member into out.
func (c *Client) call(ctx context.Context, op, token string, req, out interface{}) error {
	raw, err := c.request(ctx, op, token, req)
	if err != nil {
		return err
	}

	var env struct {
		Success bool             `json:"success"`
		Data    json.RawMessage  `json:"data"`
		Error   *models.APIError `json:"error"`
	}
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		return fmt.Errorf("decode %s reply: %w", op, err)
	}
	if !env.Success {
		return remoteError(raw, env.Error)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", op, err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, op, token string, req interface{}) (*natsgo.Msg, error) {
	msg := natsgo.NewMsg(Subject(c.prefix, op))
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", op, err)
		}
		msg.Data = data
	}
	if token != "" {
		msg.Header.Set(HeaderAuthorization, "Bearer "+token)
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Header.Set(HeaderRequestID, id)
	}

	reply, err := c.conn.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", op, err)
	}
	return reply, nil
}

func remoteError(reply *natsgo.Msg, apiErr *models.APIError) error {
	status, _ := strconv.Atoi(reply.Header.Get(HeaderStatus))
	if apiErr == nil {
		apiErr = &models.APIError{Code: models.CodeInternal}
	}
	return &RemoteError{Status: status, APIError: *apiErr}
}

// ListContent calls content.list. The full list envelope is returned
// because pagination and filter metadata live beside the data.
func (c *Client) ListContent(ctx context.Context, token string, q models.QueryFilter) (*models.ContentListResponse, error) {
	raw, err := c.request(ctx, OpContentList, token, q)
	if err != nil {
		return nil, err
	}

	var resp struct {
		models.ContentListResponse
		Error *models.APIError `json:"error"`
	}
	if err := json.Unmarshal(raw.Data, &resp); err != nil {
		return nil, fmt.Errorf("decode %s reply: %w", OpContentList, err)
	}
	if !resp.Success {
		return nil, remoteError(raw, resp.Error)
	}
	return &resp.ContentListResponse, nil
}

func (c *Client) CreateContent(ctx context.Context, token string, item models.NewContentItem) (*models.ContentItem, error) {
	var out models.ContentItem
	if err := c.call(ctx, OpContentCreate, token, item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetContent(ctx context.Context, token, id string) (*models.ContentItem, error) {
	var out models.ContentItem
	if err := c.call(ctx, OpContentGet, token, IDRequest{ID: id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateContent(ctx context.Context, token, id string, patch models.ContentPatch) (*models.ContentItem, error) {
	var out models.ContentItem
	if err := c.call(ctx, OpContentUpdate, token, UpdateRequest{ID: id, Patch: patch}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateToken asks whether token would be admitted.
func (c *Client) ValidateToken(ctx context.Context, token string) (*models.TokenValidation, error) {
	var out models.TokenValidation
	if err := c.call(ctx, OpValidateToken, "", TokenRequest{Token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes token.
func (c *Client) Logout(ctx context.Context, token string) (*models.LogoutResult, error) {
	var out models.LogoutResult
	if err := c.call(ctx, OpLogout, "", TokenRequest{Token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	var out models.User
	if err := c.call(ctx, OpRegister, "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	var out models.TokenResponse
	if err := c.call(ctx, OpLogin, "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
