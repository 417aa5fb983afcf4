// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package rpc

import "github.com/Danny-Lenko/story-pull-backend/internal/models"

// Operation names, appended to the subject prefix.
const (
	OpContentList   = "content.list"
	OpContentCreate = "content.create"
	OpContentGet    = "content.get"
	OpContentUpdate = "content.update"
	OpValidateToken = "auth.validateToken"
	OpLogout        = "auth.logout"
	OpRegister      = "auth.register"
	OpLogin         = "auth.login"
)

// Message headers.
const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	HeaderStatus        = "Status"
)

// Subject joins prefix and op.
func Subject(prefix, op string) string {
	if prefix == "" {
		return op
	}
	return prefix + "." + op
}

// IDRequest addresses one content item.
type IDRequest struct {
	ID string `json:"id"`
}

// UpdateRequest carries a patch for one content item.
type UpdateRequest struct {
	ID    string              `json:"id"`
	Patch models.ContentPatch `json:"patch"`
}

// TokenRequest carries a raw token for validateToken and logout when the
// caller does not use the Authorization header.
type TokenRequest struct {
	Token string `json:"token"`
}
