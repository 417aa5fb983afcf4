// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

// Package authz decides who may read or write a content item.
//
// The rules live in an embedded Casbin model and policy: the owner may do
// anything with an item, and any authenticated caller may read or update
// a published item.
package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Action is an operation on a content item.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// ContentPolicy evaluates content access rules.
type ContentPolicy struct {
	enforcer *casbin.SyncedEnforcer
}

// NewContentPolicy loads the embedded model and policy.
func NewContentPolicy() (*ContentPolicy, error) {
	return newContentPolicy(embeddedModel, embeddedPolicy)
}

func newContentPolicy(modelText, policyText string) (*ContentPolicy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadPolicy(e, policyText); err != nil {
		return nil, err
	}
	return &ContentPolicy{enforcer: e}, nil
}

// loadPolicy reads CSV policy lines ("p, act, status"), skipping blanks
// and comments.
func loadPolicy(e *casbin.SyncedEnforcer, text string) error {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if parts[0] != "p" || len(parts) < 3 {
			return fmt.Errorf("unsupported policy line %q", line)
		}
		if _, err := e.AddPolicy(parts[1], parts[2]); err != nil {
			return fmt.Errorf("failed to add policy %q: %w", line, err)
		}
	}
	return nil
}

// Allowed reports whether callerID may perform act on item.
func (p *ContentPolicy) Allowed(callerID string, item *models.ContentItem, act Action) (bool, error) {
	ok, err := p.enforcer.Enforce(callerID, item.AuthorID, string(item.Status), string(act))
	if err != nil {
		return false, fmt.Errorf("enforce content policy: %w", err)
	}
	return ok, nil
}

// CanRead is Allowed with ActionRead.
func (p *ContentPolicy) CanRead(callerID string, item *models.ContentItem) (bool, error) {
	return p.Allowed(callerID, item, ActionRead)
}

// CanWrite is Allowed with ActionWrite.
func (p *ContentPolicy) CanWrite(callerID string, item *models.ContentItem) (bool, error) {
	return p.Allowed(callerID, item, ActionWrite)
}
