// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

/*
schema.go - Database Schema Management

Tables:
  - content_items: one row per content item; metadata, seo and the
    type-specific payload are JSON documents in VARCHAR columns
  - content_tags: one row per (item, tag), ordered by position, used for
    the all-of tag filter
  - users: registered accounts, unique by email

Indexes cover the list filters: (type, status, published_at), created_at,
author_id and tag.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS content_items (
			id VARCHAR PRIMARY KEY,
			title VARCHAR NOT NULL,
			body VARCHAR NOT NULL,
			type VARCHAR NOT NULL,
			author VARCHAR NOT NULL DEFAULT '',
			author_id VARCHAR NOT NULL,
			status VARCHAR NOT NULL DEFAULT 'draft',
			metadata VARCHAR,
			seo VARCHAR,
			payload VARCHAR,
			version INTEGER NOT NULL DEFAULT 0,
			slug VARCHAR NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			published_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS content_tags (
			content_id VARCHAR NOT NULL,
			tag VARCHAR NOT NULL,
			position INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR PRIMARY KEY,
			email VARCHAR NOT NULL UNIQUE,
			password_hash VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_content_type_status_published ON content_items(type, status, published_at)`,
		`CREATE INDEX IF NOT EXISTS idx_content_created_at ON content_items(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_content_author_id ON content_items(author_id)`,
		`CREATE INDEX IF NOT EXISTS idx_content_tags_tag ON content_tags(tag)`,
		`CREATE INDEX IF NOT EXISTS idx_content_tags_content_id ON content_tags(content_id)`,
	}

	for _, idx := range indexes {
		if _, err := db.conn.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", idx, err)
		}
	}
	return nil
}
