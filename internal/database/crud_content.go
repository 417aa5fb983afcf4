// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

const contentColumns = `c.id, c.title, c.body, c.type, c.author, c.author_id, c.status,
	c.metadata, c.seo, c.payload, c.version, c.slug, c.created_at, c.updated_at, c.published_at`

// InsertContent stores a new item and its tags in one transaction.
func (db *DB) InsertContent(ctx context.Context, item *models.ContentItem) error {
	row, err := encodeContent(item)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx, `INSERT INTO content_items
		(id, title, body, type, author, author_id, status, metadata, seo, payload, version, slug, created_at, updated_at, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.Body, string(item.Type), item.Author, item.AuthorID, string(item.Status),
		row.metadata, row.seo, row.payload, item.Version, item.Slug,
		normalizeTime(item.CreatedAt), normalizeTime(item.UpdatedAt), nullTime(item.PublishedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("content %s: %w", item.ID, models.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert content: %w", err)
	}

	if err := insertTags(ctx, tx, item.ID, item.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit content insert: %w", err)
	}
	return nil
}

// UpdateContent overwrites every mutable column of an existing item and
// replaces its tags. Writes are last-write-wins.
func (db *DB) UpdateContent(ctx context.Context, item *models.ContentItem) error {
	row, err := encodeContent(item)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx, `UPDATE content_items SET
		title = ?, body = ?, type = ?, author = ?, status = ?, metadata = ?, seo = ?, payload = ?,
		version = ?, slug = ?, updated_at = ?, published_at = ?
		WHERE id = ?`,
		item.Title, item.Body, string(item.Type), item.Author, string(item.Status),
		row.metadata, row.seo, row.payload, item.Version, item.Slug,
		normalizeTime(item.UpdatedAt), nullTime(item.PublishedAt), item.ID)
	if err != nil {
		return fmt.Errorf("failed to update content: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("content %s: %w", item.ID, sql.ErrNoRows)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM content_tags WHERE content_id = ?`, item.ID); err != nil {
		return fmt.Errorf("failed to clear content tags: %w", err)
	}
	if err := insertTags(ctx, tx, item.ID, item.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit content update: %w", err)
	}
	return nil
}

// GetContent returns the item with the given id, or nil when there is none.
func (db *DB) GetContent(ctx context.Context, id string) (*models.ContentItem, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content_items c WHERE c.id = ?`, id)
	item, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}

	tags, err := db.loadTags(ctx, []string{item.ID})
	if err != nil {
		return nil, err
	}
	item.Tags = tagsOrEmpty(tags[item.ID])
	return item, nil
}

// CountContent returns how many items match the predicate.
func (db *DB) CountContent(ctx context.Context, pred *models.ContentPredicate) (int64, error) {
	where, args := buildContentWhere(pred)
	var total int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_items c`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count content: %w", err)
	}
	return total, nil
}

// FindContent returns one window of matching items in the requested order.
func (db *DB) FindContent(ctx context.Context, pred *models.ContentPredicate, opts models.FindOptions) ([]models.ContentItem, error) {
	where, args := buildContentWhere(pred)
	query := `SELECT ` + contentColumns + ` FROM content_items c` + where +
		buildOrderClause(opts.Sort, opts.Order) + ` LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Skip)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find content: %w", err)
	}
	defer closeRows(rows)

	items := make([]models.ContentItem, 0, opts.Limit)
	ids := make([]string, 0, opts.Limit)
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		items = append(items, *item)
		ids = append(ids, item.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content: %w", err)
	}

	tags, err := db.loadTags(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Tags = tagsOrEmpty(tags[items[i].ID])
	}
	return items, nil
}

func (db *DB) loadTags(ctx context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders, args := buildInClause(ids)
	rows, err := db.conn.QueryContext(ctx,
		fmt.Sprintf(`SELECT content_id, tag FROM content_tags WHERE content_id IN (%s) ORDER BY content_id, position`, placeholders),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load content tags: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan content tag: %w", err)
		}
		out[id] = append(out[id], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content tags: %w", err)
	}
	return out, nil
}

func insertTags(ctx context.Context, tx *sql.Tx, id string, tags []string) error {
	for i, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO content_tags (content_id, tag, position) VALUES (?, ?, ?)`, id, tag, i); err != nil {
			return fmt.Errorf("failed to insert content tag: %w", err)
		}
	}
	return nil
}

// encodedContent holds the JSON columns of a content row.
type encodedContent struct {
	metadata sql.NullString
	seo      sql.NullString
	payload  sql.NullString
}

func encodeContent(item *models.ContentItem) (encodedContent, error) {
	var row encodedContent
	var err error
	if len(item.Metadata) > 0 {
		if row.metadata, err = marshalNullString(item.Metadata); err != nil {
			return row, fmt.Errorf("failed to encode metadata: %w", err)
		}
	}
	if item.SEO != nil {
		if row.seo, err = marshalNullString(item.SEO); err != nil {
			return row, fmt.Errorf("failed to encode seo: %w", err)
		}
	}
	if !item.ContentPayload.IsEmpty() {
		if row.payload, err = marshalNullString(item.ContentPayload); err != nil {
			return row, fmt.Errorf("failed to encode payload: %w", err)
		}
	}
	return row, nil
}

func marshalNullString(v any) (sql.NullString, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(s rowScanner) (*models.ContentItem, error) {
	var (
		item                   models.ContentItem
		contentType, status    string
		metadata, seo, payload sql.NullString
		publishedAt            sql.NullTime
	)
	err := s.Scan(&item.ID, &item.Title, &item.Body, &contentType, &item.Author, &item.AuthorID, &status,
		&metadata, &seo, &payload, &item.Version, &item.Slug, &item.CreatedAt, &item.UpdatedAt, &publishedAt)
	if err != nil {
		return nil, err
	}
	item.Type = models.ContentType(contentType)
	item.Status = models.ContentStatus(status)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	if publishedAt.Valid {
		t := publishedAt.Time.UTC()
		item.PublishedAt = &t
	}

	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &item.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", item.ID, err)
		}
	}
	if seo.Valid {
		item.SEO = &models.SEO{}
		if err := json.Unmarshal([]byte(seo.String), item.SEO); err != nil {
			return nil, fmt.Errorf("decode seo of %s: %w", item.ID, err)
		}
	}
	if payload.Valid {
		if err := json.Unmarshal([]byte(payload.String), &item.ContentPayload); err != nil {
			return nil, fmt.Errorf("decode payload of %s: %w", item.ID, err)
		}
	}
	return &item, nil
}

// normalizeTime matches the microsecond precision of DuckDB timestamps.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: normalizeTime(*t), Valid: true}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
