// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package database

import (
	"fmt"
	"strings"

	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

// buildInClause creates a parameterized IN clause for SQL queries.
// Returns the placeholder string and the arguments slice.
//
// Example:
//
//	placeholders, args := buildInClause([]string{"a", "b", "c"})
//	// placeholders = "?,?,?"
//	// args = []interface{}{"a", "b", "c"}
func buildInClause(items []string) (string, []interface{}) {
	placeholders := make([]string, len(items))
	args := make([]interface{}, len(items))
	for i, item := range items {
		placeholders[i] = "?"
		args[i] = item
	}
	return strings.Join(placeholders, ","), args
}

// buildContentWhere turns a predicate into a WHERE clause (including the
// keyword) and its arguments. The author condition is always present.
func buildContentWhere(p *models.ContentPredicate) (string, []interface{}) {
	conditions := []string{"c.author_id = ?"}
	args := []interface{}{p.AuthorID}

	if len(p.SearchTerms) > 0 {
		terms := make([]string, 0, len(p.SearchTerms))
		for _, term := range p.SearchTerms {
			terms = append(terms, "(contains(lower(c.title), ?) OR contains(lower(c.body), ?))")
			lowered := strings.ToLower(term)
			args = append(args, lowered, lowered)
		}
		conditions = append(conditions, "("+strings.Join(terms, " OR ")+")")
	}

	if p.Type != "" {
		conditions = append(conditions, "c.type = ?")
		args = append(args, string(p.Type))
	}

	if len(p.Statuses) > 0 {
		statuses := make([]string, len(p.Statuses))
		for i, s := range p.Statuses {
			statuses[i] = string(s)
		}
		placeholders, statusArgs := buildInClause(statuses)
		conditions = append(conditions, fmt.Sprintf("c.status IN (%s)", placeholders))
		args = append(args, statusArgs...)
	}

	if tags := uniqueStrings(p.Tags); len(tags) > 0 {
		placeholders, tagArgs := buildInClause(tags)
		conditions = append(conditions, fmt.Sprintf(
			"c.id IN (SELECT content_id FROM content_tags WHERE tag IN (%s) GROUP BY content_id HAVING COUNT(DISTINCT tag) = ?)",
			placeholders))
		args = append(args, tagArgs...)
		args = append(args, len(tags))
	}

	if p.CreatedFrom != nil {
		conditions = append(conditions, "c.created_at >= ?")
		args = append(args, p.CreatedFrom.UTC())
	}

	if p.CreatedTo != nil {
		conditions = append(conditions, "c.created_at <= ?")
		args = append(args, p.CreatedTo.UTC())
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// sortColumns maps allowed sort fields to columns. Anything else falls
// back to created_at.
var sortColumns = map[models.SortField]string{
	models.SortCreatedAt:   "c.created_at",
	models.SortTitle:       "c.title",
	models.SortPublishedAt: "c.published_at",
}

// buildOrderClause returns an ORDER BY with a stable id tie-breaker.
// Items never published sort last in either direction.
func buildOrderClause(sort models.SortField, order models.SortOrder) string {
	column, ok := sortColumns[sort]
	if !ok {
		column = sortColumns[models.SortCreatedAt]
	}
	direction := "DESC"
	if order == models.SortAsc {
		direction = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s NULLS LAST, c.id %s", column, direction, direction)
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
