// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package models

import "time"

// Filter names reported in FilterReport.
const (
	FilterTextSearch = "text_search"
	FilterType       = "type"
	FilterStatus     = "status"
	FilterTags       = "tags"
	FilterDateFrom   = "date_from"
	FilterDateTo     = "date_to"
)

// AvailableFilters returns the fixed list of optional list filters.
func AvailableFilters() []string {
	return []string{FilterTextSearch, FilterType, FilterStatus, FilterTags, FilterDateFrom, FilterDateTo}
}

// SortField is a column content lists may be ordered by.
type SortField string

const (
	SortCreatedAt   SortField = "createdAt"
	SortTitle       SortField = "title"
	SortPublishedAt SortField = "publishedAt"
)

// Valid reports whether f is in the sort allow-list.
func (f SortField) Valid() bool {
	switch f {
	case SortCreatedAt, SortTitle, SortPublishedAt:
		return true
	}
	return false
}

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// QueryFilter is a list request. Zero Page, Limit, SortBy and SortOrder
// take their defaults; Page and Limit are clamped rather than rejected.
type QueryFilter struct {
	Search    string          `json:"search,omitempty" validate:"max=200"`
	Type      ContentType     `json:"type,omitempty" validate:"omitempty,oneof=article page blog_post"`
	Status    []ContentStatus `json:"status,omitempty" validate:"dive,oneof=draft published archived"`
	Tags      []string        `json:"tags,omitempty" validate:"max=10,dive,required,max=50"`
	DateFrom  *time.Time      `json:"dateFrom,omitempty"`
	DateTo    *time.Time      `json:"dateTo,omitempty" validate:"omitempty,dateafter=DateFrom"`
	Page      int             `json:"page,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	SortBy    SortField       `json:"sortBy,omitempty" validate:"omitempty,oneof=createdAt title publishedAt"`
	SortOrder SortOrder       `json:"sortOrder,omitempty" validate:"omitempty,oneof=asc desc"`
}

// ContentPredicate is the store-level filter produced from a QueryFilter.
// Zero members impose no constraint, except AuthorID which the store
// always applies.
type ContentPredicate struct {
	AuthorID    string
	SearchTerms []string
	Type        ContentType
	Statuses    []ContentStatus
	// Tags must all be present on a matching item.
	Tags        []string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// FindOptions controls ordering and windowing of a store fetch.
type FindOptions struct {
	Skip  int
	Limit int
	Sort  SortField
	Order SortOrder
}

// FilterReport lists the optional filters a list request engaged.
type FilterReport struct {
	Applied   []string `json:"applied"`
	Available []string `json:"available"`
}

// PageMeta describes the page returned by a list request.
type PageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	LastPage int   `json:"lastPage"`
	Limit    int   `json:"limit"`
}

// ListMeta is the meta member of a list response.
type ListMeta struct {
	Pagination PageMeta     `json:"pagination"`
	Filter     FilterReport `json:"filter"`
}

// ContentListResponse is the envelope returned by a content list.
type ContentListResponse struct {
	Success bool          `json:"success"`
	Data    []ContentItem `json:"data"`
	Meta    ListMeta      `json:"meta"`
}
