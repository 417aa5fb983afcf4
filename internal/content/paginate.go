// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package content

import (
	"context"
	"time"

	"github.com/Danny-Lenko/story-pull-backend/internal/metrics"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

// Pagination bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Finder is the read side of the content store used for listing.
type Finder interface {
	CountContent(ctx context.Context, pred *models.ContentPredicate) (int64, error)
	FindContent(ctx context.Context, pred *models.ContentPredicate, opts models.FindOptions) ([]models.ContentItem, error)
}

// PageRequest selects one page of a list.
type PageRequest struct {
	Page      int
	Limit     int
	SortBy    models.SortField
	SortOrder models.SortOrder
}

// normalize applies defaults and clamps page and limit into range.
func (r PageRequest) normalize() PageRequest {
	if r.Page < 1 {
		r.Page = DefaultPage
	}
	switch {
	case r.Limit == 0:
		r.Limit = DefaultLimit
	case r.Limit < 1:
		r.Limit = 1
	case r.Limit > MaxLimit:
		r.Limit = MaxLimit
	}
	if !r.SortBy.Valid() {
		r.SortBy = models.SortCreatedAt
	}
	if r.SortOrder != models.SortAsc {
		r.SortOrder = models.SortDesc
	}
	return r
}

// Skip is the number of items before the requested page.
func (r PageRequest) Skip() int {
	return (r.Page - 1) * r.Limit
}

// LastPage returns ceil(total/limit), which is 0 for an empty result.
func LastPage(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// Paginator counts and fetches one window of a predicate.
type Paginator struct {
	store Finder
}

func NewPaginator(store Finder) *Paginator {
	return &Paginator{store: store}
}

// Paginate runs the count and the fetch as two independent queries; the
// total may drift from the page contents under concurrent writes. Data is
// never nil, so a page past the end is an empty slice.
func (p *Paginator) Paginate(ctx context.Context, pred *models.ContentPredicate, req PageRequest) ([]models.ContentItem, models.PageMeta, error) {
	req = req.normalize()

	start := time.Now()
	total, err := p.store.CountContent(ctx, pred)
	metrics.RecordDBQuery("count_content", time.Since(start), err)
	if err != nil {
		return nil, models.PageMeta{}, err
	}

	meta := models.PageMeta{
		Total:    total,
		Page:     req.Page,
		LastPage: LastPage(total, req.Limit),
		Limit:    req.Limit,
	}

	// Nothing to fetch past the end of the result.
	if int64(req.Skip()) >= total {
		return []models.ContentItem{}, meta, nil
	}

	start = time.Now()
	items, err := p.store.FindContent(ctx, pred, models.FindOptions{
		Skip:  req.Skip(),
		Limit: req.Limit,
		Sort:  req.SortBy,
		Order: req.SortOrder,
	})
	metrics.RecordDBQuery("find_content", time.Since(start), err)
	if err != nil {
		return nil, models.PageMeta{}, err
	}
	if items == nil {
		items = []models.ContentItem{}
	}
	return items, meta, nil
}
