// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package content

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
	"github.com/Danny-Lenko/story-pull-backend/internal/metrics"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
	"github.com/Danny-Lenko/story-pull-backend/internal/validation"
)

// Store persists content items. GetContent returns (nil, nil) when the id
// is unknown.
type Store interface {
	Finder
	InsertContent(ctx context.Context, item *models.ContentItem) error
	UpdateContent(ctx context.Context, item *models.ContentItem) error
	GetContent(ctx context.Context, id string) (*models.ContentItem, error)
}

// Policy decides per-item access.
type Policy interface {
	CanRead(callerID string, item *models.ContentItem) (bool, error)
	CanWrite(callerID string, item *models.ContentItem) (bool, error)
}

// EventPublisher receives lifecycle events after a write commits.
type EventPublisher interface {
	PublishContentEvent(ctx context.Context, event models.ContentEvent) error
}

// Service implements list, create, get and update for an admitted caller.
type Service struct {
	store     Store
	policy    Policy
	events    EventPublisher
	filters   FilterBuilder
	paginator *Paginator
	now       func() time.Time
}

// NewService wires the content service. events may be nil.
func NewService(store Store, policy Policy, events EventPublisher) *Service {
	return &Service{
		store:     store,
		policy:    policy,
		events:    events,
		paginator: NewPaginator(store),
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// List returns one page of the caller's own items matching q.
func (s *Service) List(ctx context.Context, q models.QueryFilter, callerID string) (resp *models.ContentListResponse, err error) {
	defer func() { metrics.RecordContentOperation("list", outcome(err)) }()

	if verr := validation.ValidateStruct(&q); verr != nil {
		return nil, verr
	}

	pred, report := s.filters.Build(&q, callerID)
	items, meta, err := s.paginator.Paginate(ctx, &pred, PageRequest{
		Page:      q.Page,
		Limit:     q.Limit,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("caller", logging.SanitizeUserID(callerID)).Msg("Content list failed")
		return nil, &StoreError{Op: "list", Err: err}
	}
	metrics.ContentListPageSize.Observe(float64(len(items)))

	return &models.ContentListResponse{
		Success: true,
		Data:    items,
		Meta: models.ListMeta{
			Pagination: meta,
			Filter:     report,
		},
	}, nil
}

// Create stores a new item owned by callerID.
func (s *Service) Create(ctx context.Context, req models.NewContentItem, callerID string) (item *models.ContentItem, err error) {
	defer func() { metrics.RecordContentOperation("create", outcome(err)) }()

	if verr := validation.ValidateStruct(&req); verr != nil {
		return nil, verr
	}
	if verr := checkPayload(req.Type, &req.ContentPayload); verr != nil {
		return nil, verr
	}

	status := req.Status
	if status == "" {
		status = models.StatusDraft
	}

	now := s.now()
	item = &models.ContentItem{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Body:           req.Body,
		Type:           req.Type,
		Author:         req.Author,
		AuthorID:       callerID,
		Status:         status,
		Tags:           copyTags(req.Tags),
		Metadata:       req.Metadata,
		SEO:            req.SEO,
		Version:        req.Version,
		Slug:           models.Slugify(req.Title),
		ContentPayload: req.ContentPayload,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if status == models.StatusPublished {
		item.PublishedAt = &now
	}

	if err := s.store.InsertContent(ctx, item); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Content insert failed")
		return nil, &StoreError{Op: "create", Err: err}
	}

	s.publish(ctx, models.EventContentCreated, item)
	return item, nil
}

// Get returns the item when the caller owns it or it is published.
func (s *Service) Get(ctx context.Context, id, callerID string) (item *models.ContentItem, err error) {
	defer func() { metrics.RecordContentOperation("get", outcome(err)) }()

	item, err = s.load(ctx, id, "get")
	if err != nil {
		return nil, err
	}

	ok, err := s.policy.CanRead(callerID, item)
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	if !ok {
		return nil, &ItemError{ID: id, Kind: ErrForbidden}
	}
	return item, nil
}

// Update applies patch to an item the caller may write: its own, or any
// published item. The item is fetched and access checked before the patch
// is validated. Moving the item into published stamps publishedAt; every
// update bumps the version.
func (s *Service) Update(ctx context.Context, id string, patch models.ContentPatch, callerID string) (item *models.ContentItem, err error) {
	defer func() { metrics.RecordContentOperation("update", outcome(err)) }()

	item, err = s.load(ctx, id, "update")
	if err != nil {
		return nil, err
	}

	ok, err := s.policy.CanWrite(callerID, item)
	if err != nil {
		return nil, &StoreError{Op: "update", Err: err}
	}
	if !ok {
		return nil, &ItemError{ID: id, Kind: ErrForbidden}
	}

	if verr := validation.ValidateStruct(&patch); verr != nil {
		return nil, verr
	}

	wasPublished := item.IsPublished()
	applyPatch(item, &patch)
	if verr := checkPayload(item.Type, &item.ContentPayload); verr != nil {
		return nil, verr
	}

	now := s.now()
	item.UpdatedAt = now
	item.Version++
	becamePublished := !wasPublished && item.IsPublished()
	if becamePublished {
		item.PublishedAt = &now
	}

	if err := s.store.UpdateContent(ctx, item); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("content_id", id).Msg("Content update failed")
		return nil, &StoreError{Op: "update", Err: err}
	}

	s.publish(ctx, models.EventContentUpdated, item)
	if becamePublished {
		s.publish(ctx, models.EventContentPublished, item)
	}
	return item, nil
}

// load fetches an item by id, mapping absent and malformed ids to
// ItemError.
func (s *Service) load(ctx context.Context, id, op string) (*models.ContentItem, error) {
	if _, err := parseID(id); err != nil {
		return nil, err
	}

	start := time.Now()
	item, err := s.store.GetContent(ctx, id)
	metrics.RecordDBQuery("get_content", time.Since(start), err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("content_id", id).Msg("Content lookup failed")
		return nil, &StoreError{Op: op, Err: err}
	}
	if item == nil {
		return nil, &ItemError{ID: id, Kind: ErrNotFound}
	}
	return item, nil
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, &ItemError{ID: id, Kind: ErrInvalidID}
	}
	return parsed, nil
}

func (s *Service) publish(ctx context.Context, eventType string, item *models.ContentItem) {
	if s.events == nil {
		return
	}
	event := models.ContentEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		ContentID:  item.ID,
		AuthorID:   item.AuthorID,
		Status:     item.Status,
		Version:    item.Version,
		OccurredAt: item.UpdatedAt,
	}
	err := s.events.PublishContentEvent(ctx, event)
	metrics.RecordEventPublished(eventType, err)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("event_type", eventType).
			Str("content_id", item.ID).
			Msg("Failed to publish content event")
	}
}

// applyPatch copies every non-nil patch member onto item. A type change
// drops payload members that belong to the old type.
func applyPatch(item *models.ContentItem, p *models.ContentPatch) {
	if p.Title != nil {
		item.Title = *p.Title
		item.Slug = models.Slugify(item.Title)
	}
	if p.Body != nil {
		item.Body = *p.Body
	}
	if p.Author != nil {
		item.Author = *p.Author
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.Tags != nil {
		item.Tags = copyTags(p.Tags)
	}
	if p.Metadata != nil {
		item.Metadata = p.Metadata
	}
	if p.SEO != nil {
		item.SEO = p.SEO
	}
	if p.Type != nil && *p.Type != item.Type {
		item.Type = *p.Type
		item.ContentPayload = models.ContentPayload{}
	}
	if p.Article != nil {
		item.Article = p.Article
	}
	if p.BlogPost != nil {
		item.BlogPost = p.BlogPost
	}
	if p.Page != nil {
		item.Page = p.Page
	}
}

// checkPayload rejects payload members that do not belong to t.
func checkPayload(t models.ContentType, p *models.ContentPayload) *validation.RequestValidationError {
	if p.MatchesType(t) {
		return nil
	}
	var fields []validation.FieldError
	add := func(name string, set bool) {
		if set {
			fields = append(fields, validation.FieldError{
				Field:   name,
				Tag:     "payload",
				Message: fmt.Sprintf("%s fields are not allowed for content type %s", name, t),
			})
		}
	}
	add("article", p.Article != nil && t != models.ContentTypeArticle)
	add("blogPost", p.BlogPost != nil && t != models.ContentTypeBlogPost)
	add("page", p.Page != nil && t != models.ContentTypePage)
	return validation.New(fields...)
}

func copyTags(tags []string) []string {
	return append([]string{}, tags...)
}
