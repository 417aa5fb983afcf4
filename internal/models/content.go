// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

// Package models holds the data types shared by the store, the services
// and both transports.
package models

import (
	"regexp"
	"strings"
	"time"
)

// ContentType discriminates the type-specific payload of a ContentItem.
type ContentType string

const (
	ContentTypeArticle  ContentType = "article"
	ContentTypePage     ContentType = "page"
	ContentTypeBlogPost ContentType = "blog_post"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeArticle, ContentTypePage, ContentTypeBlogPost:
		return true
	}
	return false
}

// ContentStatus is the publication state of a ContentItem.
type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
	StatusArchived  ContentStatus = "archived"
)

func (s ContentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// MaxTags bounds ContentItem.Tags and QueryFilter.Tags.
const MaxTags = 10

// SEO carries search-engine metadata for a content item.
type SEO struct {
	MetaTitle       string `json:"metaTitle,omitempty" validate:"omitempty,max=60"`
	MetaDescription string `json:"metaDescription,omitempty" validate:"omitempty,max=160"`
	CanonicalURL    string `json:"canonicalUrl,omitempty" validate:"omitempty,max=2083,httpurl"`
}

// ArticleFields is the payload for type=article.
type ArticleFields struct {
	Category string `json:"category" validate:"required,min=2,max=50,nohtml"`
}

// BlogPostFields is the payload for type=blog_post.
type BlogPostFields struct {
	Keywords      []string `json:"keywords,omitempty" validate:"max=5,dive,required,max=50"`
	FeaturedImage string   `json:"featuredImage,omitempty" validate:"omitempty,max=2083,httpurl"`
}

// PageFields is the payload for type=page.
type PageFields struct {
	IsHomepage bool `json:"isHomepage"`
}

// ContentPayload is the type-specific part of a content item. At most the
// member matching the item's Type may be set.
type ContentPayload struct {
	Article  *ArticleFields  `json:"article,omitempty"`
	BlogPost *BlogPostFields `json:"blogPost,omitempty"`
	Page     *PageFields     `json:"page,omitempty"`
}

// MatchesType reports whether every populated member belongs to t.
func (p *ContentPayload) MatchesType(t ContentType) bool {
	switch {
	case p.Article != nil && t != ContentTypeArticle:
		return false
	case p.BlogPost != nil && t != ContentTypeBlogPost:
		return false
	case p.Page != nil && t != ContentTypePage:
		return false
	}
	return true
}

// IsEmpty reports whether no member is set.
func (p *ContentPayload) IsEmpty() bool {
	return p.Article == nil && p.BlogPost == nil && p.Page == nil
}

// ContentItem is a persisted content document.
//
// PublishedAt is non-nil iff the item has been moved into published at
// least once.
type ContentItem struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Type     ContentType    `json:"type"`
	Author   string         `json:"author,omitempty"`
	AuthorID string         `json:"authorId"`
	Status   ContentStatus  `json:"status"`
	Tags     []string       `json:"tags"`
	Metadata map[string]any `json:"metadata,omitempty"`
	SEO      *SEO           `json:"seo,omitempty"`
	Version  int            `json:"version"`
	Slug     string         `json:"slug"`
	ContentPayload

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	PublishedAt *time.Time `json:"publishedAt"`
}

// IsPublished is shorthand for Status == StatusPublished.
func (c *ContentItem) IsPublished() bool {
	return c.Status == StatusPublished
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases title and collapses every run of characters outside
// [a-z0-9] into a single dash.
func Slugify(title string) string {
	return slugSeparators.ReplaceAllString(strings.ToLower(title), "-")
}

// NewContentItem is the create request for a content item.
type NewContentItem struct {
	Title    string         `json:"title" validate:"required,min=3,max=255,nohtml"`
	Body     string         `json:"body" validate:"required,min=3,max=50000"`
	Type     ContentType    `json:"type" validate:"required,oneof=article page blog_post"`
	Author   string         `json:"author,omitempty" validate:"omitempty,min=2,max=100,nohtml"`
	Status   ContentStatus  `json:"status,omitempty" validate:"omitempty,oneof=draft published archived"`
	Tags     []string       `json:"tags,omitempty" validate:"max=10,dive,required,max=50"`
	Metadata map[string]any `json:"metadata,omitempty"`
	SEO      *SEO           `json:"seo,omitempty"`
	Version  int            `json:"version,omitempty" validate:"min=0"`
	ContentPayload
}

// ContentPatch is a partial update. Nil members are left untouched; a
// non-nil empty Tags slice clears the tags.
type ContentPatch struct {
	Title    *string         `json:"title,omitempty" validate:"omitempty,min=3,max=255,nohtml"`
	Body     *string         `json:"body,omitempty" validate:"omitempty,min=3,max=50000"`
	Type     *ContentType    `json:"type,omitempty" validate:"omitempty,oneof=article page blog_post"`
	Author   *string         `json:"author,omitempty" validate:"omitempty,min=2,max=100,nohtml"`
	Status   *ContentStatus  `json:"status,omitempty" validate:"omitempty,oneof=draft published archived"`
	Tags     []string        `json:"tags,omitempty" validate:"omitempty,max=10,dive,required,max=50"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	SEO      *SEO            `json:"seo,omitempty"`
	Article  *ArticleFields  `json:"article,omitempty"`
	BlogPost *BlogPostFields `json:"blogPost,omitempty"`
	Page     *PageFields     `json:"page,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *ContentPatch) IsEmpty() bool {
	return p.Title == nil && p.Body == nil && p.Type == nil && p.Author == nil &&
		p.Status == nil && p.Tags == nil && p.Metadata == nil && p.SEO == nil &&
		p.Article == nil && p.BlogPost == nil && p.Page == nil
}
