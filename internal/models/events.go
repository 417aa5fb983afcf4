// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package models

import "time"

// Content lifecycle event types.
const (
	EventContentCreated   = "content.created"
	EventContentUpdated   = "content.updated"
	EventContentPublished = "content.published"
)

// ContentEvent is published after a content write commits.
type ContentEvent struct {
	EventID    string        `json:"eventId"`
	Type       string        `json:"type"`
	ContentID  string        `json:"contentId"`
	AuthorID   string        `json:"authorId"`
	Status     ContentStatus `json:"status"`
	Version    int           `json:"version"`
	OccurredAt time.Time     `json:"occurredAt"`
}
