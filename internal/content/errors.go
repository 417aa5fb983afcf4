// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package content

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no item has the requested id.
	ErrNotFound = errors.New("content not found")

	// ErrForbidden means the caller may not access the item.
	ErrForbidden = errors.New("content access forbidden")

	// ErrInvalidID means the id is not a well-formed content id. Callers
	// see it exactly like ErrNotFound.
	ErrInvalidID = errors.New("invalid content id")

	// ErrStore wraps every content store and policy failure.
	ErrStore = errors.New("content store failure")
)

// Caller-facing messages.
const (
	MessageForbidden  = "You do not have access to this content"
	MessageListFailed = "Failed to fetch content"
)

// NotFoundMessage is the caller-facing message for a missing or malformed id.
func NotFoundMessage(id string) string {
	return fmt.Sprintf("Content with ID %q not found", id)
}

// ItemError ties ErrNotFound, ErrForbidden or ErrInvalidID to an id.
type ItemError struct {
	ID   string
	Kind error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("content %q: %v", e.ID, e.Kind)
}

func (e *ItemError) Unwrap() error {
	return e.Kind
}

// PublicMessage is the text a caller may see for this error.
func (e *ItemError) PublicMessage() string {
	if errors.Is(e.Kind, ErrForbidden) {
		return MessageForbidden
	}
	return NotFoundMessage(e.ID)
}

// StoreError records which operation hit a store or policy failure. Its
// detail is for logs only.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("content %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStore, e.Err}
}

// PublicMessage is the text a caller may see for this error.
func (e *StoreError) PublicMessage() string {
	if e.Op == "list" {
		return MessageListFailed
	}
	return "Failed to " + e.Op + " content"
}

// outcome maps an operation error to a metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidID):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrStore):
		return "error"
	default:
		return "invalid"
	}
}
