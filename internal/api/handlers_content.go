// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Danny-Lenko/story-pull-backend/internal/auth"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
	"github.com/Danny-Lenko/story-pull-backend/internal/validation"
)

// callerID returns the subject admitted by auth.Middleware. The routes
// that call it are always behind Authenticate, so a missing principal is
// reported as unauthorized rather than served anonymously.
func callerID(r *http.Request) (string, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || p.Subject == "" {
		return "", false
	}
	return p.Subject, true
}

// ContentList handles GET /api/v1/content.
//
// Query parameters: search, type, status (repeatable or comma separated),
// tags (repeatable or comma separated), dateFrom, dateTo (RFC 3339 or
// YYYY-MM-DD), page, limit, sortBy, sortOrder.
func (h *Handler) ContentList(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		respondError(w, r, auth.ErrUnauthorized)
		return
	}

	q, err := parseQueryFilter(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp, err := h.content.List(r.Context(), q, caller)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ContentCreate handles POST /api/v1/content.
func (h *Handler) ContentCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		respondError(w, r, auth.ErrUnauthorized)
		return
	}

	var req models.NewContentItem
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	item, err := h.content.Create(r.Context(), req, caller)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, item)
}

// ContentGet handles GET /api/v1/content/{id}.
func (h *Handler) ContentGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		respondError(w, r, auth.ErrUnauthorized)
		return
	}

	item, err := h.content.Get(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, item)
}

// ContentUpdate handles PATCH /api/v1/content/{id}.
func (h *Handler) ContentUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		respondError(w, r, auth.ErrUnauthorized)
		return
	}

	var patch models.ContentPatch
	if err := decodeBody(w, r, &patch); err != nil {
		respondError(w, r, err)
		return
	}

	item, err := h.content.Update(r.Context(), chi.URLParam(r, "id"), patch, caller)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, item)
}

// parseQueryFilter converts list query parameters into a QueryFilter.
// Enum and range checks are left to the content service; this only
// rejects values that cannot be parsed at all.
func parseQueryFilter(values url.Values) (models.QueryFilter, error) {
	var (
		q      models.QueryFilter
		fields []validation.FieldError
	)

	q.Search = strings.TrimSpace(values.Get("search"))
	q.Type = models.ContentType(values.Get("type"))
	q.SortBy = models.SortField(values.Get("sortBy"))
	q.SortOrder = models.SortOrder(strings.ToLower(values.Get("sortOrder")))

	for _, s := range listParam(values, "status") {
		q.Status = append(q.Status, models.ContentStatus(s))
	}
	q.Tags = listParam(values, "tags")

	parseInt := func(name string, dst *int) {
		raw := values.Get(name)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, validation.FieldError{Field: name, Tag: "number", Message: name + " must be an integer"})
			return
		}
		*dst = n
	}
	parseInt("page", &q.Page)
	parseInt("limit", &q.Limit)

	parseDate := func(name string) *time.Time {
		raw := values.Get(name)
		if raw == "" {
			return nil
		}
		t, err := parseTimeParam(raw)
		if err != nil {
			fields = append(fields, validation.FieldError{Field: name, Tag: "datetime", Message: name + " must be a valid ISO 8601 date"})
			return nil
		}
		return &t
	}
	q.DateFrom = parseDate("dateFrom")
	q.DateTo = parseDate("dateTo")

	if len(fields) > 0 {
		return q, validation.New(fields...)
	}
	return q, nil
}

// listParam accepts both ?tags=a&tags=b and ?tags=a,b. Empty members are
// dropped.
func listParam(values url.Values, name string) []string {
	var out []string
	for _, raw := range values[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
