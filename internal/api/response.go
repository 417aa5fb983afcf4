// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package api

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

// respondJSON writes v as the response body with the given status.
// API responses are per-caller, so they are never cacheable.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps data in a successful envelope.
func respondSuccess(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, &models.APIResponse{
		Success: true,
		Data:    data,
	})
}

// respondError classifies err and writes the failed envelope. Internal
// errors are logged with full detail; the caller gets the public message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	class := ClassifyError(err)
	requestID := logging.RequestIDFromContext(r.Context())

	if class.Internal() {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
	} else {
		logging.Ctx(r.Context()).Debug().Err(err).
			Str("code", class.Code).
			Msg("Request rejected")
	}

	respondJSON(w, class.Status, &models.APIResponse{
		Success: false,
		Error:   class.APIError(requestID),
	})
}

// decodeBody reads a JSON request body of at most maxBodyBytes into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}

// maxBodyBytes bounds request bodies; content bodies are at most 50000
// characters, so 1 MiB leaves room for multi-byte text and metadata.
const maxBodyBytes = 1 << 20
