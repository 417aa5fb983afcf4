// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package models

// APIResponse is the envelope shared by the HTTP and NATS surfaces.
//
// Example successful response:
//
//	{
//	  "success": true,
//	  "data": {"id": "…", "title": "Hello"}
//	}
//
// Example error response:
//
//	{
//	  "success": false,
//	  "error": {
//	    "code": "VALIDATION_FAILED",
//	    "message": "title must be at least 3 characters long",
//	    "details": [{"field": "title", "message": "title must be at least 3 characters long"}]
//	  }
//	}
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError is the error member of a failed APIResponse.
//
// Codes:
//   - UNAUTHORIZED: the bearer token was missing or rejected
//   - NOT_FOUND: the content id is unknown or malformed
//   - FORBIDDEN: the caller may not access the item
//   - VALIDATION_FAILED: field-level errors in Details
//   - CONFLICT: the email is already registered
//   - INVALID_CREDENTIALS: login failed
//   - BAD_REQUEST: the request body could not be decoded
//   - METHOD_NOT_ALLOWED: the route exists but not for this method
//   - RATE_LIMIT_EXCEEDED: too many requests
//   - INTERNAL_ERROR: anything else; the detail stays in the server logs
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

// Error codes carried by APIError.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeConflict           = "CONFLICT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeBadRequest         = "BAD_REQUEST"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeInternal           = "INTERNAL_ERROR"
)
