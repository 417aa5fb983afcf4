// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package api

import (
	"errors"
	"net/http"

	"github.com/Danny-Lenko/story-pull-backend/internal/auth"
	"github.com/Danny-Lenko/story-pull-backend/internal/content"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
	"github.com/Danny-Lenko/story-pull-backend/internal/validation"
)

// ErrMalformedBody is returned when a request body is not valid JSON for
// the operation.
var ErrMalformedBody = errors.New("malformed request body")

// Routing failures raised by the chi NotFound and MethodNotAllowed hooks.
var (
	ErrRouteNotFound    = errors.New("route not found")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Caller-facing messages for errors that carry no message of their own.
const (
	MessageInternal           = "Internal server error"
	MessageMalformedBody      = "Request body could not be decoded"
	MessageEmailExists        = "Email already exists"
	MessageInvalidCredentials = "Invalid credentials"
	MessageRateLimited        = "Too many requests"
	MessageRouteNotFound      = "Route not found"
	MessageMethodNotAllowed   = "Method not allowed"
)

// ErrorClass is the transport-neutral shape of a failed operation.
type ErrorClass struct {
	Status  int
	Code    string
	Message string
	Details interface{}
}

// APIError converts the class into the envelope error member.
func (c ErrorClass) APIError(requestID string) *models.APIError {
	return &models.APIError{
		Code:      c.Code,
		Message:   c.Message,
		Details:   c.Details,
		RequestID: requestID,
	}
}

// Internal reports whether the error detail must stay in the logs.
func (c ErrorClass) Internal() bool {
	return c.Status >= http.StatusInternalServerError
}

// ClassifyError maps a service error to status, code and public message.
// Anything it does not recognize becomes an opaque internal error.
func ClassifyError(err error) ErrorClass {
	var (
		verr     *validation.RequestValidationError
		itemErr  *content.ItemError
		storeErr *content.StoreError
	)

	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return ErrorClass{Status: http.StatusUnauthorized, Code: models.CodeUnauthorized, Message: auth.MessageUnauthorized}

	case errors.As(err, &verr):
		return ErrorClass{Status: http.StatusBadRequest, Code: models.CodeValidationFailed, Message: verr.Error(), Details: verr.Fields()}

	case errors.As(err, &itemErr):
		if errors.Is(itemErr, content.ErrForbidden) {
			return ErrorClass{Status: http.StatusForbidden, Code: models.CodeForbidden, Message: itemErr.PublicMessage()}
		}
		return ErrorClass{Status: http.StatusNotFound, Code: models.CodeNotFound, Message: itemErr.PublicMessage()}

	case errors.Is(err, auth.ErrEmailExists):
		return ErrorClass{Status: http.StatusConflict, Code: models.CodeConflict, Message: MessageEmailExists}

	case errors.Is(err, auth.ErrInvalidCredentials):
		return ErrorClass{Status: http.StatusUnauthorized, Code: models.CodeInvalidCredentials, Message: MessageInvalidCredentials}

	case errors.Is(err, ErrMalformedBody):
		return ErrorClass{Status: http.StatusBadRequest, Code: models.CodeBadRequest, Message: MessageMalformedBody}

	case errors.Is(err, ErrRouteNotFound):
		return ErrorClass{Status: http.StatusNotFound, Code: models.CodeNotFound, Message: MessageRouteNotFound}

	case errors.Is(err, ErrMethodNotAllowed):
		return ErrorClass{Status: http.StatusMethodNotAllowed, Code: models.CodeMethodNotAllowed, Message: MessageMethodNotAllowed}

	case errors.As(err, &storeErr):
		return ErrorClass{Status: http.StatusInternalServerError, Code: models.CodeInternal, Message: storeErr.PublicMessage()}
	}

	return ErrorClass{Status: http.StatusInternalServerError, Code: models.CodeInternal, Message: MessageInternal}
}
