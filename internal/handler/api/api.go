// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON API handlers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/olegiv/oasis/internal/auth"
	"github.com/olegiv/oasis/internal/handler"
	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/service"
	"github.com/olegiv/oasis/internal/validation"
	"github.com/olegiv/oasis/internal/version"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// maxPhotoBytes caps profile photo uploads.
const maxPhotoBytes = 10 << 20

// Deps groups the services behind the API.
type Deps struct {
	Tokens          *auth.TokenManager
	Resolver        *moderation.Resolver
	Lifecycle       *moderation.Lifecycle
	Roles           *moderation.Roles
	Catalog         *service.Catalog
	Submissions     *service.Submissions
	Messages        *service.Messages
	Profiles        *service.Profiles
	Events          *service.EventService
	LoginProtection *middleware.LoginProtection // may be nil
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	deps Deps
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination and other metadata.
type Meta struct {
	Total   int64 `json:"total,omitempty"`
	Page    int   `json:"page,omitempty"`
	PerPage int   `json:"per_page,omitempty"`
	Pages   int   `json:"pages,omitempty"`
}

// newMeta builds pagination metadata.
func newMeta(total int64, page, perPage int) *Meta {
	return &Meta{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   handler.CalculateTotalPages(int(total), perPage),
	}
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteConflict writes a 409 Conflict response.
func WriteConflict(w http.ResponseWriter, code, message string) {
	WriteError(w, http.StatusConflict, code, message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// writeDomainError maps a service or moderation error to its HTTP status.
// Unexpected errors are logged and answered with 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if verr, ok := validation.AsError(err); ok {
		WriteValidationError(w, verr.Fields)
		return
	}

	switch {
	case errors.Is(err, moderation.ErrForbidden):
		slog.Warn("api request forbidden",
			"method", r.Method,
			"path", r.URL.Path,
			"user_id", middleware.GetUserID(r),
			"role", middleware.GetRole(r),
		)
		WriteForbidden(w, "Insufficient permissions")
	case errors.Is(err, moderation.ErrEntityNotFound):
		WriteNotFound(w, "Entity not found")
	case errors.Is(err, moderation.ErrAccountNotFound):
		WriteNotFound(w, "Account not found")
	case errors.Is(err, service.ErrMessageNotFound):
		WriteNotFound(w, "Message not found")
	case errors.Is(err, moderation.ErrInvalidTransition), errors.Is(err, service.ErrMessageTransition):
		WriteConflict(w, "invalid_transition", err.Error())
	case errors.Is(err, moderation.ErrVersionConflict):
		WriteConflict(w, "version_conflict", "Entity was modified, reload and retry")
	case errors.Is(err, moderation.ErrLastAdmin):
		WriteConflict(w, "last_admin", "At least one admin must remain")
	case errors.Is(err, moderation.ErrInvalidRole):
		WriteValidationError(w, map[string]string{"role": "must be one of user, moderator, admin"})
	case errors.Is(err, service.ErrEmailTaken):
		WriteValidationError(w, map[string]string{"email": "is already registered"})
	case errors.Is(err, service.ErrCaptchaFailed):
		WriteValidationError(w, map[string]string{"captcha_token": "verification failed"})
	case errors.Is(err, service.ErrRateLimited):
		WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", err.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteUnauthorized(w, "Invalid email or password")
	default:
		slog.Error("api request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteInternalError(w, "Internal server error")
	}
}

// decodeJSON decodes a size-limited JSON body into v, answering 400 on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON for bodies that may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return false
	}
	return true
}

// parseID reads the {id} URL parameter, answering 400 when it is invalid.
func parseID(w http.ResponseWriter, r *http.Request, entityName string) (int64, bool) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid "+entityName+" ID", nil)
		return 0, false
	}
	return id, true
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	API     string `json:"api"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{
		Status:  "ok",
		Version: version.Get().Version,
		API:     "v1",
	}, nil)
}
