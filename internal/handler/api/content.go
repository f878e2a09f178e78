// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oasis/internal/handler"
	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/service"
	"github.com/olegiv/oasis/internal/store"
)

// EntityResponse is an entity as its author or a moderator sees it.
type EntityResponse struct {
	ID          int64          `json:"id"`
	Kind        string         `json:"kind"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Body        string         `json:"body"`
	Category    string         `json:"category"`
	Language    string         `json:"language"`
	Extra       map[string]any `json:"extra,omitempty"`
	Status      string         `json:"status"`
	Version     int64          `json:"version"`
	AuthorID    int64          `json:"author_id"`
	ModeratedBy *int64         `json:"moderated_by,omitempty"`
	ModeratedAt *time.Time     `json:"moderated_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func storeEntityToResponse(e store.Entity) EntityResponse {
	resp := EntityResponse{
		ID:        e.ID,
		Kind:      e.Kind,
		Title:     e.Title,
		Slug:      e.Slug,
		Body:      e.Body,
		Category:  e.Category,
		Language:  e.Language,
		Status:    e.Status,
		Version:   e.Version,
		AuthorID:  e.AuthorID,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.ModeratedBy.Valid {
		id := e.ModeratedBy.Int64
		resp.ModeratedBy = &id
	}
	if e.ModeratedAt.Valid {
		t := e.ModeratedAt.Time
		resp.ModeratedAt = &t
	}
	if e.Extra != "" && e.Extra != "{}" {
		_ = json.Unmarshal([]byte(e.Extra), &resp.Extra)
	}
	return resp
}

func storeEntitiesToResponse(entities []store.Entity) []EntityResponse {
	out := make([]EntityResponse, 0, len(entities))
	for _, e := range entities {
		out = append(out, storeEntityToResponse(e))
	}
	return out
}

// ListEntities returns a handler for GET /api/v1/{kind}s. Only approved
// entities are listed.
func (h *Handler) ListEntities(kind model.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		if category != "" && !model.IsValidCategory(kind, category) {
			WriteValidationError(w, map[string]string{"category": "is not a category of " + kind.Plural()})
			return
		}

		page, err := h.deps.Catalog.ListApproved(r.Context(), kind, category, handler.ParsePageParam(r))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		WriteSuccess(w, page.Items, newMeta(page.Total, page.Page, page.PerPage))
	}
}

// GetEntity returns a handler for GET /api/v1/{kind}s/{slug}. Anything not
// approved is reported as not found.
func (h *Handler) GetEntity(kind model.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := h.deps.Catalog.GetApproved(r.Context(), kind, chi.URLParam(r, "slug"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		WriteSuccess(w, entity, nil)
	}
}

// CreateEntity returns a handler for POST /api/v1/{kind}s. The new entity
// is pending and authored by the caller.
func (h *Handler) CreateEntity(kind model.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorID := middleware.GetUserID(r)
		if authorID == 0 {
			WriteUnauthorized(w, "Authentication required")
			return
		}

		var (
			entity store.Entity
			err    error
		)
		switch kind {
		case model.KindPost:
			var in service.PostInput
			if !decodeJSON(w, r, &in) {
				return
			}
			entity, err = h.deps.Submissions.SubmitPost(r.Context(), authorID, in)
		case model.KindCourse:
			var in service.CourseInput
			if !decodeJSON(w, r, &in) {
				return
			}
			entity, err = h.deps.Submissions.SubmitCourse(r.Context(), authorID, in)
		case model.KindResearcher:
			var in service.ResearcherInput
			if !decodeJSON(w, r, &in) {
				return
			}
			entity, err = h.deps.Submissions.SubmitResearcher(r.Context(), authorID, in)
		default:
			WriteNotFound(w, "Unknown entity kind")
			return
		}
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		WriteCreated(w, storeEntityToResponse(entity))
	}
}

// MessageResponse acknowledges a stored message.
type MessageResponse struct {
	UUID   string `json:"uuid"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// CreateMessage handles POST /api/v1/messages.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var in service.MessageInput
	if !decodeJSON(w, r, &in) {
		return
	}

	msg, err := h.deps.Messages.Submit(r.Context(), in, service.RequestMeta{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		UserID:    middleware.GetUserID(r),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteCreated(w, MessageResponse{UUID: msg.Uuid, Type: msg.Type, Status: msg.Status})
}
