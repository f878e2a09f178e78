// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/olegiv/oasis/internal/handler"
	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/store"
)

// AdminListEntities handles GET /api/v1/admin/entities. kind and status
// filter the listing; an empty status lists every status.
func (h *Handler) AdminListEntities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var kind, status string
	if k := query.Get("kind"); k != "" {
		parsed, err := model.ParseKind(k)
		if err != nil {
			WriteValidationError(w, map[string]string{"kind": err.Error()})
			return
		}
		kind = string(parsed)
	}
	if s := query.Get("status"); s != "" {
		parsed, err := model.ParseStatus(s)
		if err != nil {
			WriteValidationError(w, map[string]string{"status": err.Error()})
			return
		}
		status = string(parsed)
	}

	page := handler.ParsePageParam(r)
	perPage := handler.ParsePerPageParam(r, 20, 100)
	items, total, err := h.deps.Catalog.ListByStatus(r.Context(), kind, status, int64(perPage), int64((page-1)*perPage))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteSuccess(w, storeEntitiesToResponse(items), newMeta(total, page, perPage))
}

// TransitionRequest is the optional body of approve and reject. A zero
// version means the current one.
type TransitionRequest struct {
	Version int64 `json:"version"`
}

// AdminApprove handles POST /api/v1/admin/entities/{id}/approve.
func (h *Handler) AdminApprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.deps.Lifecycle.Approve)
}

// AdminReject handles POST /api/v1/admin/entities/{id}/reject.
func (h *Handler) AdminReject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.deps.Lifecycle.Reject)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor moderation.Actor, id, expectedVersion int64) (store.Entity, error)) {
	id, ok := parseID(w, r, "entity")
	if !ok {
		return
	}

	var req TransitionRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	if req.Version < 0 {
		WriteValidationError(w, map[string]string{"version": "must not be negative"})
		return
	}

	entity, err := fn(r.Context(), middleware.Actor(r), id, req.Version)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteSuccess(w, storeEntityToResponse(entity), nil)
}

// AdminDelete handles DELETE /api/v1/admin/entities/{id}.
func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "entity")
	if !ok {
		return
	}
	if err := h.deps.Lifecycle.Delete(r.Context(), middleware.Actor(r), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RoleRequest is the body of PUT /admin/users/{id}/role.
type RoleRequest struct {
	Role string `json:"role"`
}

// RoleResponse reports a role change.
type RoleResponse struct {
	UserID        int64      `json:"user_id"`
	Role          string     `json:"role"`
	EffectiveRole model.Role `json:"effective_role"`
}

// AdminSetRole handles PUT /api/v1/admin/users/{id}/role.
func (h *Handler) AdminSetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "user")
	if !ok {
		return
	}
	var req RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	effective, err := h.deps.Roles.SetRole(r.Context(), middleware.Actor(r), id, req.Role)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	stored, _ := model.ParseRole(req.Role)
	WriteSuccess(w, RoleResponse{UserID: id, Role: string(stored), EffectiveRole: effective}, nil)
}
