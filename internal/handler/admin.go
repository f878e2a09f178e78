// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/olegiv/oasis/internal/i18n"
	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/render"
	"github.com/olegiv/oasis/internal/service"
	"github.com/olegiv/oasis/internal/store"
)

// AdminHandler serves the moderation console.
type AdminHandler struct {
	queries   *store.Queries
	renderer  *render.Renderer
	resolver  *moderation.Resolver
	lifecycle *moderation.Lifecycle
	roles     *moderation.Roles
	catalog   *service.Catalog
	messages  *service.Messages
	events    *service.EventService
}

// AdminDeps groups the collaborators of AdminHandler.
type AdminDeps struct {
	Renderer  *render.Renderer
	Resolver  *moderation.Resolver
	Lifecycle *moderation.Lifecycle
	Roles     *moderation.Roles
	Catalog   *service.Catalog
	Messages  *service.Messages
	Events    *service.EventService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *sql.DB, deps AdminDeps) *AdminHandler {
	return &AdminHandler{
		queries:   store.New(db),
		renderer:  deps.Renderer,
		resolver:  deps.Resolver,
		lifecycle: deps.Lifecycle,
		roles:     deps.Roles,
		catalog:   deps.Catalog,
		messages:  deps.Messages,
		events:    deps.Events,
	}
}

// DashboardData is the dashboard page state.
type DashboardData struct {
	Kinds          []model.EntityKind
	Statuses       []model.Status
	Counts         map[model.EntityKind]map[model.Status]int64
	UnreadMessages int64
}

// QueueData is the moderation queue page state.
type QueueData struct {
	Kind       string
	Status     string
	Kinds      []model.EntityKind
	Statuses   []model.Status
	Items      []store.Entity
	Pagination Pagination
}

// UserRow is an account with its stored and effective role.
type UserRow struct {
	User      store.User
	Effective model.Role
	Override  bool // effective role comes from the superadmin override
}

// UsersData is the user management page state.
type UsersData struct {
	Rows       []UserRow
	Roles      []model.Role
	Pagination Pagination
}

// MessagesData is the message inbox page state.
type MessagesData struct {
	Type       string
	Status     string
	Types      []model.MessageType
	Statuses   []model.MessageStatus
	Items      []service.MessageView
	Pagination Pagination
}

// EventsData is the event log page state.
type EventsData struct {
	Category   string
	Categories []string
	Items      []store.Event
	Pagination Pagination
}

var eventCategories = []string{
	model.EventCategoryAuth,
	model.EventCategoryModeration,
	model.EventCategoryUser,
	model.EventCategoryProfile,
	model.EventCategoryMessage,
	model.EventCategorySystem,
	model.EventCategoryCache,
}

// Dashboard shows entity counts per kind and status.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := h.catalog.Counts(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to count entities", "error", err)
		return
	}

	_, unread, err := h.messages.List(r.Context(), middleware.Actor(r), "", string(model.MessageUnread), 1, 0)
	if err != nil {
		logAndInternalError(w, "failed to count unread messages", "error", err)
		return
	}

	renderPage(w, r, h.renderer, "admin/dashboard", render.TemplateData{
		Title: "nav.dashboard",
		Data: DashboardData{
			Kinds:          model.Kinds,
			Statuses:       model.Statuses,
			Counts:         counts,
			UnreadMessages: unread,
		},
	})
}

// Queue lists entities filtered by kind and status. Pending is the default.
func (h *AdminHandler) Queue(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var kind string
	if k, err := model.ParseKind(query.Get("kind")); err == nil {
		kind = string(k)
	}
	status := string(model.StatusPending)
	if !query.Has("status") {
		query.Set("status", status)
	} else if s, err := model.ParseStatus(query.Get("status")); err == nil {
		status = string(s)
	} else {
		status = ""
	}

	page := ParsePageParam(r)
	items, total, err := h.catalog.ListByStatus(r.Context(), kind, status, QueuePerPage, int64((page-1)*QueuePerPage))
	if err != nil {
		logAndInternalError(w, "failed to list queue", "error", err)
		return
	}

	renderPage(w, r, h.renderer, "admin/queue", render.TemplateData{
		Title: "nav.queue",
		Data: QueueData{
			Kind:       kind,
			Status:     status,
			Kinds:      model.Kinds,
			Statuses:   model.Statuses,
			Items:      items,
			Pagination: BuildPagination(page, int(total), QueuePerPage, RouteAdminQueue, query),
		},
	})
}

// Approve moves a pending entity to approved.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Approve, "msg.approved")
}

// Reject moves a pending entity to rejected.
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Reject, "msg.rejected")
}

type transitionFunc func(ctx context.Context, actor moderation.Actor, id, expectedVersion int64) (store.Entity, error)

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc, successKey string) {
	back := backTo(r, RouteAdminQueue)
	id, err := ParseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, back) {
		return
	}

	// A missing version means "whatever is current".
	var version int64
	if v := r.FormValue("version"); v != "" {
		version, err = strconv.ParseInt(v, 10, 64)
		if err != nil || version < 0 {
			flashError(w, r, h.renderer, back, i18n.T(middleware.GetLang(r), "msg.invalid_form"))
			return
		}
	}

	if _, err := fn(r.Context(), middleware.Actor(r), id, version); err != nil {
		flashDomainError(w, r, h.renderer, back, err, "entity_id", id)
		return
	}
	flashSuccess(w, r, h.renderer, back, i18n.T(middleware.GetLang(r), successKey))
}

// Delete removes an entity permanently.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, RouteAdminQueue)
	id, err := ParseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := h.lifecycle.Delete(r.Context(), middleware.Actor(r), id); err != nil {
		flashDomainError(w, r, h.renderer, back, err, "entity_id", id)
		return
	}
	flashSuccess(w, r, h.renderer, back, i18n.T(middleware.GetLang(r), "msg.deleted"))
}

// Users lists accounts with their stored and effective roles.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	total, err := h.queries.CountUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to count users", "error", err)
		return
	}

	page, _ := NormalizePagination(ParsePageParam(r), int(total), UsersPerPage)
	users, err := h.queries.ListUsers(r.Context(), store.ListUsersParams{
		Limit:  UsersPerPage,
		Offset: int64((page - 1) * UsersPerPage),
	})
	if err != nil {
		logAndInternalError(w, "failed to list users", "error", err)
		return
	}

	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		effective := h.resolver.Resolve(u)
		rows = append(rows, UserRow{
			User:      u,
			Effective: effective,
			Override:  effective != model.RoleOrDefault(u.Role),
		})
	}

	renderPage(w, r, h.renderer, "admin/users", render.TemplateData{
		Title: "nav.users",
		Data: UsersData{
			Rows:       rows,
			Roles:      model.Roles,
			Pagination: BuildPagination(page, int(total), UsersPerPage, RouteAdminUsers, r.URL.Query()),
		},
	})
}

// SetRole changes an account's stored role.
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, RouteAdminUsers)
	id, err := ParseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, back) {
		return
	}

	if _, err := h.roles.SetRole(r.Context(), middleware.Actor(r), id, r.FormValue("role")); err != nil {
		flashDomainError(w, r, h.renderer, back, err, "target_id", id)
		return
	}
	flashSuccess(w, r, h.renderer, back, i18n.T(middleware.GetLang(r), "msg.role_updated"))
}

// Messages lists visitor messages filtered by type and status.
func (h *AdminHandler) Messages(w http.ResponseWriter, r *http.Request) {
	var msgType, status string
	if t, err := model.ParseMessageType(r.URL.Query().Get("type")); err == nil {
		msgType = string(t)
	}
	if s, err := model.ParseMessageStatus(r.URL.Query().Get("status")); err == nil {
		status = string(s)
	}

	page := ParsePageParam(r)
	items, total, err := h.messages.List(r.Context(), middleware.Actor(r), msgType, status, MessagesPerPage, int64((page-1)*MessagesPerPage))
	if err != nil {
		flashDomainError(w, r, h.renderer, RouteRoot, err)
		return
	}

	renderPage(w, r, h.renderer, "admin/messages", render.TemplateData{
		Title: "nav.messages",
		Data: MessagesData{
			Type:       msgType,
			Status:     status,
			Types:      model.MessageTypes,
			Statuses:   model.MessageStatuses,
			Items:      items,
			Pagination: BuildPagination(page, int(total), MessagesPerPage, RouteAdminMessages, r.URL.Query()),
		},
	})
}

// MarkRead marks a message as read.
func (h *AdminHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, RouteAdminMessages)
	id, err := ParseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if _, err := h.messages.MarkRead(r.Context(), middleware.Actor(r), id); err != nil {
		flashDomainError(w, r, h.renderer, back, err, "message_id", id)
		return
	}
	flashSuccess(w, r, h.renderer, back, i18n.T(middleware.GetLang(r), "msg.message_read"))
}

// Reply e-mails a reply and marks the message replied.
func (h *AdminHandler) Reply(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, RouteAdminMessages)
	id, err := ParseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, back) {
		return
	}

	if _, err := h.messages.Reply(r.Context(), middleware.Actor(r), id, r.FormValue("body")); err != nil {
		flashDomainError(w, r, h.renderer, back, err, "message_id", id)
		return
	}
	flashSuccess(w, r, h.renderer, back, i18n.T(middleware.GetLang(r), "msg.message_replied"))
}

// Events shows the event log.
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if !slices.Contains(eventCategories, category) {
		category = ""
	}

	page := ParsePageParam(r)
	items, total, err := h.events.ListEvents(r.Context(), category, EventsPerPage, int64((page-1)*EventsPerPage))
	if err != nil {
		logAndInternalError(w, "failed to list events", "error", err)
		return
	}

	renderPage(w, r, h.renderer, "admin/events", render.TemplateData{
		Title: "nav.events",
		Data: EventsData{
			Category:   category,
			Categories: eventCategories,
			Items:      items,
			Pagination: BuildPagination(page, int(total), EventsPerPage, RouteAdminEvents, r.URL.Query()),
		},
	})
}

// backTo returns the admin page the form was posted from, or fallback.
// Only same-site /admin paths are honoured.
func backTo(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return fallback
	}
	if u.Path != RouteAdmin && !strings.HasPrefix(u.Path, RouteAdmin+"/") {
		return fallback
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}
