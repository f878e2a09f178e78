// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oasis/internal/captcha"
	"github.com/olegiv/oasis/internal/i18n"
	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/render"
	"github.com/olegiv/oasis/internal/service"
	"github.com/olegiv/oasis/internal/validation"
)

// homeItems is how many entities of each kind the home page shows.
const homeItems = 5

// PublicHandler serves approved content and the contact form to visitors.
type PublicHandler struct {
	renderer *render.Renderer
	catalog  *service.Catalog
	messages *service.Messages
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(renderer *render.Renderer, catalog *service.Catalog, messages *service.Messages) *PublicHandler {
	return &PublicHandler{renderer: renderer, catalog: catalog, messages: messages}
}

// HomeData is the home page state.
type HomeData struct {
	Posts       []service.PublicEntity
	Courses     []service.PublicEntity
	Researchers []service.PublicEntity
}

// ListData is a public listing page state.
type ListData struct {
	Kind       model.EntityKind
	Category   string
	Categories []string
	Page       service.EntityPage
	Pagination Pagination
}

// EntityData is a public detail page state.
type EntityData struct {
	Entity service.PublicEntity
	Body   template.HTML
}

// ContactData is the contact form state.
type ContactData struct {
	Type    string
	Name    string
	Email   string
	Subject string
	Body    string
	Types   []model.MessageType
	Errors  map[string]string
}

// Home shows the latest approved entities of every kind.
func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	latest := func(kind model.EntityKind) []service.PublicEntity {
		page, err := h.catalog.ListApproved(r.Context(), kind, "", 1)
		if err != nil {
			slog.Error("failed to list approved entities", "kind", kind, "error", err)
			return nil
		}
		if len(page.Items) > homeItems {
			return page.Items[:homeItems]
		}
		return page.Items
	}

	renderPage(w, r, h.renderer, "public/home", render.TemplateData{
		Data: HomeData{
			Posts:       latest(model.KindPost),
			Courses:     latest(model.KindCourse),
			Researchers: latest(model.KindResearcher),
		},
	})
}

// List returns a handler listing approved entities of kind.
func (h *PublicHandler) List(kind model.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		if category != "" && !model.IsValidCategory(kind, category) {
			category = ""
		}

		page, err := h.catalog.ListApproved(r.Context(), kind, category, ParsePageParam(r))
		if err != nil {
			logAndInternalError(w, "failed to list approved entities", "kind", kind, "error", err)
			return
		}

		query := url.Values{}
		if category != "" {
			query.Set("category", category)
		}
		renderPage(w, r, h.renderer, "public/list", render.TemplateData{
			Title: kind.Plural(),
			Data: ListData{
				Kind:       kind,
				Category:   category,
				Categories: model.Categories[kind],
				Page:       page,
				Pagination: BuildPagination(page.Page, int(page.Total), page.PerPage, "/"+kind.Plural(), query),
			},
		})
	}
}

// Show returns a handler for one approved entity of kind. Anything not
// approved is a 404.
func (h *PublicHandler) Show(kind model.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := h.catalog.GetApproved(r.Context(), kind, chi.URLParam(r, "slug"))
		if errors.Is(err, moderation.ErrEntityNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			logAndInternalError(w, "failed to load entity", "kind", kind, "error", err)
			return
		}

		renderPage(w, r, h.renderer, "public/entity", render.TemplateData{
			Data: EntityData{Entity: entity, Body: template.HTML(entity.BodyHTML)}, //nolint:gosec // sanitized by bluemonday in the catalog
		})
	}
}

// ContactForm renders the contact form.
func (h *PublicHandler) ContactForm(w http.ResponseWriter, r *http.Request) {
	form := ContactData{Type: string(model.MessageContact), Types: model.MessageTypes}
	if user := middleware.GetUser(r); user != nil {
		form.Name = user.Name
		form.Email = user.Email
	}
	if t, err := model.ParseMessageType(r.URL.Query().Get("type")); err == nil {
		form.Type = string(t)
	}
	renderPage(w, r, h.renderer, "public/contact", render.TemplateData{Title: "nav.contact", Data: form})
}

// Contact stores a contact, newsletter or support message.
func (h *PublicHandler) Contact(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetLang(r)
	if !parseFormOrRedirect(w, r, h.renderer, RouteContact) {
		return
	}

	form := ContactData{
		Type:    r.FormValue("type"),
		Name:    strings.TrimSpace(r.FormValue("name")),
		Email:   strings.TrimSpace(r.FormValue("email")),
		Subject: strings.TrimSpace(r.FormValue("subject")),
		Body:    r.FormValue("body"),
		Types:   model.MessageTypes,
	}
	_, err := h.messages.Submit(r.Context(), service.MessageInput{
		Type:         form.Type,
		Name:         form.Name,
		Email:        form.Email,
		Subject:      form.Subject,
		Body:         form.Body,
		CaptchaToken: r.FormValue(captcha.FormField),
	}, service.RequestMeta{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		UserID:    middleware.GetUserID(r),
	})
	if err == nil {
		flashSuccess(w, r, h.renderer, RouteContact, i18n.T(lang, "msg.message_sent"))
		return
	}

	status := http.StatusUnprocessableEntity
	if verr, ok := validation.AsError(err); ok {
		form.Errors = verr.Fields
	} else if errors.Is(err, service.ErrRateLimited) {
		status = http.StatusTooManyRequests
	} else if !errors.Is(err, service.ErrCaptchaFailed) {
		logAndInternalError(w, "failed to store message", "error", err)
		return
	}

	key, _ := errorMessageKey(err)
	data := render.TemplateData{Title: "nav.contact", Data: form, Flash: i18n.T(lang, key), FlashType: render.FlashError}
	if err := h.renderer.RenderStatus(w, r, status, "public/contact", data); err != nil {
		logAndInternalError(w, "failed to render template", "error", err)
	}
}
