// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/model"
)

// RouteConfig holds the middleware the API routes are mounted with.
type RouteConfig struct {
	// Auth identifies the caller, typically middleware.APIAuth.
	Auth func(http.Handler) http.Handler
	// RateLimit is applied after Auth so callers are limited per account.
	// Nil disables limiting.
	RateLimit func(http.Handler) http.Handler
	// Events records denied access; may be nil.
	Events middleware.AuthEventLogger
}

// Routes returns the /api/v1 router.
func (h *Handler) Routes(cfg RouteConfig) chi.Router {
	r := chi.NewRouter()
	if cfg.Auth != nil {
		r.Use(cfg.Auth)
	}
	if cfg.RateLimit != nil {
		r.Use(cfg.RateLimit)
	}

	r.Get("/status", h.Status)
	r.Post("/auth/token", h.IssueToken)
	r.Get("/i18n/{lang}", h.Translations)
	r.Post("/messages", h.CreateMessage)

	for _, kind := range model.Kinds {
		base := "/" + kind.Plural()
		r.Get(base, h.ListEntities(kind))
		r.Get(base+"/{slug}", h.GetEntity(kind))
		r.With(middleware.APIRequireAuth).Post(base, h.CreateEntity(kind))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIRequireAuth)
		r.Get("/me", h.GetMe)
		r.Put("/me", h.UpdateMe)
		r.Delete("/me", h.DeleteMe)
		r.Put("/me/password", h.ChangePassword)
		r.Post("/me/photo", h.UploadPhoto)
		r.Get("/me/submissions", h.MySubmissions)
	})

	// Role gates here only turn away obvious outsiders; the moderation
	// services make the authoritative per-kind decision.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.APIRequireRole(model.RoleModerator, cfg.Events))
		r.Get("/entities", h.AdminListEntities)
		r.Post("/entities/{id}/approve", h.AdminApprove)
		r.Post("/entities/{id}/reject", h.AdminReject)
		r.Delete("/entities/{id}", h.AdminDelete)
		r.Put("/users/{id}/role", h.AdminSetRole)
	})

	return r
}
