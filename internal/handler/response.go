// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/oasis/internal/i18n"
	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/render"
	"github.com/olegiv/oasis/internal/service"
	"github.com/olegiv/oasis/internal/validation"
)

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message, messageType string) {
	renderer.SetFlash(r, message, messageType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashError sets an error flash message and redirects to the given URL.
func flashError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashError)
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashSuccess)
}

// parseFormOrRedirect parses the request form and redirects with an error message on failure.
// Returns true if parsing succeeded, false if it failed (and redirect was performed).
func parseFormOrRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, redirectURL string) bool {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, renderer, redirectURL, i18n.T(middleware.GetLang(r), "msg.invalid_form"))
		return false
	}
	return true
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// renderPage renders a page, answering 500 when the template fails.
func renderPage(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, name string, data render.TemplateData) {
	if err := renderer.Render(w, r, name, data); err != nil {
		logAndInternalError(w, "failed to render template", "template", name, "error", err)
	}
}

// errorMessageKey maps a domain error to its flash message key. ok is
// false for unexpected errors, which should be logged.
func errorMessageKey(err error) (key string, ok bool) {
	switch {
	case errors.Is(err, moderation.ErrForbidden):
		return "msg.forbidden", true
	case errors.Is(err, moderation.ErrEntityNotFound),
		errors.Is(err, moderation.ErrAccountNotFound),
		errors.Is(err, service.ErrMessageNotFound):
		return "msg.not_found", true
	case errors.Is(err, moderation.ErrVersionConflict):
		return "msg.version_conflict", true
	case errors.Is(err, moderation.ErrInvalidTransition),
		errors.Is(err, service.ErrMessageTransition):
		return "msg.invalid_transition", true
	case errors.Is(err, moderation.ErrLastAdmin):
		return "msg.last_admin", true
	case errors.Is(err, moderation.ErrInvalidRole):
		return "msg.invalid_form", true
	case errors.Is(err, service.ErrRateLimited):
		return "msg.rate_limited", true
	case errors.Is(err, service.ErrCaptchaFailed):
		return "msg.captcha_failed", true
	case errors.Is(err, service.ErrInvalidCredentials):
		return "msg.invalid_credentials", true
	case errors.Is(err, service.ErrEmailTaken):
		return "auth.email_taken", true
	}
	if _, isValidation := validation.AsError(err); isValidation {
		return "msg.validation", true
	}
	return "msg.error", false
}

// flashDomainError redirects with the flash message for err.
func flashDomainError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url string, err error, logArgs ...any) {
	key, known := errorMessageKey(err)
	if !known {
		slog.Error("request failed", append(logArgs, "error", err)...)
	}
	flashError(w, r, renderer, url, i18n.T(middleware.GetLang(r), key))
}
