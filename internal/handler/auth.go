// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/oasis/internal/i18n"
	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/render"
	"github.com/olegiv/oasis/internal/service"
	"github.com/olegiv/oasis/internal/validation"
)

// AuthHandler handles authentication routes.
type AuthHandler struct {
	profiles        *service.Profiles
	resolver        *moderation.Resolver
	events          *service.EventService
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(profiles *service.Profiles, resolver *moderation.Resolver, events *service.EventService, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		profiles:        profiles,
		resolver:        resolver,
		events:          events,
		renderer:        renderer,
		sessionManager:  sm,
		loginProtection: lp,
	}
}

// LoginData is the login form state.
type LoginData struct {
	Email string
}

// RegisterData is the registration form state.
type RegisterData struct {
	Name   string
	Email  string
	Errors map[string]string
}

// homeFor is where an account lands after signing in.
func homeFor(role model.Role) string {
	if role.AtLeast(model.RoleModerator) {
		return RouteAdmin
	}
	return RouteRoot
}

// LoginForm renders the login page. Signed-in accounts are sent on.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) != nil {
		http.Redirect(w, r, homeFor(middleware.GetRole(r)), http.StatusSeeOther)
		return
	}
	renderPage(w, r, h.renderer, "auth/login", render.TemplateData{
		Title: "nav.login",
		Data:  LoginData{},
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetLang(r)
	if !parseFormOrRedirect(w, r, h.renderer, RouteLogin) {
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if email == "" || password == "" {
		flashError(w, r, h.renderer, RouteLogin, i18n.T(lang, "msg.invalid_credentials"))
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			h.logAuth(r, model.EventLevelWarning, "Login attempt on locked account", nil, map[string]any{"email": email})
			flashError(w, r, h.renderer, RouteLogin, i18n.T(lang, "auth.account_locked", formatDuration(remaining)))
			return
		}
	}

	user, err := h.profiles.Authenticate(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			logAndInternalError(w, "login failed", "error", err)
			return
		}
		h.logAuth(r, model.EventLevelWarning, "Login failed", nil, map[string]any{"email": email})
		h.rejectLogin(w, r, email)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)
	if user.PreferredLanguage != "" && i18n.IsSupported(user.PreferredLanguage) {
		h.sessionManager.Put(r.Context(), middleware.SessionKeyLang, user.PreferredLanguage)
		lang = user.PreferredLanguage
	}

	slog.Info("user logged in", "user_id", user.ID)
	h.logAuth(r, model.EventLevelInfo, "User logged in", &user.ID, nil)

	h.renderer.SetFlash(r, i18n.T(lang, "auth.welcome", user.Name), render.FlashSuccess)
	http.Redirect(w, r, homeFor(h.resolver.Resolve(user)), http.StatusSeeOther)
}

// rejectLogin records a failed attempt and redirects back to the form.
func (h *AuthHandler) rejectLogin(w http.ResponseWriter, r *http.Request, email string) {
	lang := middleware.GetLang(r)
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
			h.logAuth(r, model.EventLevelWarning, "Account locked due to failed attempts", nil, map[string]any{"email": email, "duration": lockDuration.String()})
			flashError(w, r, h.renderer, RouteLogin, i18n.T(lang, "auth.account_locked", formatDuration(lockDuration)))
			return
		}
		if remaining := h.loginProtection.GetRemainingAttempts(email); remaining > 0 && remaining <= 3 {
			flashError(w, r, h.renderer, RouteLogin, i18n.T(lang, "auth.attempts_remaining", remaining))
			return
		}
	}
	flashError(w, r, h.renderer, RouteLogin, i18n.T(lang, "msg.invalid_credentials"))
}

// Logout handles user logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID)
	if userID > 0 {
		h.logAuth(r, model.EventLevelInfo, "User logged out", &userID, nil)
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "user_id", userID)
	flashAndRedirect(w, r, h.renderer, RouteLogin, i18n.T(middleware.GetLang(r), "auth.logged_out"), render.FlashInfo)
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) != nil {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}
	renderPage(w, r, h.renderer, "auth/register", render.TemplateData{
		Title: "nav.register",
		Data:  RegisterData{},
	})
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetLang(r)
	if !parseFormOrRedirect(w, r, h.renderer, RouteRegister) {
		return
	}

	form := RegisterData{
		Name:  strings.TrimSpace(r.FormValue("name")),
		Email: strings.TrimSpace(r.FormValue("email")),
	}
	user, err := h.profiles.Register(r.Context(), service.RegisterInput{
		Email:    form.Email,
		Name:     form.Name,
		Password: r.FormValue("password"),
		Language: lang,
	}, service.RequestMeta{IP: middleware.ClientIP(r), UserAgent: r.UserAgent()})

	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			form.Errors = map[string]string{"email": i18n.T(lang, "auth.email_taken")}
		default:
			verr, ok := validation.AsError(err)
			if !ok {
				logAndInternalError(w, "registration failed", "error", err)
				return
			}
			form.Errors = verr.Fields
		}
		data := render.TemplateData{Title: "nav.register", Data: form, Flash: i18n.T(lang, "msg.validation"), FlashType: render.FlashError}
		if err := h.renderer.RenderStatus(w, r, http.StatusUnprocessableEntity, "auth/register", data); err != nil {
			logAndInternalError(w, "failed to render template", "error", err)
		}
		return
	}

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)
	h.logAuth(r, model.EventLevelInfo, "User registered", &user.ID, nil)

	flashSuccess(w, r, h.renderer, RouteRoot, i18n.T(lang, "auth.registered"))
}

func (h *AuthHandler) logAuth(r *http.Request, level, message string, userID *int64, md map[string]any) {
	if h.events == nil {
		return
	}
	if err := h.events.LogAuthEvent(r.Context(), level, message, userID, middleware.ClientIP(r), md); err != nil {
		slog.Warn("failed to record auth event", "error", err)
	}
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
