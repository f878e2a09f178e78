// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oasis/internal/i18n"
	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/service"
)

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token. The role is informational; it is
// resolved again on every request.
type TokenResponse struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	ExpiresAt time.Time  `json:"expires_at"`
	UserID    int64      `json:"user_id"`
	Role      model.Role `json:"role"`
}

// IssueToken handles POST /api/v1/auth/token.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		WriteValidationError(w, map[string]string{"email": "is required", "password": "is required"})
		return
	}

	lp := h.deps.LoginProtection
	if lp != nil {
		if locked, remaining := lp.IsAccountLocked(email); locked {
			WriteError(w, http.StatusTooManyRequests, "account_locked",
				"Account temporarily locked, retry in "+remaining.Round(time.Second).String(), nil)
			return
		}
	}

	user, err := h.deps.Profiles.Authenticate(r.Context(), email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			if lp != nil {
				lp.RecordFailedAttempt(email)
			}
			h.logAuth(r, model.EventLevelWarning, "API token request failed", nil, map[string]any{"email": email})
		}
		writeDomainError(w, r, err)
		return
	}
	if lp != nil {
		lp.RecordSuccessfulLogin(email)
	}

	token, expires, err := h.deps.Tokens.Issue(user.ID)
	if err != nil {
		slog.Error("failed to issue token", "user_id", user.ID, "error", err)
		WriteInternalError(w, "Failed to issue token")
		return
	}
	h.logAuth(r, model.EventLevelInfo, "API token issued", &user.ID, nil)

	WriteSuccess(w, TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expires,
		UserID:    user.ID,
		Role:      h.deps.Resolver.Resolve(user),
	}, nil)
}

func (h *Handler) logAuth(r *http.Request, level, message string, userID *int64, md map[string]any) {
	if h.deps.Events == nil {
		return
	}
	if err := h.deps.Events.LogAuthEvent(r.Context(), level, message, userID, middleware.ClientIP(r), md); err != nil {
		slog.Warn("failed to record auth event", "error", err)
	}
}

// Translations handles GET /api/v1/i18n/{lang}. Keys missing from lang are
// filled from English; unknown languages get English.
func (h *Handler) Translations(w http.ResponseWriter, r *http.Request) {
	lang := i18n.Normalize(strings.ToLower(chi.URLParam(r, "lang")))
	WriteSuccess(w, map[string]any{
		"lang":     lang,
		"dir":      i18n.Direction(lang),
		"messages": i18n.Dictionary(lang),
	}, nil)
}
