// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/oasis/internal/i18n"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys.
const (
	ContextKeyUser ContextKey = "user"
	ContextKeyRole ContextKey = "role"
)

// Session keys.
const (
	SessionKeyUserID    = "user_id"
	SessionKeyFlash     = "flash"
	SessionKeyFlashType = "flash_type"
)

// Redirect targets used by the auth middleware.
const (
	RouteLogin = "/login"
	RouteRoot  = "/"
)

// AuthEventLogger records authentication and authorization events.
type AuthEventLogger interface {
	LogAuthEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error
}

// Auth creates middleware that requires a signed in session.
// Anonymous requests are redirected to the login page.
func Auth(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sm.GetInt64(r.Context(), SessionKeyUserID) == 0 {
				http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoadUser loads the session account and its effective role into the
// request context. A session whose account no longer exists is destroyed
// and the request is redirected to the login page.
func LoadUser(sm *scs.SessionManager, db *sql.DB, resolver *moderation.Resolver) func(http.Handler) http.Handler {
	return loadUser(sm, db, resolver, true)
}

// OptionalLoadUser is LoadUser for pages that anonymous visitors may see.
// A stale session is destroyed and the request continues anonymously.
func OptionalLoadUser(sm *scs.SessionManager, db *sql.DB, resolver *moderation.Resolver) func(http.Handler) http.Handler {
	return loadUser(sm, db, resolver, false)
}

func loadUser(sm *scs.SessionManager, db *sql.DB, resolver *moderation.Resolver, required bool) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				if required {
					http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if errors.Is(err, sql.ErrNoRows) {
				slog.Info("session account no longer exists", "user_id", userID)
				if err := sm.Destroy(r.Context()); err != nil {
					slog.Error("session destroy error", "error", err)
				}
				if required {
					http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				slog.Error("failed to load session user", "error", err, "user_id", userID)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			ctx := WithUser(r.Context(), user, resolver.Resolve(user))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole creates middleware that requires at least minRole. The role
// checked is the effective role resolved by LoadUser. Insufficient roles are
// logged, recorded as an auth event and redirected home with a flash notice.
func RequireRole(sm *scs.SessionManager, minRole model.Role, events AuthEventLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
				return
			}

			role := GetRole(r)
			if !role.AtLeast(minRole) {
				logAccessDenied(r, events, user.ID, role, minRole)
				sm.Put(r.Context(), SessionKeyFlash, i18n.T(GetLang(r), "msg.no_access"))
				sm.Put(r.Context(), SessionKeyFlashType, "error")
				http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// logAccessDenied writes a 403 to the application log and the event log.
func logAccessDenied(r *http.Request, events AuthEventLogger, userID int64, role, required model.Role) {
	slog.Warn("access denied",
		"status", http.StatusForbidden,
		"method", r.Method,
		"path", r.URL.Path,
		"user_id", userID,
		"user_role", role,
		"required_role", required,
		"remote_addr", r.RemoteAddr,
	)
	if events == nil {
		return
	}
	_ = events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Access denied: insufficient permissions", &userID, ClientIP(r), map[string]any{
		"method":        r.Method,
		"path":          r.URL.Path,
		"user_role":     string(role),
		"required_role": string(required),
	})
}

// WithUser stores the account and its effective role in ctx.
func WithUser(ctx context.Context, user store.User, role model.Role) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUser, user)
	return context.WithValue(ctx, ContextKeyRole, role)
}

// GetUser retrieves the user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *store.User {
	user, ok := r.Context().Value(ContextKeyUser).(store.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the signed in account id, or 0.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

// GetUserIDPtr returns the user ID as a pointer for event logging.
func GetUserIDPtr(r *http.Request) *int64 {
	if user := GetUser(r); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// GetRole returns the effective role resolved for this request. Anonymous
// requests have an empty role.
func GetRole(r *http.Request) model.Role {
	role, _ := r.Context().Value(ContextKeyRole).(model.Role)
	return role
}

// Actor builds the moderation actor for the signed in account.
func Actor(r *http.Request) moderation.Actor {
	return moderation.Actor{UserID: GetUserID(r), IP: ClientIP(r)}
}
