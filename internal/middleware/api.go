// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/time/rate"

	"github.com/olegiv/oasis/internal/auth"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/store"
)

// APIError represents a JSON error response for the API.
type APIError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	apiErr := APIError{}
	apiErr.Error.Code = code
	apiErr.Error.Message = message
	apiErr.Error.Details = details

	_ = json.NewEncoder(w).Encode(apiErr)
}

// bearerToken returns the token of an "Authorization: Bearer" header.
// ok is false when the header is absent; a malformed header returns ok
// with an empty token.
func bearerToken(r *http.Request) (token string, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", true
	}
	return strings.TrimSpace(parts[1]), true
}

// APIAuth identifies API callers from a bearer token or, failing that, the
// session cookie. Requests without credentials continue anonymously. A
// present but invalid token, or a token for a deleted account, is rejected
// with 401. sm may be nil to accept tokens only.
func APIAuth(tokens *auth.TokenManager, sm *scs.SessionManager, db *sql.DB, resolver *moderation.Resolver) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID int64
			fromToken := false

			if raw, ok := bearerToken(r); ok {
				id, err := tokens.Parse(raw)
				if err != nil {
					slog.Debug("rejected api token", "error", err, "path", r.URL.Path)
					WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
					return
				}
				userID, fromToken = id, true
			} else if sm != nil {
				userID = sm.GetInt64(r.Context(), SessionKeyUserID)
			}

			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if errors.Is(err, sql.ErrNoRows) {
				if fromToken {
					WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Account no longer exists", nil)
					return
				}
				if err := sm.Destroy(r.Context()); err != nil {
					slog.Error("session destroy error", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				slog.Error("failed to load api user", "error", err, "user_id", userID)
				WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to load account", nil)
				return
			}

			ctx := WithUser(r.Context(), user, resolver.Resolve(user))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIRequireAuth rejects anonymous API requests with 401.
func APIRequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r) == nil {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// APIRequireRole rejects callers whose effective role is below minRole.
func APIRequireRole(minRole model.Role, events AuthEventLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}
			if role := GetRole(r); !role.AtLeast(minRole) {
				logAccessDenied(r, events, user.ID, role, minRole)
				WriteAPIError(w, http.StatusForbidden, "forbidden", "Insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// limiterCache is a generic rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// newLimiterCache creates a new limiter cache.
func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the rate limiter for a specific key, creating one if needed.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()

	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// clearIfExceeds clears all entries if the cache exceeds maxSize.
// Returns true if the cache was cleared.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if len(lc.limiters) > maxSize {
		lc.limiters = make(map[K]*rate.Limiter)
		return true
	}
	return false
}

// RateLimiter limits requests per client IP, or per account for
// authenticated API callers.
type RateLimiter struct {
	byIP      *limiterCache[string]
	byAccount *limiterCache[int64]
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		byIP:      newLimiterCache[string](rps, burst),
		byAccount: newLimiterCache[int64](rps, burst),
	}
}

func (rl *RateLimiter) allow(r *http.Request) bool {
	if id := GetUserID(r); id != 0 {
		return rl.byAccount.get(id).Allow()
	}
	return rl.byIP.get(ClientIP(r)).Allow()
}

// Prune drops every limiter once either map grows past maxSize.
func (rl *RateLimiter) Prune(maxSize int) {
	if rl.byIP.clearIfExceeds(maxSize) || rl.byAccount.clearIfExceeds(maxSize) {
		slog.Info("cleared rate limiters due to size")
	}
}

// Middleware returns the rate limiting middleware for API routes (returns
// JSON errors). Mount it after APIAuth to limit per account.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(r) {
				WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded. Please slow down.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HTMLMiddleware returns the rate limiting middleware for public form
// routes (returns plain text errors).
func (rl *RateLimiter) HTMLMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(r) {
				slog.Warn("public rate limit exceeded", "ip", ClientIP(r), "path", r.URL.Path)
				http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
