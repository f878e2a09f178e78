// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/oasis/internal/auth"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/store"
	"github.com/olegiv/oasis/internal/testutil"
)

const testTokenSecret = "api-test-secret-0123456789abcdef!"

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var got APIError
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return got
}

func TestWriteAPIError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", map[string]string{"title": "required"})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	got := decodeAPIError(t, w)
	if got.Error.Code != "validation_error" || got.Error.Message != "Validation failed" || got.Error.Details["title"] != "required" {
		t.Errorf("body = %+v", got)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header    string
		wantToken string
		wantOK    bool
	}{
		{"", "", false},
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
		{"Basic dXNlcjpwYXNz", "", true},
		{"Bearer", "", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		token, ok := bearerToken(r)
		if token != tt.wantToken || ok != tt.wantOK {
			t.Errorf("bearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, token, ok, tt.wantToken, tt.wantOK)
		}
	}
}

type apiFixture struct {
	tokens   *auth.TokenManager
	resolver *moderation.Resolver
	handler  func(next http.Handler) http.Handler
	db       *store.Queries
}

func newAPIFixture(t *testing.T) (*apiFixture, store.User, store.User) {
	t.Helper()
	db := testutil.TestMemoryDB(t)
	moderator := testutil.CreateUser(t, db, "mod@example.com", "moderator")
	user := testutil.CreateUser(t, db, "user@example.com", "user")
	resolver := moderation.NewResolver(db, nil)
	tokens := auth.NewTokenManager(testTokenSecret, time.Hour)
	return &apiFixture{
		tokens:   tokens,
		resolver: resolver,
		handler:  APIAuth(tokens, nil, db, resolver),
		db:       store.New(db),
	}, moderator, user
}

func (f *apiFixture) token(t *testing.T, userID int64) string {
	t.Helper()
	tok, _, err := f.tokens.Issue(userID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func TestAPIAuthBearerToken(t *testing.T) {
	f, moderator, _ := newAPIFixture(t)

	var got captureUser
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, moderator.ID))
	w := httptest.NewRecorder()
	f.handler(got.handler()).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got.userID != moderator.ID || got.role != model.RoleModerator {
		t.Errorf("context = (%d, %q), want (%d, moderator)", got.userID, got.role, moderator.ID)
	}
}

func TestAPIAuthRejectsBadToken(t *testing.T) {
	f, _, _ := newAPIFixture(t)

	for _, header := range []string{"Bearer not-a-jwt", "Basic abc"} {
		var got captureUser
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		f.handler(got.handler()).ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%q: status = %d, want 401", header, w.Code)
		}
		if got.called {
			t.Errorf("%q: next handler ran", header)
		}
	}
}

func TestAPIAuthTokenForDeletedAccount(t *testing.T) {
	f, _, user := newAPIFixture(t)
	tok := f.token(t, user.ID)
	if err := f.db.DeleteUser(context.Background(), user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	f.handler(okHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAPIAuthAnonymousPassesThrough(t *testing.T) {
	f, _, _ := newAPIFixture(t)

	var got captureUser
	w := httptest.NewRecorder()
	f.handler(got.handler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))

	if !got.called || got.userID != 0 {
		t.Errorf("called = %v, user = %d; want anonymous call", got.called, got.userID)
	}
}

func TestAPIAuthSessionCookie(t *testing.T) {
	db := testutil.TestMemoryDB(t)
	user := testutil.CreateUser(t, db, "user@example.com", "user")
	sm := scs.New()
	mw := APIAuth(auth.NewTokenManager(testTokenSecret, time.Hour), sm, db, moderation.NewResolver(db, nil))

	var got captureUser
	w := httptest.NewRecorder()
	signedIn(sm, user.ID, mw(got.handler())).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	if got.userID != user.ID || got.role != model.RoleUser {
		t.Errorf("context = (%d, %q), want (%d, user)", got.userID, got.role, user.ID)
	}
}

func TestAPIRequireAuth(t *testing.T) {
	w := httptest.NewRecorder()
	APIRequireAuth(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if got := decodeAPIError(t, w); got.Error.Code != "unauthorized" {
		t.Errorf("code = %q, want unauthorized", got.Error.Code)
	}
}

func TestAPIRequireRole(t *testing.T) {
	f, moderator, user := newAPIFixture(t)

	tests := []struct {
		name     string
		userID   int64
		minRole  model.Role
		wantCode int
	}{
		{"moderator allowed", moderator.ID, model.RoleModerator, http.StatusOK},
		{"user forbidden", user.ID, model.RoleModerator, http.StatusForbidden},
		{"moderator forbidden from admin", moderator.ID, model.RoleAdmin, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &fakeAuthEvents{}
			h := f.handler(APIRequireRole(tt.minRole, events)(okHandler()))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/entities", nil)
			req.Header.Set("Authorization", "Bearer "+f.token(t, tt.userID))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusForbidden {
				if got := decodeAPIError(t, w); got.Error.Code != "forbidden" {
					t.Errorf("code = %q, want forbidden", got.Error.Code)
				}
				if len(events.events) != 1 {
					t.Errorf("events = %d, want 1", len(events.events))
				}
			}
		})
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := rl.Middleware()(okHandler())

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	for i := range 2 {
		if code := request("198.51.100.1"); code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, code)
		}
	}
	if code := request("198.51.100.1"); code != http.StatusTooManyRequests {
		t.Errorf("status over burst = %d, want 429", code)
	}
	if code := request("198.51.100.2"); code != http.StatusOK {
		t.Errorf("other IP status = %d, want 200", code)
	}
}

func TestRateLimiterPerAccount(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := rl.Middleware()(okHandler())

	request := func(userID int64, ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.RemoteAddr = ip + ":1234"
		req = req.WithContext(WithUser(req.Context(), store.User{ID: userID}, model.RoleUser))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if code := request(7, "198.51.100.1"); code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", code)
	}
	if code := request(7, "198.51.100.9"); code != http.StatusTooManyRequests {
		t.Errorf("same account from another IP = %d, want 429", code)
	}
}

func TestLimiterCacheClearIfExceeds(t *testing.T) {
	lc := newLimiterCache[string](1, 1)
	lc.get("a")
	lc.get("b")

	if lc.clearIfExceeds(5) {
		t.Error("clearIfExceeds(5) cleared a cache of 2")
	}
	if !lc.clearIfExceeds(1) {
		t.Error("clearIfExceeds(1) did not clear a cache of 2")
	}
	if len(lc.limiters) != 0 {
		t.Errorf("limiters = %d, want 0", len(lc.limiters))
	}
}
