// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/oasis/internal/i18n"
)

// ContextKeyLanguage holds the resolved UI language code.
const ContextKeyLanguage ContextKey = "language"

// LanguageCookieName is the cookie name for language preference.
const LanguageCookieName = "oasis_lang"

// SessionKeyLang is the session key for the language preference.
const SessionKeyLang = "lang"

// Language creates middleware that detects and sets the UI language.
// Priority order:
// 1. Query parameter ?lang=XX (explicit switch, stored in cookie and session)
// 2. Session preference
// 3. Cookie preference
// 4. Accept-Language header
// 5. Default language
//
// sm may be nil, in which case the session is skipped.
func Language(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := detectLanguage(w, r, sm)
			ctx := context.WithValue(r.Context(), ContextKeyLanguage, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLanguage(w http.ResponseWriter, r *http.Request, sm *scs.SessionManager) string {
	if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("lang"))); i18n.IsSupported(q) {
		SetLanguageCookie(w, q)
		if sm != nil {
			sm.Put(r.Context(), SessionKeyLang, q)
		}
		return q
	}

	if sm != nil {
		if lang := sm.GetString(r.Context(), SessionKeyLang); i18n.IsSupported(lang) {
			return lang
		}
	}

	if cookie, err := r.Cookie(LanguageCookieName); err == nil {
		if lang := strings.ToLower(cookie.Value); i18n.IsSupported(lang) {
			return lang
		}
	}

	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if lang := i18n.MatchLanguage(accept); lang != "" {
			return lang
		}
	}

	return i18n.DefaultLanguage
}

// GetLang returns the UI language resolved for the request, or the default
// language when the Language middleware did not run.
func GetLang(r *http.Request) string {
	if lang, ok := r.Context().Value(ContextKeyLanguage).(string); ok && lang != "" {
		return lang
	}
	return i18n.DefaultLanguage
}

// SetLanguageCookie sets the language preference cookie.
func SetLanguageCookie(w http.ResponseWriter, langCode string) {
	http.SetCookie(w, &http.Cookie{
		Name:     LanguageCookieName,
		Value:    langCode,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
