// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"

	"github.com/olegiv/oasis/internal/util"
)

// ClientIP returns the client address without its port. Mount chi's RealIP
// middleware first when running behind a reverse proxy.
func ClientIP(r *http.Request) string {
	if addr, ok := util.ParseClientIP(r.RemoteAddr); ok {
		return addr.String()
	}
	return r.RemoteAddr
}

// ContextKeyRequestURL holds the path and query of the current request.
const ContextKeyRequestURL ContextKey = "request_url"

// RequestURL returns the path and query of the request for event logging.
func RequestURL(r *http.Request) string {
	return r.URL.RequestURI()
}

// RequestPath stores RequestURL in the context so log records written
// during the request can carry it.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestURL, RequestURL(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestURL returns the URL stored by RequestPath, or "".
func GetRequestURL(ctx context.Context) string {
	u, _ := ctx.Value(ContextKeyRequestURL).(string)
	return u
}
