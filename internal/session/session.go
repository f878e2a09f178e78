// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the cookie session manager backed by the
// sessions table.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Cookie names. The __Host- prefix pins the production cookie to this host
// over HTTPS.
const (
	CookieNameDev  = "oasis_session"
	CookieNameProd = "__Host-oasis_session"
)

// Config tunes the session manager.
type Config struct {
	IsDev           bool
	Lifetime        time.Duration // default 24h
	IdleTimeout     time.Duration // 0 disables
	CleanupInterval time.Duration // expired row sweep, default 5m
}

// New creates a session manager storing sessions in db.
func New(db *sql.DB, cfg Config) *scs.SessionManager {
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	sm := scs.New()
	sm.Store = sqlite3store.NewWithCleanupInterval(db, cfg.CleanupInterval)
	sm.Lifetime = cfg.Lifetime
	sm.IdleTimeout = cfg.IdleTimeout

	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !cfg.IsDev
	sm.Cookie.Name = CookieNameDev
	if !cfg.IsDev {
		sm.Cookie.Name = CookieNameProd
	}

	return sm
}
