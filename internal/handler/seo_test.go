// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/olegiv/oasis/internal/testutil"
)

func TestSitemapListsApprovedOnly(t *testing.T) {
	env := newTestEnv(t)
	h := NewSEOHandler(env.catalog, "https://oasis.example", false)

	testutil.CreateEntity(t, env.db, env.user.ID, "post", "waiting")
	approved := testutil.CreateEntity(t, env.db, env.user.ID, "course", "intro-to-optics")
	if _, err := env.lifecycle.Approve(context.Background(), actorFor(env.admin.ID), approved.ID, 0); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	w := httptest.NewRecorder()
	h.Sitemap(w, httptest.NewRequest(http.MethodGet, RouteSitemap, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	for _, loc := range []string{
		"https://oasis.example/",
		"https://oasis.example/posts",
		"https://oasis.example/researchers",
		"https://oasis.example/courses/intro-to-optics",
	} {
		if !strings.Contains(body, "<loc>"+loc+"</loc>") {
			t.Errorf("sitemap missing %s", loc)
		}
	}
	if strings.Contains(body, "waiting") {
		t.Error("sitemap lists a pending entity")
	}
}

func TestRobotsDerivesSiteURL(t *testing.T) {
	env := newTestEnv(t)
	h := NewSEOHandler(env.catalog, "", false)

	req := httptest.NewRequest(http.MethodGet, RouteRobots, nil)
	req.Host = "oasis.local:8080"
	w := httptest.NewRecorder()
	h.Robots(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Sitemap: http://oasis.local:8080/sitemap.xml") {
		t.Errorf("robots.txt = %q", body)
	}
	if !strings.Contains(body, "Disallow: /admin") {
		t.Error("robots.txt should disallow the console")
	}
}

func TestRobotsDisallowAll(t *testing.T) {
	env := newTestEnv(t)
	h := NewSEOHandler(env.catalog, "https://staging.oasis.example", true)

	w := httptest.NewRecorder()
	h.Robots(w, httptest.NewRequest(http.MethodGet, RouteRobots, nil))

	if body := w.Body.String(); body != "User-agent: *\nDisallow: /\n" {
		t.Errorf("robots.txt = %q", body)
	}
}
