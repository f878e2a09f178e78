// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/store"
	"github.com/olegiv/oasis/web"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html": {Data: []byte(
			`{{define "base"}}<html lang="{{.Lang}}" dir="{{.Dir}}">{{template "nav" .}}{{template "flash" .}}{{template "content" .}}</html>{{end}}`)},
		"layouts/admin.html":  {Data: []byte(`{{define "nav"}}[admin {{.Role}}]{{end}}`)},
		"layouts/public.html": {Data: []byte(`{{define "nav"}}[public]{{end}}`)},
		"partials/flash.html": {Data: []byte(`{{define "flash"}}{{if .Flash}}<p class="{{.FlashType}}">{{.Flash}}</p>{{end}}{{end}}`)},
		"admin/queue.html":    {Data: []byte(`{{define "content"}}{{.Title}}:{{.Data}}{{end}}`)},
		"public/home.html":    {Data: []byte(`{{define "content"}}{{truncate .Data 3}}{{end}}`)},
	}
}

func TestNewRegistersPagesPerDirectory(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, name := range []string{"admin/queue", "public/home"} {
		if !r.Has(name) {
			t.Errorf("template %q not registered", name)
		}
	}
	if r.Has("auth/login") {
		t.Error("auth/login registered without a source file")
	}
}

func TestRenderUsesLayoutForDirectory(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/queue", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), store.User{ID: 1}, model.RoleModerator))
	w := httptest.NewRecorder()
	if err := r.Render(w, req, "admin/queue", TemplateData{Title: "nav.queue", Data: 3}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	body := w.Body.String()
	for _, want := range []string{`lang="en"`, `dir="ltr"`, "[admin moderator]", "nav.queue:3"} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRenderRightToLeft(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	w := httptest.NewRecorder()
	h := middleware.Language(nil)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if err := r.Render(w, req, "public/home", TemplateData{Data: "مرحبا بكم"}); err != nil {
			t.Errorf("Render: %v", err)
		}
	}))
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?lang=ar", nil))

	body := w.Body.String()
	if !strings.Contains(body, `dir="rtl"`) {
		t.Errorf("body %q missing dir=rtl", body)
	}
	if !strings.Contains(body, "مرح...") {
		t.Errorf("body %q missing rune-safe truncation", body)
	}
}

func TestRenderStatus(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	w := httptest.NewRecorder()
	if err := r.RenderStatus(w, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusUnprocessableEntity, "public/home", TemplateData{Data: "x"}); err != nil {
		t.Fatalf("RenderStatus: %v", err)
	}
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	w := httptest.NewRecorder()
	if err := r.Render(w, httptest.NewRequest(http.MethodGet, "/", nil), "admin/missing", TemplateData{}); err == nil {
		t.Error("Render of an unknown template should fail")
	}
	if w.Body.Len() != 0 {
		t.Errorf("body written on error: %q", w.Body.String())
	}
}

func TestFlashIsShownOnce(t *testing.T) {
	sm := scs.New()
	r, err := New(Config{TemplatesFS: testFS(), SessionManager: sm})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var first, second string
	h := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.SetFlash(req, "Saved", FlashSuccess)

		w1 := httptest.NewRecorder()
		_ = r.Render(w1, req, "public/home", TemplateData{Data: "a"})
		first = w1.Body.String()

		w2 := httptest.NewRecorder()
		_ = r.Render(w2, req, "public/home", TemplateData{Data: "a"})
		second = w2.Body.String()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(first, `<p class="success">Saved</p>`) {
		t.Errorf("first render %q missing flash", first)
	}
	if strings.Contains(second, "Saved") {
		t.Errorf("second render %q repeated the flash", second)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"longer text", 6, "longer..."},
		{"éàü", 2, "éà..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestEmbeddedTemplatesParse(t *testing.T) {
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	r, err := New(Config{TemplatesFS: templatesFS})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, name := range []string{
		"admin/dashboard", "admin/queue", "admin/users", "admin/messages", "admin/events",
		"auth/login", "auth/register",
		"public/home", "public/list", "public/entity", "public/contact",
	} {
		if !r.Has(name) {
			t.Errorf("template %q missing", name)
		}
	}
}
