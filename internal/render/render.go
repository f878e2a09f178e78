// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render parses the HTML templates once and renders pages with the
// request's language, user and flash message filled in.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/oasis/internal/i18n"
	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/store"
)

// Flash types understood by the flash partial.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Renderer handles template rendering with caching.
type Renderer struct {
	templates       map[string]*template.Template
	sessionManager  *scs.SessionManager
	isDev           bool
	hcaptchaSiteKey string
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS     fs.FS
	SessionManager  *scs.SessionManager
	IsDev           bool
	HCaptchaSiteKey string // empty hides the captcha widget
}

// pageSet is a directory of pages parsed on top of the same layouts.
type pageSet struct {
	dir     string
	layouts []string
}

var pageSets = []pageSet{
	{dir: "admin", layouts: []string{"layouts/base.html", "layouts/admin.html"}},
	{dir: "auth", layouts: []string{"layouts/base.html", "layouts/public.html"}},
	{dir: "public", layouts: []string{"layouts/base.html", "layouts/public.html"}},
}

// New creates a new Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates:       make(map[string]*template.Template),
		sessionManager:  cfg.SessionManager,
		isDev:           cfg.IsDev,
		hcaptchaSiteKey: cfg.HCaptchaSiteKey,
	}

	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}

	return r, nil
}

// parseTemplates parses all templates from the filesystem. Each page is
// registered as "<dir>/<name>", e.g. "admin/queue".
func (r *Renderer) parseTemplates(templatesFS fs.FS) error {
	partials, err := templateFiles(templatesFS, "partials")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}

	for _, set := range pageSets {
		pages, err := templateFiles(templatesFS, set.dir)
		if err != nil {
			return fmt.Errorf("getting %s templates: %w", set.dir, err)
		}

		for _, page := range pages {
			name := set.dir + "/" + strings.TrimSuffix(path.Base(page), ".html")

			// Parse in order: layouts, partials, page template
			files := append([]string{}, set.layouts...)
			files = append(files, partials...)
			files = append(files, page)

			tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, files...)
			if err != nil {
				return fmt.Errorf("parsing template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}

	if r.isDev {
		slog.Debug("templates parsed", "count", len(r.templates))
	}
	return nil
}

// templateFiles returns all .html files in a directory. A missing directory
// yields no files.
func templateFiles(templatesFS fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		return nil, nil
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// templateFuncs returns custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"T": func(lang, key string, args ...any) string {
			return i18n.T(lang, key, args...)
		},
		"formatDate": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"formatDateTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04")
		},
		"truncate": truncate,
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"roleAtLeast": func(role model.Role, minRole string) bool {
			return role.AtLeast(model.Role(minRole))
		},
	}
}

// truncate shortens s to length runes, appending an ellipsis when cut.
func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title           string
	Lang            string
	Dir             string
	User            *store.User
	Role            model.Role
	Data            any
	Flash           string
	FlashType       string
	CurrentYear     int
	HCaptchaSiteKey string
}

// Render renders a template with the given data.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	return r.RenderStatus(w, req, http.StatusOK, name, data)
}

// RenderStatus renders a template with an explicit status code.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	data.CurrentYear = time.Now().Year()
	data.Lang = middleware.GetLang(req)
	data.Dir = i18n.Direction(data.Lang)
	data.User = middleware.GetUser(req)
	data.Role = middleware.GetRole(req)
	data.HCaptchaSiteKey = r.hcaptchaSiteKey
	if data.Title != "" {
		data.Title = i18n.T(data.Lang, data.Title)
	}

	if r.sessionManager != nil {
		if flash := r.sessionManager.PopString(req.Context(), middleware.SessionKeyFlash); flash != "" {
			data.Flash = flash
			data.FlashType = r.sessionManager.PopString(req.Context(), middleware.SessionKeyFlashType)
			if data.FlashType == "" {
				data.FlashType = FlashInfo
			}
		}
	}

	// Render to buffer first to catch errors
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// SetFlash sets a flash message in the session.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager != nil {
		r.sessionManager.Put(req.Context(), middleware.SessionKeyFlash, message)
		r.sessionManager.Put(req.Context(), middleware.SessionKeyFlashType, flashType)
	}
}
