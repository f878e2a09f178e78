// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/seo"
	"github.com/olegiv/oasis/internal/service"
)

// SEOHandler serves sitemap.xml and robots.txt.
type SEOHandler struct {
	catalog     *service.Catalog
	siteURL     string
	disallowAll bool
}

// NewSEOHandler creates a new SEOHandler. An empty siteURL is derived from
// each request.
func NewSEOHandler(catalog *service.Catalog, siteURL string, disallowAll bool) *SEOHandler {
	return &SEOHandler{catalog: catalog, siteURL: siteURL, disallowAll: disallowAll}
}

func (h *SEOHandler) baseURL(r *http.Request) string {
	if h.siteURL != "" {
		return h.siteURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// Sitemap lists the homepage, the listings and every approved entity.
func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	locations, err := h.catalog.Locations(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list sitemap entries", "error", err)
		return
	}

	sections := make([]string, 0, len(model.Kinds))
	for _, k := range model.Kinds {
		sections = append(sections, k.Plural())
	}

	out, err := seo.GenerateSitemap(h.baseURL(r), sections, locations)
	if err != nil {
		logAndInternalError(w, "failed to build sitemap", "error", err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(out)
}

// Robots serves robots.txt.
func (h *SEOHandler) Robots(w http.ResponseWriter, r *http.Request) {
	content := seo.GenerateRobots(seo.RobotsConfig{
		SiteURL:     h.baseURL(r),
		DisallowAll: h.disallowAll,
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write([]byte(content))
}
