// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds the crawler-facing documents: sitemap.xml and robots.txt.
package seo

import (
	"encoding/xml"
	"net/url"
	"strings"
	"time"
)

// XMLNamespace is the sitemap XML namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

// Change frequencies used by the sitemap.
const (
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
)

// SitemapURL represents a single URL entry in the sitemap.
type SitemapURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

// Sitemap represents the complete sitemap document.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// Location is one approved entity page.
type Location struct {
	Section   string // listing path segment, e.g. "posts"
	Slug      string
	UpdatedAt time.Time
}

// GenerateSitemap builds the sitemap for siteURL: the homepage, one listing
// per section and every location. A listing is dated by its most recently
// updated location.
func GenerateSitemap(siteURL string, sections []string, locations []Location) ([]byte, error) {
	base := strings.TrimSuffix(siteURL, "/")

	latest := make(map[string]time.Time, len(sections))
	for _, l := range locations {
		if l.UpdatedAt.After(latest[l.Section]) {
			latest[l.Section] = l.UpdatedAt
		}
	}

	urls := make([]SitemapURL, 0, 1+len(sections)+len(locations))
	urls = append(urls, SitemapURL{Loc: base + "/", ChangeFreq: ChangeFreqDaily, Priority: "1.0"})
	for _, s := range sections {
		urls = append(urls, SitemapURL{
			Loc:        base + "/" + s,
			LastMod:    lastMod(latest[s]),
			ChangeFreq: ChangeFreqWeekly,
			Priority:   "0.6",
		})
	}
	for _, l := range locations {
		urls = append(urls, SitemapURL{
			Loc:        base + "/" + l.Section + "/" + url.PathEscape(l.Slug),
			LastMod:    lastMod(l.UpdatedAt),
			ChangeFreq: ChangeFreqMonthly,
			Priority:   "0.8",
		})
	}

	xmlBytes, err := xml.MarshalIndent(Sitemap{XMLNS: XMLNamespace, URLs: urls}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), xmlBytes...), nil
}

func lastMod(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
