// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"net/url"
)

// pageWindow is how many numbered links surround the current page.
const pageWindow = 5

// Pagination is the state of the pagination partial, shared by public
// listings and the console.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int64
	PerPage     int
	Pages       []PageLink

	baseURL string
	query   string
}

// PageLink is one numbered link, or an ellipsis between them.
type PageLink struct {
	Number     int
	URL        string
	IsCurrent  bool
	IsEllipsis bool
}

// BuildPagination creates pagination for a listing at baseURL. Filters in
// query are carried into every link; its page parameter is replaced.
func BuildPagination(currentPage, totalItems, perPage int, baseURL string, query url.Values) Pagination {
	currentPage, totalPages := NormalizePagination(currentPage, totalItems, perPage)

	p := Pagination{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		TotalItems:  int64(totalItems),
		PerPage:     perPage,
		baseURL:     baseURL,
	}

	kept := make(url.Values)
	for k, v := range query {
		if k != "page" && len(v) > 0 && v[0] != "" {
			kept[k] = v
		}
	}
	p.query = kept.Encode()

	start, end := window(currentPage, totalPages)
	if start > 1 {
		p.Pages = append(p.Pages, PageLink{Number: 1, URL: p.PageURL(1)})
		if start > 2 {
			p.Pages = append(p.Pages, PageLink{IsEllipsis: true})
		}
	}
	for i := start; i <= end; i++ {
		p.Pages = append(p.Pages, PageLink{Number: i, URL: p.PageURL(i), IsCurrent: i == currentPage})
	}
	if end < totalPages {
		if end < totalPages-1 {
			p.Pages = append(p.Pages, PageLink{IsEllipsis: true})
		}
		p.Pages = append(p.Pages, PageLink{Number: totalPages, URL: p.PageURL(totalPages)})
	}
	return p
}

// window returns the first and last numbered page around current.
func window(current, total int) (int, int) {
	start := max(current-pageWindow/2, 1)
	end := start + pageWindow - 1
	if end > total {
		end = total
		start = max(end-pageWindow+1, 1)
	}
	return start, end
}

// PageURL returns the link to page n.
func (p Pagination) PageURL(n int) string {
	if p.query != "" {
		return fmt.Sprintf("%s?%s&page=%d", p.baseURL, p.query, n)
	}
	return fmt.Sprintf("%s?page=%d", p.baseURL, n)
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.CurrentPage > 1 }

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool { return p.CurrentPage < p.TotalPages }

// PrevURL returns the link to the previous page.
func (p Pagination) PrevURL() string { return p.PageURL(p.CurrentPage - 1) }

// NextURL returns the link to the next page.
func (p Pagination) NextURL() string { return p.PageURL(p.CurrentPage + 1) }

// ShouldShow reports whether there is more than one page.
func (p Pagination) ShouldShow() bool { return p.TotalPages > 1 }

// PageRange describes the items on the current page, e.g. "21-40".
func (p Pagination) PageRange() string {
	if p.TotalItems == 0 {
		return "0-0"
	}
	start := (p.CurrentPage-1)*p.PerPage + 1
	end := min(p.CurrentPage*p.PerPage, int(p.TotalItems))
	return fmt.Sprintf("%d-%d", start, end)
}
