// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// CalculateTotalPages returns the number of pages needed for totalItems,
// never less than 1.
func CalculateTotalPages(totalItems, perPage int) int {
	if perPage <= 0 || totalItems <= 0 {
		return 1
	}
	return (totalItems + perPage - 1) / perPage
}

// NormalizePagination clamps page to [1, totalPages].
func NormalizePagination(page, totalItems, perPage int) (normalizedPage, totalPages int) {
	totalPages = CalculateTotalPages(totalItems, perPage)
	return min(max(page, 1), totalPages), totalPages
}

// ParsePageParam parses the "page" query parameter. Missing, invalid and
// non-positive values give 1.
func ParsePageParam(r *http.Request) int {
	return queryInt(r, "page", 1, 1, 0)
}

// ParsePerPageParam parses the "per_page" query parameter. Values outside
// [1, maxPerPage] give defaultPerPage.
func ParsePerPageParam(r *http.Request, defaultPerPage, maxPerPage int) int {
	return queryInt(r, "per_page", defaultPerPage, 1, maxPerPage)
}

// queryInt parses an integer query parameter, falling back to def when it
// is missing, malformed or outside [lo, hi]. A zero hi means no upper bound.
func queryInt(r *http.Request, name string, def, lo, hi int) int {
	val, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || val < lo || (hi > 0 && val > hi) {
		return def
	}
	return val
}

// ParseIDParam parses the {id} URL parameter.
func ParseIDParam(r *http.Request) (int64, error) {
	str := chi.URLParam(r, "id")
	if str == "" {
		return 0, fmt.Errorf("missing id parameter")
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id parameter %q: %w", str, err)
	}
	return val, nil
}
