// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/olegiv/oasis/internal/cache"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/seo"
	"github.com/olegiv/oasis/internal/store"
)

// DefaultPerPage is the public listing page size.
const DefaultPerPage = 20

// htmlSanitizer strips scripts and event handlers from rendered markdown.
var htmlSanitizer = bluemonday.UGCPolicy()

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// PublicEntity is an approved entity as shown to visitors.
type PublicEntity struct {
	ID          int64          `json:"id"`
	Kind        string         `json:"kind"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Body        string         `json:"body"`
	BodyHTML    string         `json:"body_html"`
	Category    string         `json:"category"`
	Language    string         `json:"language"`
	Extra       map[string]any `json:"extra,omitempty"`
	AuthorID    int64          `json:"author_id"`
	CreatedAt   time.Time      `json:"created_at"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
}

// EntityPage is one page of a public listing.
type EntityPage struct {
	Items   []PublicEntity `json:"items"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

// Catalog serves approved entities to visitors and unfiltered listings to
// moderators. Only the public side is cached.
type Catalog struct {
	queries *store.Queries
	pages   *cache.TypedCache[EntityPage]
	items   *cache.TypedCache[PublicEntity]
	perPage int
}

// NewCatalog creates a Catalog. A nil cache disables caching.
func NewCatalog(db *sql.DB, c cache.Cache, ttl time.Duration) *Catalog {
	cat := &Catalog{queries: store.New(db), perPage: DefaultPerPage}
	if c != nil {
		cat.pages = cache.NewTypedCache[EntityPage](c, ttl)
		cat.items = cache.NewTypedCache[PublicEntity](c, ttl)
	}
	return cat
}

func kindPrefix(kind model.EntityKind) string {
	return "catalog:" + string(kind) + ":"
}

// ListApproved returns a page of approved entities of kind, optionally
// filtered by category. Pages start at 1.
func (c *Catalog) ListApproved(ctx context.Context, kind model.EntityKind, category string, page int) (EntityPage, error) {
	if page < 1 {
		page = 1
	}
	load := func() (EntityPage, error) {
		rows, err := c.queries.ListApprovedEntities(ctx, store.ListApprovedEntitiesParams{
			Kind:     string(kind),
			Category: category,
			Limit:    int64(c.perPage),
			Offset:   int64((page - 1) * c.perPage),
		})
		if err != nil {
			return EntityPage{}, fmt.Errorf("listing %s: %w", kind.Plural(), err)
		}
		total, err := c.queries.CountApprovedEntities(ctx, store.CountApprovedEntitiesParams{
			Kind:     string(kind),
			Category: category,
		})
		if err != nil {
			return EntityPage{}, err
		}
		out := EntityPage{Items: make([]PublicEntity, 0, len(rows)), Total: total, Page: page, PerPage: c.perPage}
		for _, e := range rows {
			out.Items = append(out.Items, toPublic(e))
		}
		return out, nil
	}

	if c.pages == nil {
		return load()
	}
	key := fmt.Sprintf("%slist:%s:%d", kindPrefix(kind), category, page)
	return c.pages.GetOrLoad(ctx, key, load)
}

// GetApproved returns one approved entity by slug. Pending, rejected and
// deleted entities are reported as moderation.ErrEntityNotFound.
func (c *Catalog) GetApproved(ctx context.Context, kind model.EntityKind, slug string) (PublicEntity, error) {
	load := func() (PublicEntity, error) {
		e, err := c.queries.GetApprovedEntityBySlug(ctx, store.GetApprovedEntityBySlugParams{Kind: string(kind), Slug: slug})
		if errors.Is(err, sql.ErrNoRows) {
			return PublicEntity{}, moderation.ErrEntityNotFound
		}
		if err != nil {
			return PublicEntity{}, err
		}
		return toPublic(e), nil
	}

	if c.items == nil {
		return load()
	}
	return c.items.GetOrLoad(ctx, kindPrefix(kind)+"slug:"+slug, load)
}

// InvalidateKind drops every cached listing and item of kind.
func (c *Catalog) InvalidateKind(ctx context.Context, kind model.EntityKind) {
	if c.pages == nil {
		return
	}
	if err := c.pages.InvalidatePrefix(ctx, kindPrefix(kind)); err != nil {
		slog.Warn("catalog cache invalidation failed", "category", model.EventCategoryCache, "kind", kind, "error", err)
	}
}

// Locations returns the public address of every approved entity, grouped
// by kind. Never cached.
func (c *Catalog) Locations(ctx context.Context) ([]seo.Location, error) {
	rows, err := c.queries.ListApprovedLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing approved entities: %w", err)
	}
	out := make([]seo.Location, 0, len(rows))
	for _, l := range rows {
		kind, err := model.ParseKind(l.Kind)
		if err != nil {
			continue
		}
		out = append(out, seo.Location{Section: kind.Plural(), Slug: l.Slug, UpdatedAt: l.UpdatedAt})
	}
	return out, nil
}

// ListByStatus returns entities for the moderation queue. Empty kind or
// status matches all. Never cached.
func (c *Catalog) ListByStatus(ctx context.Context, kind, status string, limit, offset int64) ([]store.Entity, int64, error) {
	rows, err := c.queries.ListEntitiesByStatus(ctx, store.ListEntitiesByStatusParams{
		Kind:   kind,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, 0, err
	}
	total, err := c.queries.CountEntitiesByStatus(ctx, store.CountEntitiesByStatusParams{Kind: kind, Status: status})
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Counts returns entity counts keyed by kind then status, with zero entries
// for every combination.
func (c *Catalog) Counts(ctx context.Context) (map[model.EntityKind]map[model.Status]int64, error) {
	out := make(map[model.EntityKind]map[model.Status]int64, len(model.Kinds))
	for _, k := range model.Kinds {
		out[k] = make(map[model.Status]int64, len(model.Statuses))
		for _, s := range model.Statuses {
			out[k][s] = 0
		}
	}

	rows, err := c.queries.CountEntitiesGrouped(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if m, ok := out[model.EntityKind(r.Kind)]; ok {
			m[model.Status(r.Status)] = r.Count
		}
	}
	return out, nil
}

// Get returns any entity by id, whatever its status.
func (c *Catalog) Get(ctx context.Context, id int64) (store.Entity, error) {
	e, err := c.queries.GetEntityByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Entity{}, moderation.ErrEntityNotFound
	}
	return e, err
}

// RenderMarkdown converts markdown to sanitized HTML.
func RenderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}
	return htmlSanitizer.Sanitize(buf.String())
}

func toPublic(e store.Entity) PublicEntity {
	p := PublicEntity{
		ID:        e.ID,
		Kind:      e.Kind,
		Title:     e.Title,
		Slug:      e.Slug,
		Body:      e.Body,
		BodyHTML:  RenderMarkdown(e.Body),
		Category:  e.Category,
		Language:  e.Language,
		AuthorID:  e.AuthorID,
		CreatedAt: e.CreatedAt,
	}
	if e.ModeratedAt.Valid {
		t := e.ModeratedAt.Time
		p.PublishedAt = &t
	}
	if e.Extra != "" && e.Extra != "{}" {
		_ = json.Unmarshal([]byte(e.Extra), &p.Extra)
	}
	return p
}

var _ moderation.Invalidator = (*Catalog)(nil)
