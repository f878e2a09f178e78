// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/store"
	"github.com/olegiv/oasis/internal/util"
	"github.com/olegiv/oasis/internal/validation"
)

// PostInput is a blog article, research article or discussion post.
type PostInput struct {
	Title    string `json:"title" validate:"required,notblank,min=3,max=200"`
	Body     string `json:"body" validate:"required,notblank,max=100000"`
	Category string `json:"category" validate:"required"`
	Language string `json:"language" validate:"omitempty,lang"`
	Summary  string `json:"summary" validate:"max=500"`
}

// CourseInput is a course listing.
type CourseInput struct {
	Title       string `json:"title" validate:"required,notblank,min=3,max=200"`
	Description string `json:"description" validate:"max=20000"`
	Category    string `json:"category" validate:"required"`
	Language    string `json:"language" validate:"omitempty,lang"`
	Level       string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Duration    string `json:"duration" validate:"max=50"`
	URL         string `json:"url" validate:"omitempty,http_url"`
}

// ResearcherInput is a researcher profile.
type ResearcherInput struct {
	Name        string `json:"name" validate:"required,notblank,min=3,max=200"`
	Bio         string `json:"bio" validate:"max=20000"`
	Field       string `json:"field" validate:"required"`
	Language    string `json:"language" validate:"omitempty,lang"`
	Affiliation string `json:"affiliation" validate:"max=200"`
	Website     string `json:"website" validate:"omitempty,http_url"`
}

// Submissions records user contributions. Every new entity starts pending
// regardless of who submits it.
type Submissions struct {
	db      *sql.DB
	queries *store.Queries
	events  *EventService
	now     func() time.Time
}

// NewSubmissions creates a Submissions service. events may be nil.
func NewSubmissions(db *sql.DB, events *EventService) *Submissions {
	return &Submissions{
		db:      db,
		queries: store.New(db),
		events:  events,
		now:     time.Now,
	}
}

// draft is the kind-independent form of an intake request.
type draft struct {
	kind     model.EntityKind
	title    string
	body     string
	category string
	language string
	extra    map[string]any
}

// SubmitPost stores a pending post authored by authorID.
func (s *Submissions) SubmitPost(ctx context.Context, authorID int64, in PostInput) (store.Entity, error) {
	verr := validation.NewError()
	validation.Collect(verr, in)
	checkCategory(verr, model.KindPost, in.Category, "category")
	if err := verr.OrNil(); err != nil {
		return store.Entity{}, err
	}
	return s.create(ctx, authorID, draft{
		kind:     model.KindPost,
		title:    in.Title,
		body:     in.Body,
		category: in.Category,
		language: in.Language,
		extra:    compact(map[string]any{"summary": in.Summary}),
	})
}

// SubmitCourse stores a pending course authored by authorID.
func (s *Submissions) SubmitCourse(ctx context.Context, authorID int64, in CourseInput) (store.Entity, error) {
	verr := validation.NewError()
	validation.Collect(verr, in)
	checkCategory(verr, model.KindCourse, in.Category, "category")
	if err := verr.OrNil(); err != nil {
		return store.Entity{}, err
	}
	return s.create(ctx, authorID, draft{
		kind:     model.KindCourse,
		title:    in.Title,
		body:     in.Description,
		category: in.Category,
		language: in.Language,
		extra: compact(map[string]any{
			"level":    in.Level,
			"duration": in.Duration,
			"url":      in.URL,
		}),
	})
}

// SubmitResearcher stores a pending researcher profile authored by authorID.
func (s *Submissions) SubmitResearcher(ctx context.Context, authorID int64, in ResearcherInput) (store.Entity, error) {
	verr := validation.NewError()
	validation.Collect(verr, in)
	checkCategory(verr, model.KindResearcher, in.Field, "field")
	if err := verr.OrNil(); err != nil {
		return store.Entity{}, err
	}
	return s.create(ctx, authorID, draft{
		kind:     model.KindResearcher,
		title:    in.Name,
		body:     in.Bio,
		category: in.Field,
		language: in.Language,
		extra: compact(map[string]any{
			"affiliation": in.Affiliation,
			"website":     in.Website,
		}),
	})
}

// ListByAuthor returns the author's own entities in every status.
func (s *Submissions) ListByAuthor(ctx context.Context, authorID int64) ([]store.Entity, error) {
	return s.queries.ListEntitiesByAuthor(ctx, authorID)
}

func (s *Submissions) create(ctx context.Context, authorID int64, d draft) (store.Entity, error) {
	if authorID <= 0 {
		return store.Entity{}, moderation.ErrAccountNotFound
	}
	if _, err := s.queries.GetUserByID(ctx, authorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Entity{}, moderation.ErrAccountNotFound
		}
		return store.Entity{}, fmt.Errorf("loading author: %w", err)
	}

	lang := d.language
	if lang == "" {
		lang = "en"
	}

	extra := "{}"
	if len(d.extra) > 0 {
		b, err := json.Marshal(d.extra)
		if err != nil {
			return store.Entity{}, err
		}
		extra = string(b)
	}

	slug, err := util.UniqueSlug(util.Slugify(d.title), string(d.kind), func(candidate string) (bool, error) {
		n, err := s.queries.EntitySlugExists(ctx, store.EntitySlugExistsParams{Kind: string(d.kind), Slug: candidate})
		return n > 0, err
	})
	if err != nil {
		return store.Entity{}, fmt.Errorf("generating slug: %w", err)
	}

	now := s.now().UTC()
	ent, err := s.queries.CreateEntity(ctx, store.CreateEntityParams{
		Kind:      string(d.kind),
		AuthorID:  authorID,
		Title:     strings.TrimSpace(d.title),
		Slug:      slug,
		Body:      d.body,
		Category:  d.category,
		Language:  lang,
		Extra:     extra,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return store.Entity{}, fmt.Errorf("creating %s: %w", d.kind, err)
	}

	slog.Info("submission received", "kind", d.kind, "entity_id", ent.ID, "author_id", authorID)
	if s.events != nil {
		_ = s.events.LogInfo(ctx, model.EventCategoryUser, "submission received", &authorID, "", map[string]any{
			"entity_id": ent.ID,
			"kind":      string(d.kind),
		})
	}
	return ent, nil
}

func checkCategory(verr *validation.Error, kind model.EntityKind, category, field string) {
	if category != "" && !model.IsValidCategory(kind, category) {
		verr.Add(field, "must be one of: "+strings.Join(model.Categories[kind], ", "))
	}
}

// compact drops empty string values.
func compact(m map[string]any) map[string]any {
	for k, v := range m {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			delete(m, k)
		}
	}
	return m
}
