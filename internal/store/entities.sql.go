// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const entityColumns = `id, kind, author_id, title, slug, body, category, language, extra,
	status, version, moderated_by, moderated_at, created_at, updated_at`

func scanEntity(row rowScanner) (Entity, error) {
	var i Entity
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.AuthorID,
		&i.Title,
		&i.Slug,
		&i.Body,
		&i.Category,
		&i.Language,
		&i.Extra,
		&i.Status,
		&i.Version,
		&i.ModeratedBy,
		&i.ModeratedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanEntities(rows *sql.Rows) ([]Entity, error) {
	defer rows.Close()
	items := []Entity{}
	for rows.Next() {
		i, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createEntity = `INSERT INTO entities (
	kind, author_id, title, slug, body, category, language, extra, status, version, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'pending', 1, ?, ?)
RETURNING ` + entityColumns

// CreateEntityParams has no status field: every entity is inserted pending.
type CreateEntityParams struct {
	Kind      string
	AuthorID  int64
	Title     string
	Slug      string
	Body      string
	Category  string
	Language  string
	Extra     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateEntity(ctx context.Context, arg CreateEntityParams) (Entity, error) {
	extra := arg.Extra
	if extra == "" {
		extra = "{}"
	}
	row := q.db.QueryRowContext(ctx, createEntity,
		arg.Kind,
		arg.AuthorID,
		arg.Title,
		arg.Slug,
		arg.Body,
		arg.Category,
		arg.Language,
		extra,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanEntity(row)
}

const getEntityByID = `SELECT ` + entityColumns + ` FROM entities WHERE id = ?`

func (q *Queries) GetEntityByID(ctx context.Context, id int64) (Entity, error) {
	return scanEntity(q.db.QueryRowContext(ctx, getEntityByID, id))
}

const getApprovedEntityBySlug = `SELECT ` + entityColumns + ` FROM entities
WHERE kind = ? AND slug = ? AND status = 'approved'`

type GetApprovedEntityBySlugParams struct {
	Kind string
	Slug string
}

func (q *Queries) GetApprovedEntityBySlug(ctx context.Context, arg GetApprovedEntityBySlugParams) (Entity, error) {
	return scanEntity(q.db.QueryRowContext(ctx, getApprovedEntityBySlug, arg.Kind, arg.Slug))
}

const entitySlugExists = `SELECT COUNT(*) FROM entities WHERE kind = ? AND slug = ?`

type EntitySlugExistsParams struct {
	Kind string
	Slug string
}

func (q *Queries) EntitySlugExists(ctx context.Context, arg EntitySlugExistsParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, entitySlugExists, arg.Kind, arg.Slug).Scan(&count)
	return count, err
}

const listEntitiesByStatus = `SELECT ` + entityColumns + ` FROM entities
WHERE (? = '' OR kind = ?) AND (? = '' OR status = ?)
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

// ListEntitiesByStatusParams filters the moderation queue. Empty Kind or
// Status matches every value.
type ListEntitiesByStatusParams struct {
	Kind   string
	Status string
	Limit  int64
	Offset int64
}

func (q *Queries) ListEntitiesByStatus(ctx context.Context, arg ListEntitiesByStatusParams) ([]Entity, error) {
	rows, err := q.db.QueryContext(ctx, listEntitiesByStatus,
		arg.Kind, arg.Kind,
		arg.Status, arg.Status,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return scanEntities(rows)
}

const countEntitiesByStatus = `SELECT COUNT(*) FROM entities
WHERE (? = '' OR kind = ?) AND (? = '' OR status = ?)`

type CountEntitiesByStatusParams struct {
	Kind   string
	Status string
}

func (q *Queries) CountEntitiesByStatus(ctx context.Context, arg CountEntitiesByStatusParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countEntitiesByStatus, arg.Kind, arg.Kind, arg.Status, arg.Status).Scan(&count)
	return count, err
}

const listApprovedEntities = `SELECT ` + entityColumns + ` FROM entities
WHERE kind = ? AND status = 'approved' AND (? = '' OR category = ?)
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

type ListApprovedEntitiesParams struct {
	Kind     string
	Category string
	Limit    int64
	Offset   int64
}

func (q *Queries) ListApprovedEntities(ctx context.Context, arg ListApprovedEntitiesParams) ([]Entity, error) {
	rows, err := q.db.QueryContext(ctx, listApprovedEntities,
		arg.Kind,
		arg.Category, arg.Category,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return scanEntities(rows)
}

const countApprovedEntities = `SELECT COUNT(*) FROM entities
WHERE kind = ? AND status = 'approved' AND (? = '' OR category = ?)`

type CountApprovedEntitiesParams struct {
	Kind     string
	Category string
}

func (q *Queries) CountApprovedEntities(ctx context.Context, arg CountApprovedEntitiesParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countApprovedEntities, arg.Kind, arg.Category, arg.Category).Scan(&count)
	return count, err
}

const listEntitiesByAuthor = `SELECT ` + entityColumns + ` FROM entities
WHERE author_id = ? ORDER BY created_at DESC, id DESC`

func (q *Queries) ListEntitiesByAuthor(ctx context.Context, authorID int64) ([]Entity, error) {
	rows, err := q.db.QueryContext(ctx, listEntitiesByAuthor, authorID)
	if err != nil {
		return nil, err
	}
	return scanEntities(rows)
}

const countEntitiesGrouped = `SELECT kind, status, COUNT(*) FROM entities GROUP BY kind, status`

type CountEntitiesGroupedRow struct {
	Kind   string
	Status string
	Count  int64
}

func (q *Queries) CountEntitiesGrouped(ctx context.Context) ([]CountEntitiesGroupedRow, error) {
	rows, err := q.db.QueryContext(ctx, countEntitiesGrouped)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountEntitiesGroupedRow{}
	for rows.Next() {
		var i CountEntitiesGroupedRow
		if err := rows.Scan(&i.Kind, &i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const transitionEntity = `UPDATE entities
SET status = ?, version = version + 1, moderated_by = ?, moderated_at = ?, updated_at = ?
WHERE id = ? AND version = ?`

// TransitionEntityParams carries the version the caller observed; the update
// only applies when the row still has that version.
type TransitionEntityParams struct {
	Status          string
	ModeratedBy     sql.NullInt64
	ModeratedAt     sql.NullTime
	UpdatedAt       time.Time
	ID              int64
	ExpectedVersion int64
}

// TransitionEntity returns the number of rows changed: 0 means the row is
// gone or its version moved on.
func (q *Queries) TransitionEntity(ctx context.Context, arg TransitionEntityParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, transitionEntity,
		arg.Status,
		arg.ModeratedBy,
		arg.ModeratedAt,
		arg.UpdatedAt,
		arg.ID,
		arg.ExpectedVersion,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteEntity = `DELETE FROM entities WHERE id = ?`

func (q *Queries) DeleteEntity(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteEntity, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteEntitiesByAuthor = `DELETE FROM entities WHERE author_id = ?`

func (q *Queries) DeleteEntitiesByAuthor(ctx context.Context, authorID int64) error {
	_, err := q.db.ExecContext(ctx, deleteEntitiesByAuthor, authorID)
	return err
}

const listApprovedLocations = `SELECT kind, slug, updated_at FROM entities
WHERE status = 'approved' ORDER BY kind, updated_at DESC, id DESC`

// ApprovedLocation is the public address of an approved entity.
type ApprovedLocation struct {
	Kind      string
	Slug      string
	UpdatedAt time.Time
}

// ListApprovedLocations returns every approved entity for the sitemap.
func (q *Queries) ListApprovedLocations(ctx context.Context) ([]ApprovedLocation, error) {
	rows, err := q.db.QueryContext(ctx, listApprovedLocations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ApprovedLocation{}
	for rows.Next() {
		var l ApprovedLocation
		if err := rows.Scan(&l.Kind, &l.Slug, &l.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}
