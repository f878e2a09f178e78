// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package moderation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/store"
)

// Actor identifies who performs an operation. Its role is resolved from
// storage on every call.
type Actor struct {
	UserID int64
	IP     string
}

// Auditor records moderation events.
type Auditor interface {
	LogModerationEvent(ctx context.Context, message string, userID int64, ipAddress string, metadata map[string]any) error
}

// Invalidator drops cached public listings of a kind.
type Invalidator interface {
	InvalidateKind(ctx context.Context, kind model.EntityKind)
}

// Option configures a Lifecycle or Roles.
type Option func(*options)

type options struct {
	audit       Auditor
	invalidator Invalidator
	now         func() time.Time
}

func defaultOptions() options {
	return options{now: time.Now}
}

// WithAuditor records every successful change through a.
func WithAuditor(a Auditor) Option {
	return func(o *options) { o.audit = a }
}

// WithInvalidator notifies inv after every entity change.
func WithInvalidator(inv Invalidator) Option {
	return func(o *options) { o.invalidator = inv }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Lifecycle moves moderated entities between states.
//
// pending -> approved | rejected. Re-applying the current terminal state is
// a no-op. Delete is allowed from any state and is final.
type Lifecycle struct {
	queries  *store.Queries
	resolver *Resolver
	opts     options
}

// NewLifecycle creates a Lifecycle.
func NewLifecycle(db *sql.DB, resolver *Resolver, opts ...Option) *Lifecycle {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Lifecycle{queries: store.New(db), resolver: resolver, opts: o}
}

// Approve makes the entity publicly visible. expectedVersion 0 accepts the
// current version.
func (l *Lifecycle) Approve(ctx context.Context, actor Actor, id, expectedVersion int64) (store.Entity, error) {
	return l.transition(ctx, actor, id, expectedVersion, model.StatusApproved, ActionApprove)
}

// Reject hides the entity from public listings and keeps it for history.
func (l *Lifecycle) Reject(ctx context.Context, actor Actor, id, expectedVersion int64) (store.Entity, error) {
	return l.transition(ctx, actor, id, expectedVersion, model.StatusRejected, ActionReject)
}

func (l *Lifecycle) transition(ctx context.Context, actor Actor, id, expectedVersion int64, target model.Status, action Action) (store.Entity, error) {
	role, err := l.resolver.Authorize(ctx, actor.UserID, action, "")
	if err != nil {
		return store.Entity{}, err
	}

	ent, err := l.load(ctx, id)
	if err != nil {
		return store.Entity{}, err
	}
	kind, err := model.ParseKind(ent.Kind)
	if err != nil {
		return store.Entity{}, fmt.Errorf("entity %d: %w", id, err)
	}
	if !Can(role, action, kind) {
		return store.Entity{}, ErrForbidden
	}

	current, err := model.ParseStatus(ent.Status)
	if err != nil {
		return store.Entity{}, fmt.Errorf("entity %d: %w", id, err)
	}
	if current == target {
		return ent, nil
	}
	if !current.CanTransition(target) {
		return store.Entity{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}
	if expectedVersion > 0 && expectedVersion != ent.Version {
		return store.Entity{}, ErrVersionConflict
	}

	now := l.opts.now().UTC()
	rows, err := l.queries.TransitionEntity(ctx, store.TransitionEntityParams{
		Status:          string(target),
		ModeratedBy:     sql.NullInt64{Int64: actor.UserID, Valid: true},
		ModeratedAt:     sql.NullTime{Time: now, Valid: true},
		UpdatedAt:       now,
		ID:              id,
		ExpectedVersion: ent.Version,
	})
	if err != nil {
		return store.Entity{}, fmt.Errorf("updating entity %d: %w", id, err)
	}
	if rows == 0 {
		// Lost a race: either deleted or transitioned by someone else.
		if _, err := l.load(ctx, id); err != nil {
			return store.Entity{}, err
		}
		return store.Entity{}, ErrVersionConflict
	}

	updated, err := l.load(ctx, id)
	if err != nil {
		return store.Entity{}, err
	}

	l.afterChange(ctx, actor, kind, "entity "+string(target), map[string]any{
		"entity_id": id,
		"kind":      string(kind),
		"from":      string(current),
		"to":        string(target),
		"version":   updated.Version,
	})
	return updated, nil
}

// Delete permanently removes the entity. Admin only.
func (l *Lifecycle) Delete(ctx context.Context, actor Actor, id int64) error {
	if _, err := l.resolver.Authorize(ctx, actor.UserID, ActionDelete, ""); err != nil {
		return err
	}

	ent, err := l.load(ctx, id)
	if err != nil {
		return err
	}

	rows, err := l.queries.DeleteEntity(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting entity %d: %w", id, err)
	}
	if rows == 0 {
		return ErrEntityNotFound
	}

	kind := model.EntityKind(ent.Kind)
	l.afterChange(ctx, actor, kind, "entity deleted", map[string]any{
		"entity_id": id,
		"kind":      ent.Kind,
		"status":    ent.Status,
		"title":     ent.Title,
	})
	return nil
}

func (l *Lifecycle) load(ctx context.Context, id int64) (store.Entity, error) {
	ent, err := l.queries.GetEntityByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Entity{}, ErrEntityNotFound
	}
	if err != nil {
		return store.Entity{}, fmt.Errorf("loading entity %d: %w", id, err)
	}
	return ent, nil
}

// afterChange runs once a write has committed. Its failures are logged and
// never undo the change.
func (l *Lifecycle) afterChange(ctx context.Context, actor Actor, kind model.EntityKind, message string, metadata map[string]any) {
	if l.opts.invalidator != nil {
		l.opts.invalidator.InvalidateKind(ctx, kind)
	}
	if l.opts.audit != nil {
		if err := l.opts.audit.LogModerationEvent(ctx, message, actor.UserID, actor.IP, metadata); err != nil {
			slog.Error("failed to record moderation event", "error", err, "message", message)
		}
	}
}
