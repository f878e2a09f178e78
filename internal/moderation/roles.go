// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package moderation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/store"
)

// Roles changes stored roles and the superadmin flag.
type Roles struct {
	db       *sql.DB
	resolver *Resolver
	opts     options
}

// NewRoles creates a Roles service.
func NewRoles(db *sql.DB, resolver *Resolver, opts ...Option) *Roles {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Roles{db: db, resolver: resolver, opts: o}
}

// SetRole overwrites the target's stored role and returns the target's
// effective role afterwards, which stays admin for superadmins. The actor
// must resolve to admin. A change that would leave no effective admin fails
// with ErrLastAdmin.
func (s *Roles) SetRole(ctx context.Context, actor Actor, targetID int64, newRole string) (model.Role, error) {
	if _, err := s.resolver.Authorize(ctx, actor.UserID, ActionSetRole, ""); err != nil {
		return "", err
	}
	role, err := model.ParseRole(newRole)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, newRole)
	}

	updated, previous, err := s.assign(ctx, role, func(q *store.Queries) (store.User, error) {
		return q.GetUserByID(ctx, targetID)
	})
	if err != nil {
		return "", err
	}

	effective := s.resolver.Resolve(updated)
	s.record(ctx, actor, "role changed", map[string]any{
		"target_id": targetID,
		"email":     updated.Email,
		"from":      previous,
		"to":        string(role),
		"effective": string(effective),
	})
	return effective, nil
}

// AssignRole is the operator form of SetRole: the account is found by
// e-mail and no actor is checked. The last admin guard still applies.
func (s *Roles) AssignRole(ctx context.Context, email, newRole string) (store.User, model.Role, error) {
	role, err := model.ParseRole(newRole)
	if err != nil {
		return store.User{}, "", fmt.Errorf("%w: %q", ErrInvalidRole, newRole)
	}

	updated, previous, err := s.assign(ctx, role, func(q *store.Queries) (store.User, error) {
		return q.GetUserByEmail(ctx, normalizeEmail(email))
	})
	if err != nil {
		return store.User{}, "", err
	}

	effective := s.resolver.Resolve(updated)
	s.record(ctx, Actor{}, "role changed", map[string]any{
		"target_id": updated.ID,
		"email":     updated.Email,
		"from":      previous,
		"to":        string(role),
		"effective": string(effective),
	})
	return updated, effective, nil
}

// assign stores role on the account returned by load and reports the
// previous stored role.
func (s *Roles) assign(ctx context.Context, role model.Role, load func(q *store.Queries) (store.User, error)) (store.User, string, error) {
	var previous string
	var updated store.User
	err := store.InTx(ctx, s.db, func(q *store.Queries) error {
		target, err := load(q)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		previous = target.Role

		next := target
		next.Role = string(role)
		if s.resolver.Resolve(target) == model.RoleAdmin && s.resolver.Resolve(next) != model.RoleAdmin {
			if err := s.ensureAnotherAdmin(ctx, q, target.ID); err != nil {
				return err
			}
		}

		now := s.opts.now().UTC()
		if err := q.UpdateUserRole(ctx, store.UpdateUserRoleParams{
			Role:      string(role),
			UpdatedAt: now,
			ID:        target.ID,
		}); err != nil {
			return err
		}
		next.UpdatedAt = now
		updated = next
		return nil
	})
	return updated, previous, err
}

// SetSuperadmin grants or revokes the provisioning flag by e-mail. It is
// an operator action with no actor; revoking the last effective admin fails
// with ErrLastAdmin.
func (s *Roles) SetSuperadmin(ctx context.Context, email string, on bool) (store.User, error) {
	var updated store.User
	err := store.InTx(ctx, s.db, func(q *store.Queries) error {
		target, err := q.GetUserByEmail(ctx, normalizeEmail(email))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		next := target
		next.IsSuperadmin = on
		if s.resolver.Resolve(target) == model.RoleAdmin && s.resolver.Resolve(next) != model.RoleAdmin {
			if err := s.ensureAnotherAdmin(ctx, q, target.ID); err != nil {
				return err
			}
		}

		now := s.opts.now().UTC()
		if err := q.SetUserSuperadmin(ctx, store.SetUserSuperadminParams{
			IsSuperadmin: on,
			UpdatedAt:    now,
			ID:           target.ID,
		}); err != nil {
			return err
		}
		next.UpdatedAt = now
		updated = next
		return nil
	})
	if err != nil {
		return store.User{}, err
	}

	s.record(ctx, Actor{}, "superadmin flag changed", map[string]any{
		"target_id":     updated.ID,
		"email":         updated.Email,
		"is_superadmin": on,
	})
	return updated, nil
}

// CheckRemovable returns ErrLastAdmin when deleting the account would
// leave no effective admin.
func (s *Roles) CheckRemovable(ctx context.Context, userID int64) error {
	q := store.New(s.db)
	u, err := q.GetUserByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	if s.resolver.Resolve(u) != model.RoleAdmin {
		return nil
	}
	return s.ensureAnotherAdmin(ctx, q, u.ID)
}

// ensureAnotherAdmin fails unless some account other than excludeID
// resolves to admin.
func (s *Roles) ensureAnotherAdmin(ctx context.Context, q *store.Queries, excludeID int64) error {
	privileged, err := q.ListPrivilegedUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range privileged {
		if u.ID != excludeID && s.resolver.Resolve(u) == model.RoleAdmin {
			return nil
		}
	}
	for email := range s.resolver.superadmins {
		u, err := q.GetUserByEmail(ctx, email)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		if u.ID != excludeID {
			return nil
		}
	}
	return ErrLastAdmin
}

func (s *Roles) record(ctx context.Context, actor Actor, message string, metadata map[string]any) {
	if s.opts.audit == nil {
		return
	}
	if err := s.opts.audit.LogModerationEvent(ctx, message, actor.UserID, actor.IP, metadata); err != nil {
		slog.Error("failed to record moderation event", "error", err, "message", message)
	}
}
