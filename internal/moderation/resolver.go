// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package moderation implements role resolution, the moderated entity
// lifecycle and role assignment.
package moderation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/store"
)

// Resolver computes effective roles. The superadmin flag and the configured
// e-mail allow-list both resolve to admin; neither is written back to the
// stored role.
type Resolver struct {
	queries     *store.Queries
	superadmins map[string]struct{}
}

// NewResolver creates a Resolver. Allow-list entries are compared
// case-insensitively.
func NewResolver(db *sql.DB, superadminEmails []string) *Resolver {
	set := make(map[string]struct{}, len(superadminEmails))
	for _, e := range superadminEmails {
		if e = normalizeEmail(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return &Resolver{queries: store.New(db), superadmins: set}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsSuperadmin reports whether u is an admin regardless of its stored role.
func (r *Resolver) IsSuperadmin(u store.User) bool {
	if u.IsSuperadmin {
		return true
	}
	_, ok := r.superadmins[normalizeEmail(u.Email)]
	return ok
}

// Resolve returns the effective role of an already loaded account.
func (r *Resolver) Resolve(u store.User) model.Role {
	if r.IsSuperadmin(u) {
		return model.RoleAdmin
	}
	return model.RoleOrDefault(u.Role)
}

// EffectiveRole reads the account and returns its effective role.
func (r *Resolver) EffectiveRole(ctx context.Context, userID int64) (model.Role, error) {
	u, err := r.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return r.Resolve(u), nil
}

func (r *Resolver) loadUser(ctx context.Context, userID int64) (store.User, error) {
	if userID <= 0 {
		return store.User{}, ErrAccountNotFound
	}
	u, err := r.queries.GetUserByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrAccountNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("loading account %d: %w", userID, err)
	}
	return u, nil
}

// Authorize resolves the actor and checks the action against the policy.
func (r *Resolver) Authorize(ctx context.Context, actorID int64, action Action, kind model.EntityKind) (model.Role, error) {
	role, err := r.EffectiveRole(ctx, actorID)
	if errors.Is(err, ErrAccountNotFound) {
		return "", fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	if err != nil {
		return "", err
	}
	if !Can(role, action, kind) {
		return role, ErrForbidden
	}
	return role, nil
}
