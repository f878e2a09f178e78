// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package moderation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/store"
	"github.com/olegiv/oasis/internal/testutil"
)

func TestSetRolePromotesUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.roles.SetRole(ctx, f.actor(f.admin), f.user.ID, "moderator")
	require.NoError(t, err)
	assert.Equal(t, model.RoleModerator, got)

	for i := 0; i < 2; i++ {
		role, err := f.resolver.EffectiveRole(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RoleModerator, role)
	}

	require.Equal(t, 1, f.audit.count())
	assert.Equal(t, "role changed", f.audit.events[0].message)
	assert.Equal(t, "user", f.audit.events[0].metadata["from"])
}

func TestSetRoleRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.roles.SetRole(ctx, f.actor(f.user), f.user.ID, "admin")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.roles.SetRole(ctx, f.actor(f.moderator), f.user.ID, "moderator")
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := store.New(f.db).GetUserByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "user", stored.Role)
	assert.Equal(t, 0, f.audit.count())
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.roles.SetRole(context.Background(), f.actor(f.admin), f.user.ID, "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestSetRoleMissingTarget(t *testing.T) {
	f := newFixture(t)
	_, err := f.roles.SetRole(context.Background(), f.actor(f.admin), 9999, "user")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSoleAdminCannotDemoteSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.roles.SetRole(ctx, f.actor(f.admin), f.admin.ID, "user")
	assert.ErrorIs(t, err, ErrLastAdmin)

	role, err := f.resolver.EffectiveRole(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)

	// With a second admin the demotion goes through.
	_, err = f.roles.SetRole(ctx, f.actor(f.admin), f.moderator.ID, "admin")
	require.NoError(t, err)
	got, err := f.roles.SetRole(ctx, f.actor(f.admin), f.admin.ID, "user")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, got)
}

func TestAllowListedAdminCountsAsOtherAdmin(t *testing.T) {
	f := newFixture(t, "owner@example.com")
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "owner@example.com", "user")

	got, err := f.roles.SetRole(ctx, f.actor(f.admin), f.admin.ID, "moderator")
	require.NoError(t, err)
	assert.Equal(t, model.RoleModerator, got)
}

func TestDemotingSuperadminKeepsEffectiveAdmin(t *testing.T) {
	f := newFixture(t, "owner@example.com")
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner@example.com", "admin")

	got, err := f.roles.SetRole(ctx, f.actor(f.admin), owner.ID, "user")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, got)

	stored, err := store.New(f.db).GetUserByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "user", stored.Role)
}

func TestAssignRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, got, err := f.roles.AssignRole(ctx, " USER@example.com ", "moderator")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, u.ID)
	assert.Equal(t, model.RoleModerator, got)
	require.Equal(t, 1, f.audit.count())
	assert.Equal(t, int64(0), f.audit.events[0].userID)

	_, _, err = f.roles.AssignRole(ctx, "nobody@example.com", "user")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, _, err = f.roles.AssignRole(ctx, "user@example.com", "root")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, _, err = f.roles.AssignRole(ctx, "admin@example.com", "user")
	assert.ErrorIs(t, err, ErrLastAdmin)
}

func TestSetSuperadmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.roles.SetSuperadmin(ctx, "USER@example.com", true)
	require.NoError(t, err)
	assert.True(t, u.IsSuperadmin)

	role, err := f.resolver.EffectiveRole(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)

	_, err = f.roles.SetSuperadmin(ctx, "user@example.com", false)
	require.NoError(t, err)
	role, err = f.resolver.EffectiveRole(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, role)

	_, err = f.roles.SetSuperadmin(ctx, "nobody@example.com", true)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestRevokingLastSuperadminFails(t *testing.T) {
	db := testutil.TestMemoryDB(t)
	resolver := NewResolver(db, nil)
	roles := NewRoles(db, resolver)
	ctx := context.Background()

	testutil.CreateUser(t, db, "solo@example.com", "user")
	_, err := roles.SetSuperadmin(ctx, "solo@example.com", true)
	require.NoError(t, err)

	_, err = roles.SetSuperadmin(ctx, "solo@example.com", false)
	assert.ErrorIs(t, err, ErrLastAdmin)
}

func TestCheckRemovable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.NoError(t, f.roles.CheckRemovable(ctx, f.user.ID))
	assert.NoError(t, f.roles.CheckRemovable(ctx, f.moderator.ID))
	assert.ErrorIs(t, f.roles.CheckRemovable(ctx, f.admin.ID), ErrLastAdmin)
	assert.ErrorIs(t, f.roles.CheckRemovable(ctx, 9999), ErrAccountNotFound)

	second := testutil.CreateUser(t, f.db, "second@example.com", "admin")
	assert.NoError(t, f.roles.CheckRemovable(ctx, f.admin.ID))
	assert.NoError(t, f.roles.CheckRemovable(ctx, second.ID))
}
