// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package moderation

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/store"
	"github.com/olegiv/oasis/internal/testutil"
)

type recordedEvent struct {
	message  string
	userID   int64
	metadata map[string]any
}

type fakeAuditor struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeAuditor) LogModerationEvent(_ context.Context, message string, userID int64, _ string, metadata map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{message: message, userID: userID, metadata: metadata})
	return nil
}

func (f *fakeAuditor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeInvalidator struct {
	mu    sync.Mutex
	kinds []model.EntityKind
}

func (f *fakeInvalidator) InvalidateKind(_ context.Context, kind model.EntityKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
}

type fixture struct {
	db          *sql.DB
	resolver    *Resolver
	lifecycle   *Lifecycle
	roles       *Roles
	audit       *fakeAuditor
	invalidator *fakeInvalidator

	admin     store.User
	moderator store.User
	user      store.User
}

func newFixture(t *testing.T, superadminEmails ...string) *fixture {
	t.Helper()

	db := testutil.TestMemoryDB(t)
	f := &fixture{
		db:          db,
		audit:       &fakeAuditor{},
		invalidator: &fakeInvalidator{},
	}
	clock := WithClock(func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) })

	f.resolver = NewResolver(db, superadminEmails)
	f.lifecycle = NewLifecycle(db, f.resolver, WithAuditor(f.audit), WithInvalidator(f.invalidator), clock)
	f.roles = NewRoles(db, f.resolver, WithAuditor(f.audit), clock)

	f.admin = testutil.CreateUser(t, db, "admin@example.com", "admin")
	f.moderator = testutil.CreateUser(t, db, "mod@example.com", "moderator")
	f.user = testutil.CreateUser(t, db, "user@example.com", "user")
	return f
}

func (f *fixture) actor(u store.User) Actor {
	return Actor{UserID: u.ID, IP: "127.0.0.1"}
}

func (f *fixture) entity(t *testing.T, id int64) store.Entity {
	t.Helper()
	e, err := store.New(f.db).GetEntityByID(context.Background(), id)
	require.NoError(t, err)
	return e
}

func (f *fixture) approvedSlugs(t *testing.T, kind model.EntityKind) []string {
	t.Helper()
	items, err := store.New(f.db).ListApprovedEntities(context.Background(), store.ListApprovedEntitiesParams{
		Kind:  string(kind),
		Limit: 100,
	})
	require.NoError(t, err)
	slugs := make([]string, 0, len(items))
	for _, e := range items {
		slugs = append(slugs, e.Slug)
	}
	return slugs
}

func (f *fixture) pendingSlugs(t *testing.T, kind model.EntityKind) []string {
	t.Helper()
	items, err := store.New(f.db).ListEntitiesByStatus(context.Background(), store.ListEntitiesByStatusParams{
		Kind:   string(kind),
		Status: string(model.StatusPending),
		Limit:  100,
	})
	require.NoError(t, err)
	slugs := make([]string, 0, len(items))
	for _, e := range items {
		slugs = append(slugs, e.Slug)
	}
	return slugs
}
