// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/store"
	"github.com/olegiv/oasis/internal/testutil"
	"github.com/olegiv/oasis/internal/validation"
)

type env struct {
	db       *sql.DB
	events   *EventService
	resolver *moderation.Resolver

	admin     store.User
	moderator store.User
	user      store.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.TestMemoryDB(t)
	return &env{
		db:        db,
		events:    NewEventService(db),
		resolver:  moderation.NewResolver(db, nil),
		admin:     testutil.CreateUser(t, db, "admin@example.com", "admin"),
		moderator: testutil.CreateUser(t, db, "mod@example.com", "moderator"),
		user:      testutil.CreateUser(t, db, "user@example.com", "user"),
	}
}

func actorOf(u store.User) moderation.Actor {
	return moderation.Actor{UserID: u.ID, IP: "127.0.0.1"}
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC) }
}

// requireFieldErrors asserts err is a validation error naming exactly fields.
func requireFieldErrors(t *testing.T, err error, fields ...string) {
	t.Helper()
	verr, ok := validation.AsError(err)
	require.True(t, ok, "want *validation.Error, got %v", err)
	for _, f := range fields {
		require.Contains(t, verr.Fields, f)
	}
	require.Len(t, verr.Fields, len(fields), "fields: %v", verr.Fields)
}

func (e *env) approve(t *testing.T, id int64) store.Entity {
	t.Helper()
	lc := moderation.NewLifecycle(e.db, e.resolver)
	ent, err := lc.Approve(context.Background(), actorOf(e.admin), id, 0)
	require.NoError(t, err)
	return ent
}
