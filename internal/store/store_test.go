// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "oasis-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
	}
}

func createTestUser(t *testing.T, q *Queries, email, role string) User {
	t.Helper()
	now := time.Now().UTC()
	user, err := q.CreateUser(context.Background(), CreateUserParams{
		Email:        email,
		PasswordHash: "hashed-password",
		Name:         "Test User",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func createTestEntity(t *testing.T, q *Queries, authorID int64, kind, slug string) Entity {
	t.Helper()
	now := time.Now().UTC()
	e, err := q.CreateEntity(context.Background(), CreateEntityParams{
		Kind:      kind,
		AuthorID:  authorID,
		Title:     "Title " + slug,
		Slug:      slug,
		Body:      "Body",
		Category:  "science",
		Language:  "en",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	return e
}

func TestCreateUser(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	user := createTestUser(t, q, "test@example.com", "moderator")

	if user.ID == 0 {
		t.Error("user.ID should not be 0")
	}
	if user.Email != "test@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "test@example.com")
	}
	if user.Role != "moderator" {
		t.Errorf("Role = %q, want %q", user.Role, "moderator")
	}
	if user.PreferredLanguage != "en" {
		t.Errorf("PreferredLanguage = %q, want %q", user.PreferredLanguage, "en")
	}
	if user.IsSuperadmin {
		t.Error("IsSuperadmin should default to false")
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	now := time.Now().UTC()
	_, err := New(db).CreateUser(context.Background(), CreateUserParams{
		Email:        "bad@example.com",
		PasswordHash: "x",
		Name:         "Bad",
		Role:         "editor",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err == nil {
		t.Fatal("expected CHECK constraint failure for unknown role")
	}
}

func TestGetUserByEmailCaseInsensitive(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	created := createTestUser(t, q, "Reader@Example.com", "user")

	got, err := q.GetUserByEmail(context.Background(), "reader@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %d, want %d", got.ID, created.ID)
	}

	_, err = q.GetUserByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing user error = %v, want sql.ErrNoRows", err)
	}
}

func TestListPrivilegedUsers(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	createTestUser(t, q, "admin@example.com", "admin")
	createTestUser(t, q, "mod@example.com", "moderator")
	flagged := createTestUser(t, q, "owner@example.com", "user")

	if err := q.SetUserSuperadmin(ctx, SetUserSuperadminParams{IsSuperadmin: true, UpdatedAt: time.Now().UTC(), ID: flagged.ID}); err != nil {
		t.Fatalf("SetUserSuperadmin: %v", err)
	}

	users, err := q.ListPrivilegedUsers(ctx)
	if err != nil {
		t.Fatalf("ListPrivilegedUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}
}

func TestEntityCreatedPending(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	author := createTestUser(t, q, "author@example.com", "user")
	e := createTestEntity(t, q, author.ID, "post", "first-post")

	if e.Status != "pending" {
		t.Errorf("Status = %q, want %q", e.Status, "pending")
	}
	if e.Version != 1 {
		t.Errorf("Version = %d, want 1", e.Version)
	}
	if e.AuthorID != author.ID {
		t.Errorf("AuthorID = %d, want %d", e.AuthorID, author.ID)
	}
	if e.Extra != "{}" {
		t.Errorf("Extra = %q, want %q", e.Extra, "{}")
	}
}

func TestTransitionEntityVersionCheck(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "author@example.com", "user")
	e := createTestEntity(t, q, author.ID, "post", "versioned")

	now := time.Now().UTC()
	params := TransitionEntityParams{
		Status:          "approved",
		ModeratedBy:     sql.NullInt64{Int64: author.ID, Valid: true},
		ModeratedAt:     sql.NullTime{Time: now, Valid: true},
		UpdatedAt:       now,
		ID:              e.ID,
		ExpectedVersion: e.Version,
	}

	n, err := q.TransitionEntity(ctx, params)
	if err != nil {
		t.Fatalf("TransitionEntity: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}

	// Same expected version again: the row has moved on.
	n, err = q.TransitionEntity(ctx, params)
	if err != nil {
		t.Fatalf("TransitionEntity: %v", err)
	}
	if n != 0 {
		t.Errorf("stale rows = %d, want 0", n)
	}

	got, err := q.GetEntityByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEntityByID: %v", err)
	}
	if got.Status != "approved" || got.Version != 2 {
		t.Errorf("entity = %s v%d, want approved v2", got.Status, got.Version)
	}
	if !got.ModeratedBy.Valid {
		t.Error("ModeratedBy should be set")
	}
}

func TestListApprovedEntities(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "author@example.com", "user")
	approved := createTestEntity(t, q, author.ID, "post", "approved-post")
	createTestEntity(t, q, author.ID, "post", "pending-post")

	now := time.Now().UTC()
	if _, err := q.TransitionEntity(ctx, TransitionEntityParams{
		Status: "approved", UpdatedAt: now, ID: approved.ID, ExpectedVersion: 1,
	}); err != nil {
		t.Fatalf("TransitionEntity: %v", err)
	}

	list, err := q.ListApprovedEntities(ctx, ListApprovedEntitiesParams{Kind: "post", Limit: 10})
	if err != nil {
		t.Fatalf("ListApprovedEntities: %v", err)
	}
	if len(list) != 1 || list[0].ID != approved.ID {
		t.Fatalf("approved list = %+v, want only %d", list, approved.ID)
	}

	count, err := q.CountApprovedEntities(ctx, CountApprovedEntitiesParams{Kind: "post", Category: "other"})
	if err != nil {
		t.Fatalf("CountApprovedEntities: %v", err)
	}
	if count != 0 {
		t.Errorf("count with unmatched category = %d, want 0", count)
	}

	pending, err := q.CountEntitiesByStatus(ctx, CountEntitiesByStatusParams{Kind: "post", Status: "pending"})
	if err != nil {
		t.Fatalf("CountEntitiesByStatus: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending = %d, want 1", pending)
	}
}

func TestDeleteUserCascadesEntities(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "author@example.com", "user")
	e := createTestEntity(t, q, author.ID, "course", "algebra")

	if err := q.DeleteUser(ctx, author.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	_, err := q.GetEntityByID(ctx, e.ID)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("entity after author delete: err = %v, want sql.ErrNoRows", err)
	}
}

func TestMessageStatusUpdates(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now().UTC()
	msg, err := q.CreateMessage(ctx, CreateMessageParams{
		Uuid:      "0b9f6c4e-6a7b-4d89-9d3c-1a2b3c4d5e6f",
		Type:      "contact",
		Name:      "Visitor",
		Email:     "visitor@example.com",
		Body:      "Hello",
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if msg.Status != "unread" {
		t.Errorf("Status = %q, want unread", msg.Status)
	}

	at := sql.NullTime{Time: now, Valid: true}
	n, err := q.MarkMessageRead(ctx, MarkMessageReadParams{ReadAt: at, ID: msg.ID})
	if err != nil || n != 1 {
		t.Fatalf("MarkMessageRead = %d, %v", n, err)
	}
	n, err = q.MarkMessageRead(ctx, MarkMessageReadParams{ReadAt: at, ID: msg.ID})
	if err != nil || n != 0 {
		t.Errorf("second MarkMessageRead = %d, %v, want 0", n, err)
	}

	n, err = q.MarkMessageReplied(ctx, MarkMessageRepliedParams{ReplyBody: "Thanks", RepliedAt: at, ID: msg.ID})
	if err != nil || n != 1 {
		t.Fatalf("MarkMessageReplied = %d, %v", n, err)
	}

	got, err := q.GetMessageByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessageByID: %v", err)
	}
	if got.Status != "replied" || got.ReplyBody != "Thanks" {
		t.Errorf("message = %q/%q, want replied/Thanks", got.Status, got.ReplyBody)
	}
}

func TestSeedCreatesSuperadminOnce(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	q := New(db)
	count, err := q.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if count != 1 {
		t.Errorf("users = %d, want 1", count)
	}

	admin, err := q.GetUserByEmail(ctx, DefaultAdminEmail)
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if !admin.IsSuperadmin {
		t.Error("seeded admin should carry the superadmin flag")
	}
}
