// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers: databases with migrations
// applied, quiet loggers and account fixtures.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/olegiv/oasis/internal/auth"
	"github.com/olegiv/oasis/internal/store"
)

// TestPassword is the plain password of every account made by CreateUser.
const TestPassword = "test-password-123"

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a logger that only outputs errors.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// TestDB creates a temporary file database with migrations applied.
// Returns the database and a cleanup function that should be deferred.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "oasis-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
	}
}

var memoryDBCounter atomic.Int64

// TestMemoryDB creates a migrated in-memory database on the sqlite3 driver.
// Each call gets its own shared-cache database, closed on test cleanup.
func TestMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	name := fmt.Sprintf("file:oasis_mem_%d?mode=memory&cache=shared&_foreign_keys=on", memoryDBCounter.Add(1))
	db, err := sql.Open("sqlite3", name)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// CreateUser inserts an account with TestPassword and the given role.
func CreateUser(t *testing.T, db *sql.DB, email, role string) store.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	now := time.Now().UTC()
	user, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Name:         "Test " + role,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return user
}

// CreateEntity inserts a pending entity of kind for authorID.
func CreateEntity(t *testing.T, db *sql.DB, authorID int64, kind, slug string) store.Entity {
	t.Helper()

	now := time.Now().UTC()
	e, err := store.New(db).CreateEntity(context.Background(), store.CreateEntityParams{
		Kind:      kind,
		AuthorID:  authorID,
		Title:     "Entity " + slug,
		Slug:      slug,
		Body:      "Some **markdown** body",
		Category:  "science",
		Language:  "en",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateEntity(%s): %v", slug, err)
	}
	return e
}
