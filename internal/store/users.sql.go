// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const userColumns = `id, email, password_hash, name, role, is_superadmin, academic_level, country,
	languages, badges, points, photo_url, preferred_language, created_at, updated_at, last_login_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.PasswordHash,
		&i.Name,
		&i.Role,
		&i.IsSuperadmin,
		&i.AcademicLevel,
		&i.Country,
		&i.Languages,
		&i.Badges,
		&i.Points,
		&i.PhotoUrl,
		&i.PreferredLanguage,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.LastLoginAt,
	)
	return i, err
}

func scanUsers(rows *sql.Rows) ([]User, error) {
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		i, err := scanUser(rows)
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

const createUser = `INSERT INTO users (
	email, password_hash, name, role, is_superadmin, country, preferred_language, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + userColumns

type CreateUserParams struct {
	Email             string
	PasswordHash      string
	Name              string
	Role              string
	IsSuperadmin      bool
	Country           string
	PreferredLanguage string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	lang := arg.PreferredLanguage
	if lang == "" {
		lang = "en"
	}
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Email,
		arg.PasswordHash,
		arg.Name,
		arg.Role,
		arg.IsSuperadmin,
		arg.Country,
		lang,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanUser(row)
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

type ListUsersParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

const countUsers = `SELECT COUNT(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&count)
	return count, err
}

const listPrivilegedUsers = `SELECT ` + userColumns + ` FROM users
WHERE role = 'admin' OR is_superadmin = 1 ORDER BY id`

// ListPrivilegedUsers returns accounts that are admins by stored role or by
// the superadmin flag.
func (q *Queries) ListPrivilegedUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listPrivilegedUsers)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

const updateUserRole = `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`

type UpdateUserRoleParams struct {
	Role      string
	UpdatedAt time.Time
	ID        int64
}

func (q *Queries) UpdateUserRole(ctx context.Context, arg UpdateUserRoleParams) error {
	_, err := q.db.ExecContext(ctx, updateUserRole, arg.Role, arg.UpdatedAt, arg.ID)
	return err
}

const setUserSuperadmin = `UPDATE users SET is_superadmin = ?, updated_at = ? WHERE id = ?`

type SetUserSuperadminParams struct {
	IsSuperadmin bool
	UpdatedAt    time.Time
	ID           int64
}

func (q *Queries) SetUserSuperadmin(ctx context.Context, arg SetUserSuperadminParams) error {
	_, err := q.db.ExecContext(ctx, setUserSuperadmin, arg.IsSuperadmin, arg.UpdatedAt, arg.ID)
	return err
}

const updateUserProfile = `UPDATE users
SET name = ?, academic_level = ?, country = ?, languages = ?, preferred_language = ?, updated_at = ?
WHERE id = ?
RETURNING ` + userColumns

type UpdateUserProfileParams struct {
	Name              string
	AcademicLevel     string
	Country           string
	Languages         string
	PreferredLanguage string
	UpdatedAt         time.Time
	ID                int64
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	row := q.db.QueryRowContext(ctx, updateUserProfile,
		arg.Name,
		arg.AcademicLevel,
		arg.Country,
		arg.Languages,
		arg.PreferredLanguage,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanUser(row)
}

const updateUserPassword = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           int64
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

const updateUserPhoto = `UPDATE users SET photo_url = ?, updated_at = ? WHERE id = ?`

type UpdateUserPhotoParams struct {
	PhotoUrl  string
	UpdatedAt time.Time
	ID        int64
}

func (q *Queries) UpdateUserPhoto(ctx context.Context, arg UpdateUserPhotoParams) error {
	_, err := q.db.ExecContext(ctx, updateUserPhoto, arg.PhotoUrl, arg.UpdatedAt, arg.ID)
	return err
}

const updateUserLastLogin = `UPDATE users SET last_login_at = ? WHERE id = ?`

type UpdateUserLastLoginParams struct {
	LastLoginAt sql.NullTime
	ID          int64
}

func (q *Queries) UpdateUserLastLogin(ctx context.Context, arg UpdateUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx, updateUserLastLogin, arg.LastLoginAt, arg.ID)
	return err
}

const deleteUser = `DELETE FROM users WHERE id = ?`

func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteUser, id)
	return err
}
