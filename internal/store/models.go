// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type User struct {
	ID                int64        `json:"id"`
	Email             string       `json:"email"`
	PasswordHash      string       `json:"-"`
	Name              string       `json:"name"`
	Role              string       `json:"role"`
	IsSuperadmin      bool         `json:"is_superadmin"`
	AcademicLevel     string       `json:"academic_level"`
	Country           string       `json:"country"`
	Languages         string       `json:"languages"`
	Badges            string       `json:"badges"`
	Points            int64        `json:"points"`
	PhotoUrl          string       `json:"photo_url"`
	PreferredLanguage string       `json:"preferred_language"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
	LastLoginAt       sql.NullTime `json:"last_login_at"`
}

type Entity struct {
	ID          int64         `json:"id"`
	Kind        string        `json:"kind"`
	AuthorID    int64         `json:"author_id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Body        string        `json:"body"`
	Category    string        `json:"category"`
	Language    string        `json:"language"`
	Extra       string        `json:"extra"`
	Status      string        `json:"status"`
	Version     int64         `json:"version"`
	ModeratedBy sql.NullInt64 `json:"moderated_by"`
	ModeratedAt sql.NullTime  `json:"moderated_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Message struct {
	ID        int64         `json:"id"`
	Uuid      string        `json:"uuid"`
	Type      string        `json:"type"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Subject   string        `json:"subject"`
	Body      string        `json:"body"`
	Status    string        `json:"status"`
	ReplyBody string        `json:"reply_body"`
	IpAddress string        `json:"ip_address"`
	UserAgent string        `json:"user_agent"`
	UserID    sql.NullInt64 `json:"user_id"`
	CreatedAt time.Time     `json:"created_at"`
	ReadAt    sql.NullTime  `json:"read_at"`
	RepliedAt sql.NullTime  `json:"replied_at"`
}

type Event struct {
	ID         int64         `json:"id"`
	Level      string        `json:"level"`
	Category   string        `json:"category"`
	Message    string        `json:"message"`
	UserID     sql.NullInt64 `json:"user_id"`
	Metadata   string        `json:"metadata"`
	IpAddress  string        `json:"ip_address"`
	RequestUrl string        `json:"request_url"`
	CreatedAt  time.Time     `json:"created_at"`
}
