// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const messageColumns = `id, uuid, type, name, email, subject, body, status, reply_body,
	ip_address, user_agent, user_id, created_at, read_at, replied_at`

func scanMessage(row rowScanner) (Message, error) {
	var i Message
	err := row.Scan(
		&i.ID,
		&i.Uuid,
		&i.Type,
		&i.Name,
		&i.Email,
		&i.Subject,
		&i.Body,
		&i.Status,
		&i.ReplyBody,
		&i.IpAddress,
		&i.UserAgent,
		&i.UserID,
		&i.CreatedAt,
		&i.ReadAt,
		&i.RepliedAt,
	)
	return i, err
}

const createMessage = `INSERT INTO messages (
	uuid, type, name, email, subject, body, status, ip_address, user_agent, user_id, created_at
) VALUES (?, ?, ?, ?, ?, ?, 'unread', ?, ?, ?, ?)
RETURNING ` + messageColumns

type CreateMessageParams struct {
	Uuid      string
	Type      string
	Name      string
	Email     string
	Subject   string
	Body      string
	IpAddress string
	UserAgent string
	UserID    sql.NullInt64
	CreatedAt time.Time
}

func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) (Message, error) {
	row := q.db.QueryRowContext(ctx, createMessage,
		arg.Uuid,
		arg.Type,
		arg.Name,
		arg.Email,
		arg.Subject,
		arg.Body,
		arg.IpAddress,
		arg.UserAgent,
		arg.UserID,
		arg.CreatedAt,
	)
	return scanMessage(row)
}

const getMessageByID = `SELECT ` + messageColumns + ` FROM messages WHERE id = ?`

func (q *Queries) GetMessageByID(ctx context.Context, id int64) (Message, error) {
	return scanMessage(q.db.QueryRowContext(ctx, getMessageByID, id))
}

const listMessages = `SELECT ` + messageColumns + ` FROM messages
WHERE (? = '' OR type = ?) AND (? = '' OR status = ?)
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

type ListMessagesParams struct {
	Type   string
	Status string
	Limit  int64
	Offset int64
}

func (q *Queries) ListMessages(ctx context.Context, arg ListMessagesParams) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, listMessages,
		arg.Type, arg.Type,
		arg.Status, arg.Status,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Message{}
	for rows.Next() {
		i, err := scanMessage(rows)
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

const countMessages = `SELECT COUNT(*) FROM messages WHERE (? = '' OR type = ?) AND (? = '' OR status = ?)`

type CountMessagesParams struct {
	Type   string
	Status string
}

func (q *Queries) CountMessages(ctx context.Context, arg CountMessagesParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countMessages, arg.Type, arg.Type, arg.Status, arg.Status).Scan(&count)
	return count, err
}

const markMessageRead = `UPDATE messages SET status = 'read', read_at = ? WHERE id = ? AND status = 'unread'`

type MarkMessageReadParams struct {
	ReadAt sql.NullTime
	ID     int64
}

// MarkMessageRead only touches unread messages and reports rows changed.
func (q *Queries) MarkMessageRead(ctx context.Context, arg MarkMessageReadParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markMessageRead, arg.ReadAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markMessageReplied = `UPDATE messages
SET status = 'replied', reply_body = ?, replied_at = ?, read_at = COALESCE(read_at, ?)
WHERE id = ? AND status IN ('unread', 'read')`

type MarkMessageRepliedParams struct {
	ReplyBody string
	RepliedAt sql.NullTime
	ID        int64
}

func (q *Queries) MarkMessageReplied(ctx context.Context, arg MarkMessageRepliedParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markMessageReplied, arg.ReplyBody, arg.RepliedAt, arg.RepliedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
