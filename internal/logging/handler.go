// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that mirrors WARN and ERROR records
// into the events table, so moderators see failures in the admin console.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/store"
)

// RequestURLFunc extracts the request path from a context, if any.
type RequestURLFunc func(ctx context.Context) string

// EventLogHandler wraps another handler and also writes records at or above
// its level to the events table.
type EventLogHandler struct {
	inner      slog.Handler
	queries    *store.Queries
	level      slog.Level
	attrs      []slog.Attr
	requestURL RequestURLFunc
}

// NewEventLogHandler creates a handler that forwards WARN and above.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a handler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// WithRequestURL sets the function used to fill the request_url column.
func (h *EventLogHandler) WithRequestURL(fn RequestURLFunc) *EventLogHandler {
	h.requestURL = fn
	return h
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToEventLog(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	return &clone
}

func (h *EventLogHandler) writeToEventLog(ctx context.Context, r slog.Record) {
	fields := make(map[string]string)
	var category string
	var userID sql.NullInt64

	collect := func(a slog.Attr) bool {
		switch a.Key {
		case "category":
			category = a.Value.String()
		case "user_id":
			if a.Value.Kind() == slog.KindInt64 && a.Value.Int64() > 0 {
				userID = sql.NullInt64{Int64: a.Value.Int64(), Valid: true}
			}
			fields[a.Key] = a.Value.String()
		default:
			fields[a.Key] = a.Value.String()
		}
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	if category == "" {
		category = inferCategory(r.Message)
	}

	metadata := "{}"
	if len(fields) > 0 {
		if b, err := json.Marshal(fields); err == nil {
			metadata = string(b)
		}
	}

	var requestURL string
	if h.requestURL != nil {
		requestURL = h.requestURL(ctx)
	}

	createdAt := r.Time
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	// Background context: the event must land even if the request was cancelled.
	_, _ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:      eventLevel(r.Level),
		Category:   category,
		Message:    r.Message,
		UserID:     userID,
		Metadata:   metadata,
		RequestUrl: requestURL,
		CreatedAt:  createdAt.UTC(),
	})
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses a category from the message when none was given.
func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "login") || strings.Contains(msg, "auth") ||
		strings.Contains(msg, "token") || strings.Contains(msg, "access denied"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "approve") || strings.Contains(msg, "reject") ||
		strings.Contains(msg, "entity") || strings.Contains(msg, "moderat"):
		return model.EventCategoryModeration
	case strings.Contains(msg, "message") || strings.Contains(msg, "mail"):
		return model.EventCategoryMessage
	case strings.Contains(msg, "profile") || strings.Contains(msg, "photo"):
		return model.EventCategoryProfile
	case strings.Contains(msg, "role") || strings.Contains(msg, "user"):
		return model.EventCategoryUser
	case strings.Contains(msg, "cache"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}
