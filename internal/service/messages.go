// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"

	"github.com/olegiv/oasis/internal/captcha"
	"github.com/olegiv/oasis/internal/mail"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/store"
	"github.com/olegiv/oasis/internal/util"
	"github.com/olegiv/oasis/internal/validation"
)

var (
	// ErrRateLimited is returned when an IP sends messages too quickly.
	ErrRateLimited = errors.New("too many messages, try again later")
	// ErrCaptchaFailed is returned when captcha verification fails.
	ErrCaptchaFailed = errors.New("captcha verification failed")
	// ErrMessageTransition is returned when a message status would move backward
	// or a message is replied to twice.
	ErrMessageTransition = errors.New("message status cannot change that way")
	// ErrMessageNotFound is returned for an unknown message id.
	ErrMessageNotFound = errors.New("message not found")
)

// MessageInput is a contact, newsletter or support form submission.
type MessageInput struct {
	Type         string `json:"type" validate:"required,msgtype"`
	Name         string `json:"name" validate:"max=100"`
	Email        string `json:"email" validate:"required,email,max=254"`
	Subject      string `json:"subject" validate:"max=200"`
	Body         string `json:"body" validate:"max=10000"`
	CaptchaToken string `json:"captcha_token"`
}

// RequestMeta describes where a request came from.
type RequestMeta struct {
	IP        string
	UserAgent string
	UserID    int64 // 0 for anonymous
}

// ClientInfo is a parsed user agent.
type ClientInfo struct {
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"device_type"`
}

// MessageView is a message with its parsed client for the admin console.
type MessageView struct {
	store.Message
	Client ClientInfo `json:"client"`
}

// MessagesConfig wires the optional collaborators of Messages.
type MessagesConfig struct {
	Captcha   captcha.Verifier // nil disables verification
	Mailer    mail.Sender      // nil logs replies
	Events    *EventService
	RateLimit float64 // messages per second per IP; 0 disables limiting
	RateBurst int
}

// Messages handles visitor messages and moderator replies.
type Messages struct {
	queries  *store.Queries
	resolver *moderation.Resolver
	captcha  captcha.Verifier
	mailer   mail.Sender
	events   *EventService
	limiter  *keyedLimiter
	now      func() time.Time
}

// NewMessages creates a Messages service.
func NewMessages(db *sql.DB, resolver *moderation.Resolver, cfg MessagesConfig) *Messages {
	m := &Messages{
		queries:  store.New(db),
		resolver: resolver,
		captcha:  cfg.Captcha,
		mailer:   cfg.Mailer,
		events:   cfg.Events,
		now:      time.Now,
	}
	if m.captcha == nil {
		m.captcha = captcha.Disabled{}
	}
	if m.mailer == nil {
		m.mailer = mail.NewLogSender(nil)
	}
	if cfg.RateLimit > 0 {
		m.limiter = newKeyedLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return m
}

// Submit validates and stores a message as unread.
func (m *Messages) Submit(ctx context.Context, in MessageInput, meta RequestMeta) (store.Message, error) {
	verr := validation.NewError()
	validation.Collect(verr, in)
	if in.Type != string(model.MessageNewsletter) && strings.TrimSpace(in.Body) == "" {
		verr.Add("body", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return store.Message{}, err
	}

	if m.limiter != nil {
		key := meta.IP
		if addr, ok := util.ParseClientIP(meta.IP); ok {
			key = addr.String()
		}
		if !m.limiter.Allow(key) {
			slog.Warn("message rate limit exceeded", "ip", meta.IP)
			return store.Message{}, ErrRateLimited
		}
	}

	if err := m.captcha.Verify(ctx, in.CaptchaToken, meta.IP); err != nil {
		if errors.Is(err, captcha.ErrMissingResponse) || errors.Is(err, captcha.ErrRejected) {
			return store.Message{}, ErrCaptchaFailed
		}
		return store.Message{}, fmt.Errorf("verifying captcha: %w", err)
	}

	msgType, _ := model.ParseMessageType(in.Type)
	var userID sql.NullInt64
	if meta.UserID > 0 {
		userID = sql.NullInt64{Int64: meta.UserID, Valid: true}
	}

	msg, err := m.queries.CreateMessage(ctx, store.CreateMessageParams{
		Uuid:      uuid.New().String(),
		Type:      string(msgType),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Subject:   strings.TrimSpace(in.Subject),
		Body:      in.Body,
		IpAddress: meta.IP,
		UserAgent: meta.UserAgent,
		UserID:    userID,
		CreatedAt: m.now().UTC(),
	})
	if err != nil {
		return store.Message{}, fmt.Errorf("storing message: %w", err)
	}

	if m.events != nil {
		var uid *int64
		if userID.Valid {
			uid = &userID.Int64
		}
		_ = m.events.LogInfo(ctx, model.EventCategoryMessage, "message received", uid, meta.IP, map[string]any{
			"message_id": msg.ID,
			"type":       msg.Type,
		})
	}
	return msg, nil
}

// List returns messages filtered by type and status, newest first.
func (m *Messages) List(ctx context.Context, actor moderation.Actor, msgType, status string, limit, offset int64) ([]MessageView, int64, error) {
	if _, err := m.resolver.Authorize(ctx, actor.UserID, moderation.ActionManageMessages, ""); err != nil {
		return nil, 0, err
	}
	rows, err := m.queries.ListMessages(ctx, store.ListMessagesParams{Type: msgType, Status: status, Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, err
	}
	total, err := m.queries.CountMessages(ctx, store.CountMessagesParams{Type: msgType, Status: status})
	if err != nil {
		return nil, 0, err
	}
	out := make([]MessageView, 0, len(rows))
	for _, msg := range rows {
		out = append(out, MessageView{Message: msg, Client: ParseClient(msg.UserAgent)})
	}
	return out, total, nil
}

// MarkRead moves an unread message to read. Marking a read message again is
// a no-op; a replied message cannot go back to read.
func (m *Messages) MarkRead(ctx context.Context, actor moderation.Actor, id int64) (store.Message, error) {
	msg, err := m.authorizedMessage(ctx, actor, id)
	if err != nil {
		return store.Message{}, err
	}

	current, err := model.ParseMessageStatus(msg.Status)
	if err != nil {
		return store.Message{}, err
	}
	if !current.CanAdvance(model.MessageRead) {
		return store.Message{}, ErrMessageTransition
	}
	if current == model.MessageRead {
		return msg, nil
	}

	n, err := m.queries.MarkMessageRead(ctx, store.MarkMessageReadParams{
		ReadAt: sql.NullTime{Time: m.now().UTC(), Valid: true},
		ID:     id,
	})
	if err != nil {
		return store.Message{}, err
	}
	if n == 0 {
		// Someone replied in between.
		return store.Message{}, ErrMessageTransition
	}
	return m.queries.GetMessageByID(ctx, id)
}

// Reply e-mails body to the sender and marks the message replied. The
// message is only marked once the mail was handed to the sender.
func (m *Messages) Reply(ctx context.Context, actor moderation.Actor, id int64, body string) (store.Message, error) {
	if strings.TrimSpace(body) == "" {
		verr := validation.NewError()
		verr.Add("body", "is required")
		return store.Message{}, verr
	}

	msg, err := m.authorizedMessage(ctx, actor, id)
	if err != nil {
		return store.Message{}, err
	}
	if msg.Status == string(model.MessageReplied) {
		return store.Message{}, ErrMessageTransition
	}

	subject := msg.Subject
	if subject == "" {
		subject = "Your message to Oasis of Knowledge"
	}
	if err := m.mailer.Send(ctx, mail.Message{
		To:      msg.Email,
		Subject: "Re: " + subject,
		Body:    body,
	}); err != nil {
		return store.Message{}, fmt.Errorf("sending reply: %w", err)
	}

	now := m.now().UTC()
	n, err := m.queries.MarkMessageReplied(ctx, store.MarkMessageRepliedParams{
		ReplyBody: body,
		RepliedAt: sql.NullTime{Time: now, Valid: true},
		ID:        id,
	})
	if err != nil {
		return store.Message{}, err
	}
	if n == 0 {
		return store.Message{}, ErrMessageTransition
	}

	if m.events != nil {
		uid := actor.UserID
		_ = m.events.LogInfo(ctx, model.EventCategoryMessage, "message replied", &uid, actor.IP, map[string]any{
			"message_id": id,
		})
	}
	return m.queries.GetMessageByID(ctx, id)
}

func (m *Messages) authorizedMessage(ctx context.Context, actor moderation.Actor, id int64) (store.Message, error) {
	if _, err := m.resolver.Authorize(ctx, actor.UserID, moderation.ActionManageMessages, ""); err != nil {
		return store.Message{}, err
	}
	msg, err := m.queries.GetMessageByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ParseClient extracts browser, OS and device type from a user agent.
func ParseClient(uaString string) ClientInfo {
	ua := useragent.Parse(uaString)

	info := ClientInfo{Browser: ua.Name, OS: ua.OS}
	if info.Browser == "" {
		info.Browser = "Unknown"
	}
	if info.OS == "" {
		info.OS = "Unknown"
	}

	switch {
	case ua.Mobile:
		info.DeviceType = "mobile"
	case ua.Tablet:
		info.DeviceType = "tablet"
	case ua.Bot:
		info.DeviceType = "bot"
	default:
		info.DeviceType = "desktop"
	}
	return info
}
