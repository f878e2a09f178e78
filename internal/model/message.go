// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// MessageType identifies the form a visitor message came from.
type MessageType string

// Message types.
const (
	MessageContact    MessageType = "contact"
	MessageNewsletter MessageType = "newsletter"
	MessageSupport    MessageType = "support"
)

// MessageTypes lists every message type.
var MessageTypes = []MessageType{MessageContact, MessageNewsletter, MessageSupport}

// ParseMessageType parses a message type.
func ParseMessageType(s string) (MessageType, error) {
	t := MessageType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case MessageContact, MessageNewsletter, MessageSupport:
		return t, nil
	}
	return "", fmt.Errorf("invalid message type %q", s)
}

// MessageStatus tracks how far a message has been handled.
type MessageStatus string

// Message statuses in the only order they may be reached.
const (
	MessageUnread  MessageStatus = "unread"
	MessageRead    MessageStatus = "read"
	MessageReplied MessageStatus = "replied"
)

// MessageStatuses lists every message status.
var MessageStatuses = []MessageStatus{MessageUnread, MessageRead, MessageReplied}

// ParseMessageStatus parses a message status.
func ParseMessageStatus(s string) (MessageStatus, error) {
	st := MessageStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case MessageUnread, MessageRead, MessageReplied:
		return st, nil
	}
	return "", fmt.Errorf("invalid message status %q", s)
}

func (s MessageStatus) rank() int {
	switch s {
	case MessageRead:
		return 1
	case MessageReplied:
		return 2
	default:
		return 0
	}
}

// CanAdvance reports whether a message in state s may move to next.
// Statuses never move backward; staying in place is allowed.
func (s MessageStatus) CanAdvance(next MessageStatus) bool {
	return next.rank() >= s.rank()
}
