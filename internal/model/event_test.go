// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
)

func TestEventLevelConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant string
		expected string
	}{
		{"info level", EventLevelInfo, "info"},
		{"warning level", EventLevelWarning, "warning"},
		{"error level", EventLevelError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestMessageStatusCanAdvance(t *testing.T) {
	tests := []struct {
		from MessageStatus
		to   MessageStatus
		want bool
	}{
		{MessageUnread, MessageRead, true},
		{MessageUnread, MessageReplied, true},
		{MessageRead, MessageReplied, true},
		{MessageRead, MessageRead, true},
		{MessageRead, MessageUnread, false},
		{MessageReplied, MessageRead, false},
		{MessageReplied, MessageUnread, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanAdvance(tt.to); got != tt.want {
			t.Errorf("%q.CanAdvance(%q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseMessageType(t *testing.T) {
	for _, mt := range MessageTypes {
		if got, err := ParseMessageType(string(mt)); err != nil || got != mt {
			t.Errorf("ParseMessageType(%q) = %q, %v", mt, got, err)
		}
	}
	if _, err := ParseMessageType("spam"); err == nil {
		t.Error("ParseMessageType(spam) should fail")
	}
}
