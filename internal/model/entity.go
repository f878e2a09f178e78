// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// EntityKind discriminates the moderated content types.
type EntityKind string

// Moderated entity kinds.
const (
	KindPost       EntityKind = "post"
	KindCourse     EntityKind = "course"
	KindResearcher EntityKind = "researcher"
)

// Kinds lists every moderated entity kind.
var Kinds = []EntityKind{KindPost, KindCourse, KindResearcher}

// ParseKind parses an entity kind. Plural forms used in URLs ("posts",
// "courses", "researchers") are accepted.
func ParseKind(s string) (EntityKind, error) {
	k := EntityKind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	switch k {
	case KindPost, KindCourse, KindResearcher:
		return k, nil
	}
	return "", fmt.Errorf("invalid entity kind %q", s)
}

// Plural returns the collection name used in routes and cache keys.
func (k EntityKind) Plural() string {
	return string(k) + "s"
}

func (k EntityKind) String() string {
	return string(k)
}

// ModeratorKinds lists the kinds a moderator may approve or reject.
// Admins may moderate every kind.
var ModeratorKinds = map[EntityKind]bool{
	KindPost: true,
}

// Categories lists the allowed categories per kind.
var Categories = map[EntityKind][]string{
	KindPost:       {"science", "technology", "humanities", "education", "discussion", "research"},
	KindCourse:     {"mathematics", "science", "languages", "humanities", "technology", "arts"},
	KindResearcher: {"natural-sciences", "engineering", "medicine", "social-sciences", "humanities"},
}

// IsValidCategory reports whether category is allowed for kind.
func IsValidCategory(kind EntityKind, category string) bool {
	for _, c := range Categories[kind] {
		if c == category {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a moderated entity.
type Status string

// Entity lifecycle states. Every entity starts in StatusPending.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Statuses lists every lifecycle state.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

// ParseStatus parses a stored or submitted status value.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// CanTransition reports whether moving from s to next is allowed.
// Pending may become approved or rejected. A terminal state may only be
// re-applied to itself.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved, StatusRejected:
		return next == s
	}
	return false
}

// IsPublic reports whether entities in this state appear in public listings.
func (s Status) IsPublic() bool {
	return s == StatusApproved
}

func (s Status) String() string {
	return string(s)
}
