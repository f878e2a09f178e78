// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain enumerations shared by the store, the
// moderation core and the HTTP layers: roles, entity kinds and statuses,
// message types and event categories.
package model

import (
	"fmt"
	"strings"
)

// Role is an account's authorization level.
type Role string

// Account roles, lowest to highest.
const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Roles lists every valid role in ascending order of privilege.
var Roles = []Role{RoleUser, RoleModerator, RoleAdmin}

// ParseRole parses a role name. Matching is case-insensitive and ignores
// surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// RoleOrDefault returns the role stored in s, or RoleUser when s is empty or
// not a known role.
func RoleOrDefault(s string) Role {
	r, err := ParseRole(s)
	if err != nil {
		return RoleUser
	}
	return r
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Level returns a numeric rank; higher means more privileges.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleModerator:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r ranks at or above minRole.
func (r Role) AtLeast(minRole Role) bool {
	return r.Level() >= minRole.Level()
}

func (r Role) String() string {
	return string(r)
}
