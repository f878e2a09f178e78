// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package moderation

import "errors"

var (
	// ErrForbidden is returned when the actor's effective role does not allow
	// the operation. No data is written.
	ErrForbidden = errors.New("moderation: forbidden")

	// ErrInvalidTransition is returned for a status change the lifecycle does
	// not allow, such as un-approving.
	ErrInvalidTransition = errors.New("moderation: invalid status transition")

	// ErrVersionConflict is returned when the entity changed since the caller
	// read it.
	ErrVersionConflict = errors.New("moderation: entity was modified concurrently")

	ErrEntityNotFound  = errors.New("moderation: entity not found")
	ErrAccountNotFound = errors.New("moderation: account not found")

	// ErrLastAdmin is returned when a role change would leave no account
	// whose effective role is admin.
	ErrLastAdmin = errors.New("moderation: cannot remove the last admin")

	ErrInvalidRole = errors.New("moderation: invalid role")
)
