// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package moderation

import "github.com/olegiv/oasis/internal/model"

// Action names an operation gated by role.
type Action string

// Gated actions.
const (
	ActionViewQueue      Action = "queue:view"
	ActionApprove        Action = "entity:approve"
	ActionReject         Action = "entity:reject"
	ActionDelete         Action = "entity:delete"
	ActionManageMessages Action = "message:manage"
	ActionManageUsers    Action = "user:manage"
	ActionSetRole        Action = "user:set_role"
	ActionViewEvents     Action = "event:view"
)

// minRole is the lowest effective role allowed to perform each action.
var minRole = map[Action]model.Role{
	ActionViewQueue:      model.RoleModerator,
	ActionApprove:        model.RoleModerator,
	ActionReject:         model.RoleModerator,
	ActionDelete:         model.RoleAdmin,
	ActionManageMessages: model.RoleModerator,
	ActionManageUsers:    model.RoleAdmin,
	ActionSetRole:        model.RoleAdmin,
	ActionViewEvents:     model.RoleAdmin,
}

// Can reports whether role may perform action. kind narrows approve and
// reject: below admin, only kinds in model.ModeratorKinds are allowed.
// Pass an empty kind for actions that are not about a specific entity.
func Can(role model.Role, action Action, kind model.EntityKind) bool {
	required, ok := minRole[action]
	if !ok || !role.AtLeast(required) {
		return false
	}
	if role == model.RoleAdmin {
		return true
	}
	switch action {
	case ActionApprove, ActionReject:
		return kind == "" || model.ModeratorKinds[kind]
	}
	return true
}
