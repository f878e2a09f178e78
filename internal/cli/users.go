// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/service"
	"github.com/olegiv/oasis/internal/store"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List and provision accounts",
	}
	cmd.AddCommand(
		newUsersListCmd(a),
		newUsersCreateCmd(a),
		newUsersSetRoleCmd(a),
		newUsersSuperadminCmd(a),
	)
	return cmd
}

func newUsersListCmd(a *app) *cobra.Command {
	var limit, offset int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts with their stored and effective roles",
		Args:  cobra.NoArgs,
		RunE: a.closing(func(cmd *cobra.Command, _ []string) error {
			_, resolver, err := a.roles()
			if err != nil {
				return err
			}
			q := store.New(a.db)
			users, err := q.ListUsers(cmd.Context(), store.ListUsersParams{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			if len(users) == 0 {
				a.print.warning("no accounts found")
				return nil
			}

			rows := make([][]string, 0, len(users))
			for _, u := range users {
				super := ""
				if resolver.IsSuperadmin(u) {
					super = "yes"
				}
				rows = append(rows, []string{
					strconv.FormatInt(u.ID, 10),
					u.Email,
					u.Name,
					u.Role,
					string(resolver.Resolve(u)),
					super,
				})
			}
			if err := a.print.table([]string{"ID", "Email", "Name", "Stored role", "Effective role", "Superadmin"}, rows); err != nil {
				return err
			}

			total, err := q.CountUsers(cmd.Context())
			if err != nil {
				return err
			}
			a.print.info("%d of %d accounts", len(users), total)
			return nil
		}),
	}
	cmd.Flags().Int64Var(&limit, "limit", 50, "maximum number of accounts to show")
	cmd.Flags().Int64Var(&offset, "offset", 0, "number of accounts to skip")
	return cmd
}

func newUsersCreateCmd(a *app) *cobra.Command {
	var in service.RegisterInput
	var roleName string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account, optionally with an elevated role",
		Args:  cobra.NoArgs,
		RunE: a.closing(func(cmd *cobra.Command, _ []string) error {
			role, err := model.ParseRole(roleName)
			if err != nil {
				return err
			}
			roles, _, err := a.roles()
			if err != nil {
				return err
			}

			profiles := service.NewProfiles(a.db, service.ProfilesConfig{Roles: roles})
			user, err := profiles.Register(cmd.Context(), in, service.RequestMeta{})
			if err != nil {
				return err
			}

			if role != model.RoleUser {
				if _, _, err := roles.AssignRole(cmd.Context(), user.Email, string(role)); err != nil {
					return err
				}
			}
			a.print.success("created account %d (%s) with role %s", user.ID, user.Email, role)
			return nil
		}),
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "account e-mail (required)")
	cmd.Flags().StringVar(&in.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password (required)")
	cmd.Flags().StringVar(&in.Language, "language", "", "preferred interface language")
	cmd.Flags().StringVar(&roleName, "role", string(model.RoleUser), "role: user, moderator or admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUsersSetRoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <email> <role>",
		Short: "Change the stored role of an account",
		Args:  cobra.ExactArgs(2),
		RunE: a.closing(func(cmd *cobra.Command, args []string) error {
			roles, _, err := a.roles()
			if err != nil {
				return err
			}
			user, effective, err := roles.AssignRole(cmd.Context(), args[0], args[1])
			if err != nil {
				if errors.Is(err, moderation.ErrLastAdmin) {
					a.print.warning("promote another admin before demoting %s", args[0])
				}
				return err
			}
			a.print.success("%s now has stored role %s (effective %s)", user.Email, user.Role, effective)
			if effective != model.Role(user.Role) {
				a.print.warning("%s is a superadmin and keeps admin access", user.Email)
			}
			return nil
		}),
	}
}

func newUsersSuperadminCmd(a *app) *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "superadmin <email>",
		Short: "Grant or revoke the superadmin flag",
		Args:  cobra.ExactArgs(1),
		RunE: a.closing(func(cmd *cobra.Command, args []string) error {
			roles, resolver, err := a.roles()
			if err != nil {
				return err
			}
			user, err := roles.SetSuperadmin(cmd.Context(), args[0], !revoke)
			if err != nil {
				return err
			}
			if revoke {
				a.print.success("revoked superadmin flag from %s", user.Email)
			} else {
				a.print.success("granted superadmin flag to %s", user.Email)
			}
			if revoke && resolver.IsSuperadmin(user) {
				a.print.warning("%s is still listed in OASIS_SUPERADMIN_EMAILS", user.Email)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove the flag instead of granting it")
	return cmd
}
