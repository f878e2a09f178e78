// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cli implements oasisctl, the operator tool for migrations and
// account provisioning.
package cli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/olegiv/oasis/internal/config"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/service"
	"github.com/olegiv/oasis/internal/store"
	"github.com/olegiv/oasis/internal/version"
)

// app is the state shared by every command of one invocation.
type app struct {
	dbPath      string
	superadmins []string
	db          *sql.DB
	print       printer
}

// open connects to the database and applies pending migrations.
func (a *app) open() (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	if err := os.MkdirAll(filepath.Dir(a.dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := store.NewDB(a.dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	a.db = db
	return db, nil
}

// closing wraps a command so the database is closed however it exits.
func (a *app) closing(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer func() {
			if a.db != nil {
				_ = a.db.Close()
				a.db = nil
			}
		}()
		return run(cmd, args)
	}
}

func (a *app) roles() (*moderation.Roles, *moderation.Resolver, error) {
	db, err := a.open()
	if err != nil {
		return nil, nil, err
	}
	resolver := moderation.NewResolver(db, a.superadmins)
	roles := moderation.NewRoles(db, resolver, moderation.WithAuditor(service.NewEventService(db)))
	return roles, resolver, nil
}

// NewRootCmd builds the oasisctl command tree. cfg supplies the defaults
// for the persistent flags.
func NewRootCmd(cfg *config.CLIConfig) *cobra.Command {
	a := &app{superadmins: cfg.SuperAdminEmails}

	root := &cobra.Command{
		Use:   "oasisctl",
		Short: "Operator tool for Oasis of Knowledge",
		Long: `oasisctl manages an Oasis of Knowledge database directly: it applies
migrations, creates accounts and assigns roles or the superadmin flag
without going through the web console.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.print = printer{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", cfg.DBPath, "SQLite database path")

	root.AddCommand(
		newMigrateCmd(a),
		newUsersCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs oasisctl with the process arguments.
func Execute(cfg *config.CLIConfig) error {
	root := NewRootCmd(cfg)
	if err := root.Execute(); err != nil {
		printer{errOut: root.ErrOrStderr()}.failure(err)
		return err
	}
	return nil
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: a.closing(func(*cobra.Command, []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			v, err := store.MigrationVersion(db)
			if err != nil {
				return err
			}
			a.print.success("database %s at migration %d", a.dbPath, v)
			return nil
		}),
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "oasisctl %s\n", version.Get())
		},
	}
}
