package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/courtcache/internal/db"
	apperrors "github.com/kimhsiao/courtcache/internal/errors"
)

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateSubcommand(opts, "up", "Apply pending migrations", func(m *db.Migrator) error {
			return m.Up()
		}),
		migrateSubcommand(opts, "down", "Roll back the latest migration", func(m *db.Migrator) error {
			return m.Down()
		}),
		migrateSubcommand(opts, "status", "Show the schema version", func(m *db.Migrator) error {
			return nil
		}),
	)
	return cmd
}

func migrateSubcommand(opts *options, use, short string, run func(*db.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			conn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			m := db.NewMigrator(conn.DB, db.Migrations, db.MigrationsDir)
			if err := m.Initialize(); err != nil {
				return apperrors.Wrap(apperrors.ErrMigration, "failed to initialize migrations", err)
			}
			if err := run(m); err != nil {
				return apperrors.Wrap(apperrors.ErrMigration, "migrate "+use+" failed", err)
			}

			applied, err := m.GetAppliedMigrations()
			if err != nil {
				return err
			}
			version, err := m.CurrentVersion()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return outputJSON(out, map[string]interface{}{
					"version":    version,
					"migrations": applied,
				})
			}
			fmt.Fprintf(out, "Schema version: %d\n", version)
			for _, mig := range applied {
				fmt.Fprintf(out, "  V%d %s (applied %s)\n", mig.Version, mig.Description, mig.AppliedAt.UTC().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
