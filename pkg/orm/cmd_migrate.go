package orm

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/dorm/pkg/database"
	"github.com/shashiranjanraj/dorm/pkg/migration"
)

// ─── migrate ──────────────────────────────────────────────────────────────────

func newMigrateCmd(c *Commands) *cobra.Command {
	var alias string
	cmd := &cobra.Command{
		Use:   "migrate [app_label]",
		Short: "Updates database schema. Manages both apps with migrations and those without.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ready(); err != nil {
				return err
			}
			apps, err := c.targetApps(args)
			if err != nil {
				return err
			}
			db, err := c.engine.DB(alias)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			reg := c.engine.Migrations()

			var migrated []string
			var unmigrated []*App
			for _, app := range apps {
				switch {
				case reg.Has(app.Label):
					migrated = append(migrated, app.Label)
				case app.HasModels():
					unmigrated = append(unmigrated, app)
				}
			}

			fmt.Fprintln(out, "Operations to perform:")
			if len(unmigrated) > 0 {
				labels := make([]string, len(unmigrated))
				for i, app := range unmigrated {
					labels[i] = app.Label
				}
				fmt.Fprintf(out, "  Synchronize unmigrated apps: %s\n", strings.Join(labels, ", "))
			}
			if len(migrated) > 0 {
				fmt.Fprintf(out, "  Apply all migrations: %s\n", strings.Join(migrated, ", "))
			}

			if len(unmigrated) > 0 {
				fmt.Fprintln(out, "Synchronizing apps without migrations:")
				for _, app := range unmigrated {
					fmt.Fprintf(out, "  Creating tables for %s...", app.Label)
					if err := db.WithContext(ctx).AutoMigrate(app.Models...); err != nil {
						fmt.Fprintln(out, " FAILED")
						return fmt.Errorf("migrate: sync %s: %w", app.Label, err)
					}
					fmt.Fprintln(out, " OK")
				}
			}

			fmt.Fprintln(out, "Running migrations:")
			if len(migrated) == 0 {
				fmt.Fprintln(out, "  No migrations to apply.")
				return nil
			}
			_, err = migration.New(db, reg, out).Run(ctx, migrated...)
			return err
		},
	}
	cmd.Flags().StringVar(&alias, "database", database.DefaultAlias, "Nominates a database to synchronize.")
	return cmd
}

// ─── rollback ─────────────────────────────────────────────────────────────────

func newRollbackCmd(c *Commands) *cobra.Command {
	var alias string
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Reverts the most recently applied batch of migrations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ready(); err != nil {
				return err
			}
			db, err := c.engine.DB(alias)
			if err != nil {
				return err
			}
			_, err = migration.New(db, c.engine.Migrations(), cmd.OutOrStdout()).Rollback(cmd.Context())
			return err
		},
	}
	cmd.Flags().StringVar(&alias, "database", database.DefaultAlias, "Nominates a database to roll back.")
	return cmd
}

// ─── showmigrations ───────────────────────────────────────────────────────────

func newShowMigrationsCmd(c *Commands) *cobra.Command {
	var alias string
	cmd := &cobra.Command{
		Use:   "showmigrations [app_label...]",
		Short: "Shows all available migrations for the current project.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ready(); err != nil {
				return err
			}
			apps, err := c.targetApps(args)
			if err != nil {
				return err
			}
			if len(apps) == 0 {
				return nil
			}
			db, err := c.engine.DB(alias)
			if err != nil {
				return err
			}
			labels := make([]string, len(apps))
			for i, app := range apps {
				labels[i] = app.Label
			}
			return migration.New(db, c.engine.Migrations(), cmd.OutOrStdout()).Status(cmd.Context(), labels...)
		},
	}
	cmd.Flags().StringVar(&alias, "database", database.DefaultAlias, "Nominates a database to show migrations for.")
	return cmd
}
