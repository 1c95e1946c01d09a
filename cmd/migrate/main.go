package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"bookshelf/internal/config"
	"bookshelf/internal/platform/database"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func main() {
	config.LoadEnvFiles()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	dir string
	dsn string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply and inspect the books schema migrations",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.dir, "dir", migrationsDir(), "migrations directory")
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "database DSN (defaults to DB_DSN or DB_* settings)")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), opts, func(db *sql.DB) error {
					if err := goose.UpContext(cmd.Context(), db, opts.dir); err != nil {
						return fmt.Errorf("failed to run migrations: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), opts, func(db *sql.DB) error {
					if err := goose.DownContext(cmd.Context(), db, opts.dir); err != nil {
						return fmt.Errorf("failed to rollback migrations: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Migrations rolled back successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the state of every migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), opts, func(db *sql.DB) error {
					if err := goose.StatusContext(cmd.Context(), db, opts.dir); err != nil {
						return fmt.Errorf("failed to check migration status: %w", err)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create a new SQL migration file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := goose.Create(nil, opts.dir, args[0], "sql"); err != nil {
					return fmt.Errorf("failed to create migration: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Migration created: %s\n", args[0])
				return nil
			},
		},
	)
	return root
}

// withDB opens a pgx pool, exposes it as *sql.DB for goose and closes both.
func withDB(ctx context.Context, opts *options, fn func(*sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	dsn := opts.dsn
	if dsn == "" {
		var err error
		if dsn, err = databaseDSN(); err != nil {
			return err
		}
	}

	pool, err := database.OpenPostgres(ctx, dsn, 2)
	if err != nil {
		return err
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return fn(db)
}
