package cli

import (
	"context"
	"database/sql"
	"fmt"

	"course-portal/internal/catalog"
	"course-portal/internal/config"
	"course-portal/internal/infra/postgres"
	pgmigrations "course-portal/internal/infra/postgres/migrations"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seedCatalog bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runMigrationsWithConfig(cmd.Context(), cfg, logger, seedCatalog)
		},
	}
	cmd.Flags().BoolVar(&seedCatalog, "seed-catalog", false, "upsert the built-in courses into the courses table")
	return cmd
}

func openBunDB(url string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(url)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, logger *zap.Logger, seedCatalog bool) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := openBunDB(cfg.Postgres.URL)
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if group.IsZero() {
		logger.Info("database schema up to date")
	} else {
		logger.Info("migrations applied", zap.String("group", group.String()))
	}

	if seedCatalog {
		courses := catalog.Default().Courses()
		if err := postgres.SeedCourses(ctx, db, courses); err != nil {
			return err
		}
		logger.Info("catalog seeded", zap.Int("courses", len(courses)))
	}
	return nil
}
