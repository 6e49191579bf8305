package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/migrations"
	"github.com/campusdesk/college-admin-api/pkg/database"
)

func migrateCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := runMigrations(cmd.Context(), a.db, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	}
}

func runMigrations(ctx context.Context, db *sqlx.DB, logger *zap.Logger) (int, error) {
	scripts, err := migrations.All()
	if err != nil {
		return 0, fmt.Errorf("load migrations: %w", err)
	}
	for _, s := range scripts {
		logger.Info("applying migration", zap.String("script", s.Name))
	}
	if err := database.Migrate(ctx, db, scripts); err != nil {
		return 0, err
	}
	return len(scripts), nil
}
