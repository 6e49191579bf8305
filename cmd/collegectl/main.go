// Command collegectl runs administrative tasks against the college admin database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/app"
	"github.com/campusdesk/college-admin-api/pkg/config"
	"github.com/campusdesk/college-admin-api/pkg/database"
	"github.com/campusdesk/college-admin-api/pkg/logger"
)

// App holds what every subcommand needs. It is populated before RunE.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *sqlx.DB
	container *app.Container
}

func main() {
	a := &App{}

	rootCmd := &cobra.Command{
		Use:           "collegectl",
		Short:         "College admin maintenance CLI",
		Long:          "Applies the schema, provisions accounts and writes substitute reports to disk.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	rootCmd.AddCommand(migrateCmd(a))
	rootCmd.AddCommand(createUserCmd(a))
	rootCmd.AddCommand(substituteReportCmd(a))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *App) init(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	a.logger, err = logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	a.db, err = database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	a.container = app.New(cfg, a.db, nil, a.logger)
	return nil
}

func (a *App) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
