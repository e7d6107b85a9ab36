package cli

import (
	"context"
	"time"

	"contest-engine/internal/config"
	"contest-engine/internal/database"
	"contest-engine/internal/logger"

	"github.com/spf13/cobra"
)

// NewMigrateCmd applies the database schema.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context())
		},
	}
}

func runMigrations(parentCtx context.Context) error {
	log := logger.New(true)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(parentCtx, 30*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}
	log.Info().Msg("schema applied")
	return nil
}
