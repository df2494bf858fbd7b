package main

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
)

func migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(func(db *sql.DB, _ config.Config, log *zap.Logger) error {
					if err := database.MigrateUp(db); err != nil {
						return err
					}
					log.Info("migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "roll back migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("invalid steps %q", args[0])
					}
					steps = n
				}
				return withDB(func(db *sql.DB, _ config.Config, log *zap.Logger) error {
					if err := database.MigrateDown(db, steps); err != nil {
						return err
					}
					log.Info("migrations rolled back", zap.Int("steps", steps))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(func(db *sql.DB, _ config.Config, _ *zap.Logger) error {
					v, dirty, err := database.Version(db)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

// withDB opens the database for a one-shot command.
func withDB(fn func(db *sql.DB, cfg config.Config, log *zap.Logger) error) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(dbOptions(cfg))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return fn(db, cfg, log)
}
