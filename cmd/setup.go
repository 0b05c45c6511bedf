package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file if missing, initializes the database and
// runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file", "error", err)
		}
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		config = shared.DefaultConfig()
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}

// Migrate applies pending migrations, or rolls back the latest one with --rollback.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	config, err := shared.LoadConfig(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config (run setup first): %w", err)
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		return shared.RollbackMigration(db)
	}

	r.logger.Info("running database migrations")
	return shared.RunMigrations(db)
}
