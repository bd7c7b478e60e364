package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/subscription-tracker/internal/migrations"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStorage(cmd, func(db *repository.Storage, path string) error {
				return migrations.Down(db.DB, path, steps)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStorage(cmd, func(db *repository.Storage, path string) error {
					return migrations.Run(db.DB, path)
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStorage(cmd, func(db *repository.Storage, path string) error {
					v, dirty, err := migrations.Version(db.DB, path)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %t\n", v, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

func withStorage(cmd *cobra.Command, fn func(db *repository.Storage, migrationsPath string) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := repository.New(cmd.Context(), cfg.StorageConnectionString)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(db, cfg.MigrationsPath)
}
