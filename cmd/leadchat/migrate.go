package main

import (
	"errors"

	"github.com/greenoffice/leadchat/pkg/adapters/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the database schema",
}

func migrateRun(dir postgres.Direction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return errors.New("database.url is not configured")
		}
		return postgres.Migrate(cfg.Database.URL, dir, quietLogger(cmd, cfg))
	}
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  migrateRun(postgres.Up),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	RunE:  migrateRun(postgres.Down),
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}
