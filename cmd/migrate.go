package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pokequest/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(cmd, false)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(cmd, true)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

func runMigrations(cmd *cobra.Command, down bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, err := db.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(conn, cfg.Database.Driver, down); err != nil {
		return err
	}
	direction := "up"
	if down {
		direction = "down"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrations %s: done (%s)\n", direction, cfg.Database.Driver)
	return nil
}
