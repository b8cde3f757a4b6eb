package cmd

import (
	"github.com/sidhant-sriv/smart-renter/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Create or update the users, properties, bookings and reviews tables.

Examples:
  smart-renter migrate
  smart-renter migrate --env-file staging.env`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		conn, err := db.Open(cfg.DatabaseURL, cfg.IsDevelopment())
		if err != nil {
			return err
		}
		defer db.Close(conn)

		if err := db.Migrate(conn); err != nil {
			return err
		}
		logger.Info("database migrated")
		return nil
	},
}
