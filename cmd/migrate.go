package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-apikeys/app/database"
	"github.com/vibast-solutions/ms-go-apikeys/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadDatabase()
		if err != nil {
			return err
		}
		cfg.AutoMigrate = false

		db, err := database.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err = database.Migrate(cmd.Context(), db); err != nil {
			return err
		}

		fmt.Printf("schema applied (%s)\n", cfg.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
