package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medflow/idscan/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := database.New(&cfg.Database, newLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		applied, err := db.Migrate(cmd.Context())
		if err != nil {
			return err
		}

		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		}
		for _, v := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
		}
		return nil
	},
}
