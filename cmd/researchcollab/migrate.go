package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			store, err := a.connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := a.migrate(store); err != nil {
				return err
			}
			a.logger.Info("Migrations applied")
			return nil
		},
	}
}
