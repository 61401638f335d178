package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Rath300/research-collab/internal/seed"
)

func newSeedCommand() *cobra.Command {
	var (
		tenant  string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load YAML fixtures into a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant %q: %w", tenant, err)
			}

			a, err := newApp()
			if err != nil {
				return err
			}

			fixtures, err := seed.Load(args[0])
			if err != nil {
				return err
			}

			store, err := a.connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if migrate {
				if err := a.migrate(store); err != nil {
					return err
				}
			}

			summary, err := seed.NewSeeder(store, a.logger).Seed(cmd.Context(), tenantID, fixtures)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d profiles, %d posts, %d projects, %d collaborators, %d matches; skipped %d\n",
				summary.Profiles, summary.Posts, summary.Projects, summary.Collaborators, summary.Matches, summary.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id to seed")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations first")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
