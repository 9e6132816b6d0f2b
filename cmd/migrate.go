package cmd

import (
	"github.com/joy095/staybook/config/db"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openStack(ctx, true, false)
			if err != nil {
				return err
			}
			defer s.close()

			return db.Migrate(ctx, s.gdb, s.pool)
		},
	}
}
