package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/database"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/logging"
)

func buildMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations to the results database",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.cfg.Database.Enabled() {
				return fmt.Errorf("no results database configured (set PGHOST)")
			}
			if err := database.MigrateURL(a.cfg.Database.ConnectionString(), a.logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s\n", logging.SanitizeURI(a.cfg.Database.ConnectionString()))
			return nil
		},
	}
}
