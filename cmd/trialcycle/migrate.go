package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/trialcycle/migrations"
	"github.com/dmitrymomot/trialcycle/pkg/pg"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			base, err := load[appConfig]()
			if err != nil {
				return err
			}
			log := newLogger(base)

			cfg, err := load[pg.Config]()
			if err != nil {
				return err
			}
			pool, err := pg.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			return pg.Migrate(ctx, pool, cfg, migrations.FS, log)
		},
	}
}
