package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"groupman/internal/config"
	internaldb "groupman/internal/db"
)

func newMigrateCmd(g *globals) *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite schema migrations",
		Long:  "Apply pending migrations to the SQLite record store, or report the applied version with --status.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cfg.Store.Driver != config.DriverSQLite {
				return fmt.Errorf("migrate: store driver %q has no schema migrations", cfg.Store.Driver)
			}

			db, err := internaldb.OpenSQLite(cfg.Store.MetaDBPath, internaldb.ModeWrite, 1)
			if err != nil {
				return fmt.Errorf("open sqlite: %w", err)
			}
			defer func() { _ = db.Close() }()

			if !statusOnly {
				if err := internaldb.RunMigrations(db); err != nil {
					return err
				}
			}
			v, err := internaldb.MigrationVersion(db)
			if err != nil {
				return errors.Join(errors.New("read migration version"), err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d\n", cfg.Store.MetaDBPath, v)
			return nil
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "only report the applied version")
	return cmd
}
