package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/tenantrx/recordsapi/cmd/recordsapi/cmd/cmdutil"
	"github.com/tenantrx/recordsapi/internal/db/bunx"
	"github.com/tenantrx/recordsapi/internal/migrations"
)

var (
	dbTenant     string
	dbAllTenants bool
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long: `Commands for managing database migrations. Without --tenant or --all-tenants
they act on the registry database.`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Applies all pending migrations with locking to prevent concurrent migrations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachMigrator(cmd, func(target string, migrator *migrate.Migrator) error {
			group, err := migrations.Apply(cmd.Context(), migrator)
			if err != nil {
				return fmt.Errorf("%s: migration failed: %w", target, err)
			}
			if group.IsZero() {
				logger.Info().Str("target", target).Msg("No new migrations to apply")
			} else {
				logger.Info().Str("target", target).Int64("group", group.ID).Msg("Applied migration group")
			}
			return nil
		})
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachMigrator(cmd, func(target string, migrator *migrate.Migrator) error {
			if err := migrator.Init(cmd.Context()); err != nil {
				return fmt.Errorf("%s: initialize migrator: %w", target, err)
			}
			ms, err := migrator.MigrationsWithStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s: failed to get migration status: %w", target, err)
			}
			pterm.Fprintln(cmd.OutOrStdout(), pterm.DefaultSection.Sprint(target))
			table := pterm.TableData{{"MIGRATION", "STATUS"}}
			for _, m := range ms {
				status := "pending"
				if m.GroupID > 0 {
					status = fmt.Sprintf("applied (group %d)", m.GroupID)
				}
				table = append(table, []string{m.Name, status})
			}
			return renderTable(cmd, table)
		})
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback last migration group",
	Long:  `Rolls back the most recently applied migration group with locking to prevent concurrent operations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachMigrator(cmd, func(target string, migrator *migrate.Migrator) error {
			ctx := cmd.Context()
			if err := migrator.Lock(ctx); err != nil {
				return fmt.Errorf("%s: failed to acquire migration lock: %w", target, err)
			}
			defer func() {
				if err := migrator.Unlock(ctx); err != nil {
					logger.Warn().Err(err).Str("target", target).Msg("failed to release migration lock")
				}
			}()

			group, err := migrator.Rollback(ctx)
			if err != nil {
				return fmt.Errorf("%s: rollback failed: %w", target, err)
			}
			if group.IsZero() {
				logger.Info().Str("target", target).Msg("No migrations to rollback")
			} else {
				logger.Info().Str("target", target).Int64("group", group.ID).Msg("Rolled back migration group")
			}
			return nil
		})
	},
}

var dbUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Force release migration lock",
	Long:  `Force releases the migration lock. Use this if a migration crashed while holding the lock.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachMigrator(cmd, func(target string, migrator *migrate.Migrator) error {
			if err := migrator.Unlock(cmd.Context()); err != nil {
				return fmt.Errorf("%s: failed to release migration lock: %w", target, err)
			}
			logger.Info().Str("target", target).Msg("Migration lock released")
			return nil
		})
	},
}

// forEachMigrator runs fn against the registry migrator, or against the
// tenant migrator of each selected tenant.
func forEachMigrator(cmd *cobra.Command, fn func(target string, migrator *migrate.Migrator) error) error {
	ctx := cmd.Context()

	if dbTenant == "" && !dbAllTenants {
		db, err := bunx.NewDB(ctx, cfg.DatabaseURL, bunx.Options{})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)
		return fn("registry", migrations.NewRegistryMigrator(db))
	}

	rt, err := cmdutil.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	codes := []string{dbTenant}
	if dbAllTenants {
		tenants, err := rt.Tenants.List(ctx)
		if err != nil {
			return err
		}
		codes = codes[:0]
		for _, t := range tenants {
			if t.Enabled {
				codes = append(codes, t.Code)
			}
		}
	}

	for _, code := range codes {
		db, err := rt.Router.DB(ctx, code)
		if err != nil {
			return err
		}
		if err := fn("tenant:"+code, migrations.NewTenantMigrator(db)); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	dbCmd.PersistentFlags().StringVar(&dbTenant, "tenant", "", "Act on this tenant's database")
	dbCmd.PersistentFlags().BoolVar(&dbAllTenants, "all-tenants", false, "Act on every enabled tenant's database")
	dbCmd.MarkFlagsMutuallyExclusive("tenant", "all-tenants")

	dbCmd.AddCommand(dbMigrateCmd, dbStatusCmd, dbRollbackCmd, dbUnlockCmd)
}
