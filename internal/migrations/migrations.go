package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

// Registry holds migrations for the control-plane database (tenant
// registry, client catalog, role policy).
var Registry = migrate.NewMigrations()

// Tenant holds migrations applied to every tenant database.
var Tenant = migrate.NewMigrations()

// IsSQLite checks if the database is SQLite.
func IsSQLite(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.SQLite
}

// IsPostgreSQL checks if the database is PostgreSQL.
func IsPostgreSQL(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.PG
}

// NewRegistryMigrator returns a migrator for the control-plane database.
func NewRegistryMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, Registry)
}

// NewTenantMigrator returns a migrator for a tenant database. Tenant
// migrations are tracked in their own tables so a tenant may share a
// database with the registry in small deployments.
func NewTenantMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, Tenant,
		migrate.WithTableName("bun_tenant_migrations"),
		migrate.WithLocksTableName("bun_tenant_migration_locks"),
	)
}

// Apply initializes the migrator tables and applies pending migrations
// under the migration lock.
func Apply(ctx context.Context, migrator *migrate.Migrator) (group *migrate.MigrationGroup, err error) {
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("initialize migrator: %w", err)
	}
	if err := migrator.Lock(ctx); err != nil {
		return nil, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if unlockErr := migrator.Unlock(ctx); unlockErr != nil && err == nil {
			err = fmt.Errorf("release migration lock: %w", unlockErr)
		}
	}()

	group, err = migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return group, nil
}
