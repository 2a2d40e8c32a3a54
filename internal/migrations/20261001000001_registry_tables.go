package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/tenantrx/recordsapi/internal/db/models"
)

func init() {
	Registry.MustRegister(up_20261001000001, down_20261001000001)
}

// up_20261001000001 creates the tenant registry, client catalog and role policy tables.
func up_20261001000001(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{
		(*models.Tenant)(nil),
		(*models.OAuthClient)(nil),
		(*models.PolicyRule)(nil),
	} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tenants_enabled ON tenants(enabled)`); err != nil {
		return fmt.Errorf("create tenants enabled index: %w", err)
	}
	return nil
}

func down_20261001000001(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{
		(*models.PolicyRule)(nil),
		(*models.OAuthClient)(nil),
		(*models.Tenant)(nil),
	} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", model, err)
		}
	}
	return nil
}
