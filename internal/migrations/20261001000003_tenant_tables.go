package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/tenantrx/recordsapi/internal/db/models"
)

func init() {
	Tenant.MustRegister(up_20261001000003, down_20261001000003)
}

var tenantModels = []any{
	(*models.User)(nil),
	(*models.ProviderIdentity)(nil),
	(*models.Role)(nil),
	(*models.UserRole)(nil),
	(*models.RolePermission)(nil),
	(*models.UserFeature)(nil),
	(*models.AuthorizedClient)(nil),
}

// up_20261001000003 creates the identity, permission and authorized-client tables of a tenant database.
func up_20261001000003(ctx context.Context, db *bun.DB) error {
	for _, model := range tenantModels {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_provider_identities_user ON provider_identities(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_authorized_clients_client ON authorized_clients(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_roles_role ON user_roles(role_id)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func down_20261001000003(ctx context.Context, db *bun.DB) error {
	for i := len(tenantModels) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tenantModels[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", tenantModels[i], err)
		}
	}
	return nil
}
