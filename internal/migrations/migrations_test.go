package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantrx/recordsapi/internal/db/bunx"
	"github.com/tenantrx/recordsapi/internal/db/models"
)

func TestApply_SharedDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := bunx.NewDB(ctx, "file::memory:", bunx.Options{})
	require.NoError(t, err)
	defer bunx.Close(db)

	assert.True(t, IsSQLite(db))
	assert.False(t, IsPostgreSQL(db))

	group, err := Apply(ctx, NewRegistryMigrator(db))
	require.NoError(t, err)
	assert.False(t, group.IsZero())

	group, err = Apply(ctx, NewTenantMigrator(db))
	require.NoError(t, err)
	assert.False(t, group.IsZero(), "tenant migrations are tracked separately")

	group, err = Apply(ctx, NewRegistryMigrator(db))
	require.NoError(t, err)
	assert.True(t, group.IsZero())

	count, err := db.NewSelect().Model((*models.PolicyRule)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(defaultPolicy), count)

	count, err = db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRollback_Tenant(t *testing.T) {
	ctx := context.Background()
	db, err := bunx.NewDB(ctx, "file::memory:", bunx.Options{})
	require.NoError(t, err)
	defer bunx.Close(db)

	migrator := NewTenantMigrator(db)
	_, err = Apply(ctx, migrator)
	require.NoError(t, err)

	group, err := migrator.Rollback(ctx)
	require.NoError(t, err)
	assert.False(t, group.IsZero())

	_, err = db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	assert.Error(t, err)
}
