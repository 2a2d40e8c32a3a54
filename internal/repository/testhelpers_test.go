package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tenantrx/recordsapi/internal/db/bunx"
	"github.com/tenantrx/recordsapi/internal/migrations"
)

// openMemoryDB opens a private in-memory SQLite database.
func openMemoryDB(t *testing.T) *bun.DB {
	t.Helper()
	db, err := bunx.NewDB(context.Background(), "file::memory:", bunx.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })
	return db
}

// setupRegistryDB returns a migrated, seeded registry database.
func setupRegistryDB(t *testing.T) *bun.DB {
	t.Helper()
	db := openMemoryDB(t)
	_, err := migrations.Apply(context.Background(), migrations.NewRegistryMigrator(db))
	require.NoError(t, err)
	return db
}

// setupTenantDB returns a migrated tenant database.
func setupTenantDB(t *testing.T) *bun.DB {
	t.Helper()
	db := openMemoryDB(t)
	_, err := migrations.Apply(context.Background(), migrations.NewTenantMigrator(db))
	require.NoError(t, err)
	return db
}

// staticTenantDBs routes tenant codes to fixed handles.
type staticTenantDBs map[string]*bun.DB

func (s staticTenantDBs) DB(ctx context.Context, tenantID string) (*bun.DB, error) {
	db, ok := s[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, ErrNotFound)
	}
	return db, nil
}
