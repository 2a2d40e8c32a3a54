package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantrx/recordsapi/internal/auth"
	"github.com/tenantrx/recordsapi/internal/db/models"
	"github.com/tenantrx/recordsapi/internal/services/iam"
	"github.com/tenantrx/recordsapi/internal/services/validation"
)

func newTestAuthorizedClients(t *testing.T) (*BunAuthorizedClientRepository, staticTenantDBs) {
	t.Helper()
	validator, err := validation.NewDocumentValidator(4)
	require.NoError(t, err)
	dbs := staticTenantDBs{"ACME": setupTenantDB(t), "BETA": setupTenantDB(t)}
	return NewBunAuthorizedClientRepository(dbs, validator), dbs
}

func TestBunAuthorizedClientRepository_AuthorizeSearchRevoke(t *testing.T) {
	repo, _ := newTestAuthorizedClients(t)
	ctx := context.Background()

	row, err := repo.Authorize(ctx, "ACME", validation.AuthorizedClientDocument{
		ClientID:  "partner",
		GrantedBy: "ops@acme.test",
		Scopes:    []string{"records:read"},
	})
	require.NoError(t, err)
	assert.Len(t, row.ID, 36)
	assert.Contains(t, row.Document, `"schema_version":2`)

	matches, err := repo.Search(ctx, "ACME", "partner")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = repo.Search(ctx, "BETA", "partner")
	require.NoError(t, err)
	assert.Empty(t, matches)

	n, err := repo.Revoke(ctx, "ACME", "partner")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	matches, err = repo.Search(ctx, "ACME", "partner")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestBunAuthorizedClientRepository_LegacyDocuments(t *testing.T) {
	repo, dbs := newTestAuthorizedClients(t)
	ctx := context.Background()

	_, err := dbs["ACME"].NewInsert().Model(&models.AuthorizedClient{
		ID: "legacy-1", ClientID: "partner", Document: `{"schema_version":1,"client_id":"partner"}`, CreatedAt: time.Now(),
	}).Exec(ctx)
	require.NoError(t, err)

	matches, err := repo.Search(ctx, "ACME", "partner")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestBunAuthorizedClientRepository_UnsupportedVersion(t *testing.T) {
	repo, dbs := newTestAuthorizedClients(t)
	ctx := context.Background()

	_, err := dbs["ACME"].NewInsert().Model(&models.AuthorizedClient{
		ID: "future-1", ClientID: "partner", Document: `{"schema_version":9,"client_id":"partner"}`, CreatedAt: time.Now(),
	}).Exec(ctx)
	require.NoError(t, err)

	_, err = repo.Search(ctx, "ACME", "partner")
	assert.ErrorIs(t, err, validation.ErrUnsupportedSchemaVersion)

	// the guard turns it into a bad request
	guard := iam.NewClientGuard(repo)
	err = guard.Check(ctx, "ACME", "partner", auth.NewSet())
	assert.Equal(t, auth.KindBadRequest, auth.KindOf(err))
}
