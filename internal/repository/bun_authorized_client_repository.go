package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tenantrx/recordsapi/internal/db/bunx"
	"github.com/tenantrx/recordsapi/internal/db/models"
	"github.com/tenantrx/recordsapi/internal/services/iam"
	"github.com/tenantrx/recordsapi/internal/services/validation"
)

// BunAuthorizedClientRepository implements iam.ClientRegistry over tenant
// databases. Every document read back is validated against its declared
// schema version.
type BunAuthorizedClientRepository struct {
	dbs       TenantDBs
	validator *validation.DocumentValidator
}

// NewBunAuthorizedClientRepository creates the registry.
func NewBunAuthorizedClientRepository(dbs TenantDBs, validator *validation.DocumentValidator) *BunAuthorizedClientRepository {
	return &BunAuthorizedClientRepository{dbs: dbs, validator: validator}
}

var _ iam.ClientRegistry = (*BunAuthorizedClientRepository)(nil)

// Search returns the tenant's allow-list entries for clientID. A stored
// document with an unknown schema version fails with
// validation.ErrUnsupportedSchemaVersion.
func (r *BunAuthorizedClientRepository) Search(ctx context.Context, tenantID, clientID string) ([]models.AuthorizedClient, error) {
	db, err := r.dbs.DB(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var rows []models.AuthorizedClient
	if err := db.NewSelect().
		Model(&rows).
		Where("ac.client_id = ?", clientID).
		Order("ac.created_at ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("search authorized clients for %s: %w", clientID, err)
	}

	for _, row := range rows {
		if _, err := r.validator.Decode([]byte(row.Document)); err != nil {
			return nil, fmt.Errorf("authorized client %s: %w", row.ID, err)
		}
	}
	return rows, nil
}

// Authorize allow-lists a client in the tenant at the current schema version.
func (r *BunAuthorizedClientRepository) Authorize(ctx context.Context, tenantID string, doc validation.AuthorizedClientDocument) (*models.AuthorizedClient, error) {
	db, err := r.dbs.DB(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if doc.GrantedAt.IsZero() {
		doc.GrantedAt = time.Now().UTC().Truncate(time.Second)
	}
	raw, err := r.validator.Encode(doc)
	if err != nil {
		return nil, err
	}

	row := &models.AuthorizedClient{
		ID:        bunx.NewUUIDv7(),
		ClientID:  doc.ClientID,
		Document:  string(raw),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, fmt.Errorf("authorize client %s: %w", doc.ClientID, err)
	}
	return row, nil
}

// Revoke removes every allow-list entry for clientID in the tenant.
func (r *BunAuthorizedClientRepository) Revoke(ctx context.Context, tenantID, clientID string) (int64, error) {
	db, err := r.dbs.DB(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	res, err := db.NewDelete().
		Model((*models.AuthorizedClient)(nil)).
		Where("client_id = ?", clientID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("revoke client %s: %w", clientID, err)
	}
	return res.RowsAffected()
}
