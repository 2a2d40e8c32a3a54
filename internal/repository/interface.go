package repository

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"github.com/tenantrx/recordsapi/internal/db/models"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// TenantRepository exposes the control-plane tenant registry.
type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByCode(ctx context.Context, code string) (*models.Tenant, error)
	List(ctx context.Context) ([]models.Tenant, error)
	SetEnabled(ctx context.Context, code string, enabled bool) error
}

// OAuthClientRepository exposes platform-wide OAuth2 client metadata.
type OAuthClientRepository interface {
	Upsert(ctx context.Context, client *models.OAuthClient) error
	GetByClientID(ctx context.Context, clientID string) (*models.OAuthClient, error)
}

// TenantDBs hands out the database handle of a tenant.
type TenantDBs interface {
	DB(ctx context.Context, tenantID string) (*bun.DB, error)
}
