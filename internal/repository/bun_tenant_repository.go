package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/tenantrx/recordsapi/internal/db/models"
)

// BunTenantRepository implements TenantRepository using Bun ORM.
type BunTenantRepository struct {
	db *bun.DB
}

// NewBunTenantRepository creates a new Bun-based tenant repository.
func NewBunTenantRepository(db *bun.DB) *BunTenantRepository {
	return &BunTenantRepository{db: db}
}

// Create registers a tenant.
func (r *BunTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	if _, err := r.db.NewInsert().Model(tenant).Exec(ctx); err != nil {
		return fmt.Errorf("create tenant %s: %w", tenant.Code, err)
	}
	return nil
}

// GetByCode returns the tenant with code, or ErrNotFound.
func (r *BunTenantRepository) GetByCode(ctx context.Context, code string) (*models.Tenant, error) {
	tenant := new(models.Tenant)
	err := r.db.NewSelect().
		Model(tenant).
		Where("code = ?", code).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("get tenant %s: %w", code, err)
	}
	return tenant, nil
}

// List returns all tenants ordered by code.
func (r *BunTenantRepository) List(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	if err := r.db.NewSelect().Model(&tenants).Order("code ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

// SetEnabled toggles whether a tenant may be routed to.
func (r *BunTenantRepository) SetEnabled(ctx context.Context, code string, enabled bool) error {
	res, err := r.db.NewUpdate().
		Model((*models.Tenant)(nil)).
		Set("enabled = ?", enabled).
		Set("updated_at = ?", time.Now().UTC()).
		Where("code = ?", code).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update tenant %s: %w", code, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("tenant %s: %w", code, ErrNotFound)
	}
	return nil
}
