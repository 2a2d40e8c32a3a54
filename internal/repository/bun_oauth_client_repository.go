package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/tenantrx/recordsapi/internal/db/models"
)

// BunOAuthClientRepository implements OAuthClientRepository using Bun ORM.
type BunOAuthClientRepository struct {
	db *bun.DB
}

// NewBunOAuthClientRepository creates a new Bun-based client metadata repository.
func NewBunOAuthClientRepository(db *bun.DB) *BunOAuthClientRepository {
	return &BunOAuthClientRepository{db: db}
}

// Upsert inserts client or replaces its metadata.
func (r *BunOAuthClientRepository) Upsert(ctx context.Context, client *models.OAuthClient) error {
	_, err := r.db.NewInsert().
		Model(client).
		On("CONFLICT (client_id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("scopes = EXCLUDED.scopes").
		Set("first_party = EXCLUDED.first_party").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert oauth client %s: %w", client.ClientID, err)
	}
	return nil
}

// GetByClientID returns the client, or ErrNotFound.
func (r *BunOAuthClientRepository) GetByClientID(ctx context.Context, clientID string) (*models.OAuthClient, error) {
	client := new(models.OAuthClient)
	err := r.db.NewSelect().
		Model(client).
		Where("client_id = ?", clientID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("oauth client %s: %w", clientID, ErrNotFound)
		}
		return nil, fmt.Errorf("get oauth client %s: %w", clientID, err)
	}
	return client, nil
}
