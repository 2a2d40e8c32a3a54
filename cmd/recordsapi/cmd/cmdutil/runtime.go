package cmdutil

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/tenantrx/recordsapi/internal/config"
	"github.com/tenantrx/recordsapi/internal/db/bunx"
	"github.com/tenantrx/recordsapi/internal/repository"
	"github.com/tenantrx/recordsapi/internal/secrets"
	"github.com/tenantrx/recordsapi/internal/tenantdb"
)

// Runtime bundles the control-plane connection and tenant routing shared by
// the server and the admin commands.
type Runtime struct {
	Registry *bun.DB
	Tenants  *repository.BunTenantRepository
	Cipher   secrets.Cipher
	Router   *tenantdb.Router
}

// NewRuntime connects to the registry database and prepares tenant routing.
func NewRuntime(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Runtime, error) {
	if err := cfg.RequireSecrets(); err != nil {
		return nil, err
	}

	cipher, err := secrets.NewJWECipher([]byte(cfg.Secrets.MasterKey), []byte(cfg.Secrets.Salt))
	if err != nil {
		return nil, fmt.Errorf("create secrets cipher: %w", err)
	}

	db, err := bunx.NewDB(ctx, cfg.DatabaseURL, bunx.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to registry database: %w", err)
	}

	tenants := repository.NewBunTenantRepository(db)
	router, err := tenantdb.NewRouter(tenants, cipher, cfg.Tenants.CacheSize, logger,
		tenantdb.WithPoolOptions(bunx.Options{MaxOpenConns: cfg.Tenants.MaxOpenConns}),
		tenantdb.WithStatusTTL(cfg.Tenants.StatusTTL),
		tenantdb.WithCloseGrace(cfg.Tenants.CloseGrace),
	)
	if err != nil {
		bunx.Close(db)
		return nil, err
	}

	return &Runtime{Registry: db, Tenants: tenants, Cipher: cipher, Router: router}, nil
}

// Close releases tenant handles and the registry connection.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Router != nil {
		rt.Router.Close()
	}
	bunx.Close(rt.Registry)
}
