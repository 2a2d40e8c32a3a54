// Package tenantdb routes tenant codes to their isolated databases.
package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/tenantrx/recordsapi/internal/db/bunx"
	"github.com/tenantrx/recordsapi/internal/db/models"
	"github.com/tenantrx/recordsapi/internal/repository"
	"github.com/tenantrx/recordsapi/internal/secrets"
)

// Defaults used when the configuration leaves them unset.
const (
	DefaultCacheSize  = 64
	DefaultCloseGrace = time.Minute
	DefaultStatusTTL  = 30 * time.Second
)

// ErrUnknownTenant is returned for tenant codes that are not registered or are disabled.
var ErrUnknownTenant = errors.New("unknown tenant")

// OpenFunc opens a database handle for a decrypted DSN.
type OpenFunc func(ctx context.Context, dsn string, opts bunx.Options) (*bun.DB, error)

// Router caches one *bun.DB per tenant.
//
// A handle leaving the cache is closed only after the close grace period,
// so requests that fetched it before eviction can finish with it. The
// registry status of a cached tenant is re-read once its status entry
// expires; a tenant found disabled or removed is dropped.
type Router struct {
	tenants repository.TenantRepository
	cipher  secrets.Cipher
	opts    bunx.Options
	open    OpenFunc
	logger  zerolog.Logger

	closeGrace time.Duration
	statusTTL  time.Duration

	mu       sync.Mutex
	handles  *lru.Cache[string, *bun.DB]
	verified *expirable.LRU[string, struct{}]

	retireMu sync.Mutex
	closed   bool
	retiring map[*bun.DB]*retiredHandle
}

type retiredHandle struct {
	tenant string
	timer  *time.Timer
}

// Option configures a Router.
type Option func(*Router)

// WithOpenFunc replaces bunx.NewDB.
func WithOpenFunc(open OpenFunc) Option {
	return func(r *Router) { r.open = open }
}

// WithPoolOptions sets the pool options for tenant handles.
func WithPoolOptions(opts bunx.Options) Option {
	return func(r *Router) { r.opts = opts }
}

// WithCloseGrace sets how long an evicted handle stays open. Zero closes
// evicted handles immediately.
func WithCloseGrace(d time.Duration) Option {
	return func(r *Router) { r.closeGrace = d }
}

// WithStatusTTL sets how long a tenant's enabled status is trusted before
// the registry is consulted again.
func WithStatusTTL(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.statusTTL = d
		}
	}
}

// NewRouter creates a router holding at most cacheSize open handles.
func NewRouter(tenants repository.TenantRepository, cipher secrets.Cipher, cacheSize int, logger zerolog.Logger, opts ...Option) (*Router, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	r := &Router{
		tenants:    tenants,
		cipher:     cipher,
		open:       bunx.NewDB,
		logger:     logger.With().Str("component", "tenantdb").Logger(),
		closeGrace: DefaultCloseGrace,
		statusTTL:  DefaultStatusTTL,
		retiring:   map[*bun.DB]*retiredHandle{},
	}
	for _, opt := range opts {
		opt(r)
	}

	handles, err := lru.NewWithEvict(cacheSize, r.retire)
	if err != nil {
		return nil, fmt.Errorf("create tenant handle cache: %w", err)
	}
	r.handles = handles
	r.verified = expirable.NewLRU[string, struct{}](cacheSize, nil, r.statusTTL)

	return r, nil
}

var _ repository.TenantDBs = (*Router)(nil)

// DB returns the handle for tenantID, opening it on first use.
func (r *Router) DB(ctx context.Context, tenantID string) (*bun.DB, error) {
	if db, ok := r.handles.Get(tenantID); ok {
		if _, fresh := r.verified.Get(tenantID); fresh {
			return db, nil
		}
		if _, err := r.lookup(ctx, tenantID); err != nil {
			if errors.Is(err, ErrUnknownTenant) {
				r.logger.Info().Str("tenant", tenantID).Msg("dropping handle of tenant no longer routable")
				r.Evict(tenantID)
			}
			return nil, err
		}
		r.verified.Add(tenantID, struct{}{})
		return db, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another caller may have opened it while we waited
	if db, ok := r.handles.Get(tenantID); ok {
		return db, nil
	}

	tenant, err := r.lookup(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	dsn, err := r.cipher.Decrypt(tenant.DSNCiphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt dsn for tenant %s: %w", tenantID, err)
	}

	db, err := r.open(ctx, string(dsn), r.opts)
	if err != nil {
		return nil, fmt.Errorf("open database for tenant %s: %w", tenantID, err)
	}

	r.handles.Add(tenantID, db)
	r.verified.Add(tenantID, struct{}{})
	r.logger.Info().Str("tenant", tenantID).Msg("opened tenant database")
	return db, nil
}

// lookup returns the registry row of a routable tenant.
func (r *Router) lookup(ctx context.Context, tenantID string) (*models.Tenant, error) {
	tenant, err := r.tenants.GetByCode(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTenant, tenantID)
		}
		return nil, fmt.Errorf("look up tenant %s: %w", tenantID, err)
	}
	if !tenant.Enabled {
		return nil, fmt.Errorf("%w: %s is disabled", ErrUnknownTenant, tenantID)
	}
	return tenant, nil
}

// retire is the eviction callback. The handle is closed after the grace
// period, or at once when the router is closed or has no grace.
func (r *Router) retire(tenantID string, db *bun.DB) {
	r.verified.Remove(tenantID)

	r.retireMu.Lock()
	defer r.retireMu.Unlock()

	if r.closed || r.closeGrace <= 0 {
		r.closeHandle(tenantID, db)
		return
	}
	r.retiring[db] = &retiredHandle{
		tenant: tenantID,
		timer: time.AfterFunc(r.closeGrace, func() {
			r.retireMu.Lock()
			delete(r.retiring, db)
			r.retireMu.Unlock()
			r.closeHandle(tenantID, db)
		}),
	}
	r.logger.Debug().Str("tenant", tenantID).Dur("grace", r.closeGrace).Msg("tenant handle evicted")
}

func (r *Router) closeHandle(tenantID string, db *bun.DB) {
	if err := db.Close(); err != nil {
		r.logger.Warn().Err(err).Str("tenant", tenantID).Msg("close tenant handle")
		return
	}
	r.logger.Debug().Str("tenant", tenantID).Msg("closed tenant handle")
}

// Evict forgets the handle for tenantID, if open. The handle itself is
// closed after the grace period.
func (r *Router) Evict(tenantID string) {
	r.handles.Remove(tenantID)
}

// Recheck forgets every cached tenant status, so the next request for each
// tenant consults the registry again.
func (r *Router) Recheck() {
	r.verified.Purge()
}

// Len reports the number of cached handles.
func (r *Router) Len() int { return r.handles.Len() }

// Close closes every handle, including evicted ones still in their grace period.
func (r *Router) Close() {
	r.retireMu.Lock()
	r.closed = true
	pending := r.retiring
	r.retiring = map[*bun.DB]*retiredHandle{}
	r.retireMu.Unlock()

	r.handles.Purge()
	for db, h := range pending {
		if h.timer.Stop() {
			r.closeHandle(h.tenant, db)
		}
	}
}
