package iam

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tenantrx/recordsapi/internal/auth"
)

// DefaultIdentitySystem discriminates external-provider identities when
// they are reconciled against a tenant's native user directory.
const DefaultIdentitySystem = "OKTA"

// ContextQuery keys a permission-context load. Exactly one of UserID and
// Subject is set for user variants; neither is set for client credentials.
type ContextQuery struct {
	TenantID string
	UserID   *int64
	// Subject and IdentitySystem identify an external-provider identity.
	Subject        string
	IdentitySystem string
	Partial        bool
}

// PermissionStore loads identity and permission contexts from a tenant's store.
// A nil context with a nil error means nothing matched.
type PermissionStore interface {
	LoadContext(ctx context.Context, q ContextQuery) (*auth.PermissionContext, error)
}

// LoginValidator re-validates a resolved user against the tenant.
type LoginValidator interface {
	Validate(ctx context.Context, tenantID string, userID int64) error
}

// LoadRequest is the loader input for one resolution.
type LoadRequest struct {
	Variant      auth.Variant
	TenantID     *string
	UserIdentity string
	ClientID     string
	Scopes       auth.Set
	Partial      bool
}

// ContextLoader fetches the tenant-scoped permission context for a
// classified token, running the guards each variant requires.
type ContextLoader struct {
	store          PermissionStore
	clients        *ClientGuard
	logins         LoginValidator
	identitySystem string
	now            func() time.Time
}

// LoaderOption configures a ContextLoader.
type LoaderOption func(*ContextLoader)

// WithIdentitySystem overrides DefaultIdentitySystem.
func WithIdentitySystem(system string) LoaderOption {
	return func(l *ContextLoader) {
		if system != "" {
			l.identitySystem = system
		}
	}
}

// WithClock replaces time.Now for the expiration guard.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *ContextLoader) { l.now = now }
}

// NewContextLoader creates a loader over the tenant collaborators.
func NewContextLoader(store PermissionStore, clients *ClientGuard, logins LoginValidator, opts ...LoaderOption) *ContextLoader {
	l := &ContextLoader{
		store:          store,
		clients:        clients,
		logins:         logins,
		identitySystem: DefaultIdentitySystem,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load dispatches on the variant. Store errors become Unauthorized; a
// missing context, or a missing user for a user variant, is Unauthorized
// naming the variant and identity attempted.
func (l *ContextLoader) Load(ctx context.Context, req LoadRequest) (*auth.PermissionContext, error) {
	if req.TenantID == nil {
		return nil, auth.Unauthorizedf("no tenant resolved for %s identity %q", req.Variant, l.identityLabel(req))
	}
	tenantID := *req.TenantID

	logger := zerolog.Ctx(ctx).With().
		Str("stage", "load").
		Str("variant", req.Variant.String()).
		Str("tenant", tenantID).
		Bool("partial", req.Partial).
		Logger()

	switch req.Variant {
	case auth.VariantLegacyClientCredentials:
		return l.loadClient(ctx, req, tenantID, false)

	case auth.VariantOktaClientCredentials:
		return l.loadClient(ctx, req, tenantID, true)

	case auth.VariantLegacyProvider:
		return l.loadNative(ctx, req, tenantID, false)

	case auth.VariantOktaThirdParty:
		return l.loadNative(ctx, req, tenantID, true)

	case auth.VariantOktaProvider:
		pc, err := l.fetch(ctx, req, ContextQuery{
			TenantID:       tenantID,
			Subject:        req.UserIdentity,
			IdentitySystem: l.identitySystem,
			Partial:        req.Partial,
		})
		if err != nil {
			return nil, err
		}
		if err := requireUser(pc, req); err != nil {
			return nil, err
		}
		if err := CheckValidity(pc.ValidFrom, pc.ValidTo, l.now()); err != nil {
			logger.Info().Err(err).Msg("external identity outside validity window")
			return nil, err
		}
		if err := l.logins.Validate(ctx, tenantID, pc.User.ID); err != nil {
			return nil, auth.Wrap(auth.KindUnauthorized, err, "login validation failed for user %d in tenant %q", pc.User.ID, tenantID)
		}
		if err := l.clients.Check(ctx, tenantID, req.ClientID, req.Scopes); err != nil {
			return nil, err
		}
		return pc, nil

	default:
		return nil, auth.BadRequestf("unsupported authentication variant %q", req.Variant)
	}
}

func (l *ContextLoader) loadClient(ctx context.Context, req LoadRequest, tenantID string, guarded bool) (*auth.PermissionContext, error) {
	pc, err := l.fetch(ctx, req, ContextQuery{TenantID: tenantID, Partial: req.Partial})
	if err != nil {
		return nil, err
	}
	if pc == nil {
		return nil, auth.Unauthorizedf("no context for %s client %q in tenant %q", req.Variant, req.ClientID, tenantID)
	}
	if guarded {
		if err := l.clients.Check(ctx, tenantID, req.ClientID, req.Scopes); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

func (l *ContextLoader) loadNative(ctx context.Context, req LoadRequest, tenantID string, guarded bool) (*auth.PermissionContext, error) {
	userID, err := strconv.ParseInt(req.UserIdentity, 10, 64)
	if err != nil {
		return nil, auth.Wrap(auth.KindUnauthorized, err, "%s identity %q is not a numeric user id", req.Variant, req.UserIdentity)
	}

	pc, err := l.fetch(ctx, req, ContextQuery{TenantID: tenantID, UserID: &userID, Partial: req.Partial})
	if err != nil {
		return nil, err
	}
	if err := requireUser(pc, req); err != nil {
		return nil, err
	}
	if guarded {
		if err := l.clients.Check(ctx, tenantID, req.ClientID, req.Scopes); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

func (l *ContextLoader) fetch(ctx context.Context, req LoadRequest, q ContextQuery) (*auth.PermissionContext, error) {
	pc, err := l.store.LoadContext(ctx, q)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("stage", "load").
			Str("variant", req.Variant.String()).
			Str("tenant", q.TenantID).
			Msg("permission store failed")
		return nil, auth.Wrap(auth.KindUnauthorized, err, "load %s context for %q in tenant %q", req.Variant, l.identityLabel(req), q.TenantID)
	}
	return pc, nil
}

func requireUser(pc *auth.PermissionContext, req LoadRequest) error {
	if pc == nil || pc.User == nil {
		return auth.Unauthorizedf("no user found for %s identity %q", req.Variant, req.UserIdentity)
	}
	return nil
}

// identityLabel names the identity a request attempted, for error messages.
func (l *ContextLoader) identityLabel(req LoadRequest) string {
	if req.Variant.CarriesUser() && req.UserIdentity != "" {
		return req.UserIdentity
	}
	return req.ClientID
}
