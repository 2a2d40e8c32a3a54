package iam

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tenantrx/recordsapi/internal/auth"
	"github.com/tenantrx/recordsapi/internal/telemetry"
)

// Resolver runs the full token-to-security-context pipeline for one request.
// It holds no per-request state and is safe for concurrent use.
type Resolver struct {
	loader         *ContextLoader
	partial        *PartialPolicy
	oktaResourceID string
	metrics        *telemetry.ResolutionMetrics
}

// NewResolver wires the pipeline. metrics may be nil.
func NewResolver(loader *ContextLoader, partial *PartialPolicy, oktaResourceID string, metrics *telemetry.ResolutionMetrics) *Resolver {
	if partial == nil {
		partial = NewPartialPolicy(nil)
	}
	return &Resolver{
		loader:         loader,
		partial:        partial,
		oktaResourceID: oktaResourceID,
		metrics:        metrics,
	}
}

// Resolve turns an authenticated request into its security context. A nil
// authentication fails with KindInvalidAuthentication before any
// collaborator is called.
func (r *Resolver) Resolve(ctx context.Context, authn *auth.Authentication, details auth.RequestDetails) (sc *auth.SecurityContext, err error) {
	start := time.Now()
	var variant auth.Variant

	ctx, span := telemetry.StartResolveSpan(ctx, details.HTTPMethod, details.RequestURI)
	defer func() {
		outcome, kind := telemetry.OutcomeSuccess, ""
		if err != nil {
			outcome, kind = telemetry.OutcomeFailure, string(auth.KindOf(err))
			telemetry.RecordError(span, err)
		}
		span.SetAttributes(attribute.String(telemetry.AttrVariant, variant.String()))
		span.End()
		r.metrics.RecordResolution(ctx, variant.String(), outcome, kind, float64(time.Since(start).Microseconds())/1000)
	}()

	logger := zerolog.Ctx(ctx)

	token, err := auth.NewAdaptedToken(authn)
	if err != nil {
		logger.Info().Str("stage", "adapt").Msg("request carries no authentication")
		return nil, err
	}

	variant = auth.Classify(token, r.oktaResourceID)
	span.SetAttributes(attribute.String(telemetry.AttrClientID, token.ClientID()))
	identity, _ := token.Identity()
	logger.Debug().
		Str("stage", "classify").
		Str("variant", variant.String()).
		Str("client_id", token.ClientID()).
		Msg("token classified")

	tenantID := auth.ResolveTenant(token, variant, details)
	tenantLabel := ""
	if tenantID != nil {
		tenantLabel = *tenantID
		span.SetAttributes(attribute.String(telemetry.AttrTenant, tenantLabel))
	}
	logger.Debug().
		Str("stage", "tenant").
		Str("variant", variant.String()).
		Str("tenant", tenantLabel).
		Msg("tenant resolved")

	partial, overridden := r.partial.Decide(details.HTTPMethod, details.RequestURI)
	logger.Debug().
		Str("stage", "partial").
		Str("method", details.HTTPMethod).
		Str("uri", details.RequestURI).
		Bool("partial", partial).
		Bool("override", overridden).
		Msg("permission load mode chosen")
	telemetry.AddEvent(span, "load_mode",
		attribute.Bool("partial", partial),
		attribute.Bool("override", overridden),
	)

	pc, err := r.loader.Load(ctx, LoadRequest{
		Variant:      variant,
		TenantID:     tenantID,
		UserIdentity: identity.UserIdentity,
		ClientID:     token.ClientID(),
		Scopes:       token.Scopes(),
		Partial:      partial,
	})
	if err != nil {
		logger.Info().
			Str("stage", "load").
			Str("variant", variant.String()).
			Str("tenant", tenantLabel).
			Str("client_id", token.ClientID()).
			Str("kind", string(auth.KindOf(err))).
			Err(err).
			Msg("security context rejected")
		return nil, err
	}

	sc = auth.BuildSecurityContext(token, variant, tenantLabel, pc)
	logger.Debug().
		Str("stage", "build").
		Str("variant", variant.String()).
		Str("tenant", tenantLabel).
		Str("session_id", sc.SessionID().String()).
		Msg("security context built")

	return sc, nil
}
