package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tenantrx/recordsapi/internal/auth"
)

// TokenAuthenticator verifies a raw bearer token.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, raw, remoteAddr string) (*auth.Authentication, error)
}

// Resolver turns an authentication into a security context.
type Resolver interface {
	Resolve(ctx context.Context, authn *auth.Authentication, details auth.RequestDetails) (*auth.SecurityContext, error)
}

// NewSecurityContextMiddleware verifies the bearer token, resolves the
// security context and stores it on the request context. Requests without
// a bearer token still go through the resolver, which rejects them with
// KindInvalidAuthentication.
func NewSecurityContextMiddleware(authenticator TokenAuthenticator, resolver Resolver, tenantParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := zerolog.Ctx(ctx)

			var authn *auth.Authentication
			if raw, ok := bearerToken(r); ok {
				verified, err := authenticator.Authenticate(ctx, raw, r.RemoteAddr)
				if err != nil {
					logger.Info().Err(err).Msg("bearer token verification failed")
					WriteError(w, auth.Wrap(auth.KindUnauthorized, err, "invalid bearer token"))
					return
				}
				authn = verified
			}

			sc, err := resolver.Resolve(ctx, authn, requestDetails(r, tenantParam))
			if err != nil {
				WriteError(w, err)
				return
			}

			scLogger := logger.With().
				Str("tenant", sc.TenantID()).
				Str("client_id", sc.OAuthClientID()).
				Str("session_id", sc.SessionID().String()).
				Logger()
			ctx = scLogger.WithContext(auth.WithSecurityContext(ctx, sc))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func requestDetails(r *http.Request, tenantParam string) auth.RequestDetails {
	details := auth.RequestDetails{
		HTTPMethod: r.Method,
		RequestURI: r.URL.RequestURI(),
	}
	if tenantParam != "" {
		if values, ok := r.URL.Query()[tenantParam]; ok && len(values) > 0 {
			tenant := values[0]
			details.RequestParamTenantID = &tenant
		}
	}
	return details
}
