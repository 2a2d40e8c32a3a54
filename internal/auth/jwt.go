package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xenitab/go-oidc-middleware/oidctoken"
	"github.com/xenitab/go-oidc-middleware/options"
)

// ErrNoVerifier is returned when no verifier is registered for a token's issuer.
var ErrNoVerifier = errors.New("no verifier registered for token issuer")

// Verifier checks a bearer token's signature and standard claims.
type Verifier interface {
	// Issuer is the iss claim value this verifier accepts.
	Issuer() string
	// Profile describes what tokens from this issuer may assert.
	Profile() IssuerProfile
	Verify(ctx context.Context, raw string) (map[string]any, error)
}

// LegacyVerifier verifies HMAC-signed tokens from the in-house authorization server.
type LegacyVerifier struct {
	issuer string
	secret []byte
	parser *jwt.Parser
}

// NewLegacyVerifier creates a verifier for the in-house issuer.
func NewLegacyVerifier(issuer string, secret []byte) (*LegacyVerifier, error) {
	if issuer == "" {
		return nil, fmt.Errorf("legacy issuer is required")
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("legacy hmac secret is required")
	}
	return &LegacyVerifier{
		issuer: issuer,
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

func (v *LegacyVerifier) Issuer() string { return v.issuer }
func (v *LegacyVerifier) Profile() IssuerProfile {
	return IssuerProfile{EmbeddedVariants: []Variant{VariantLegacyProvider}}
}

func (v *LegacyVerifier) Verify(_ context.Context, raw string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("verify legacy token: %w", err)
	}
	return map[string]any(claims), nil
}

// OktaVerifier verifies tokens from the external identity provider using its
// published JWKS.
type OktaVerifier struct {
	issuer     string
	resourceID string
	handler    *oidctoken.TokenHandler[map[string]any]
}

// NewOktaVerifier creates a verifier for the external issuer. Keys are
// fetched lazily on first use.
func NewOktaVerifier(issuer, audience, resourceID string) (*OktaVerifier, error) {
	if issuer == "" {
		return nil, fmt.Errorf("okta issuer is required")
	}
	if audience == "" {
		return nil, fmt.Errorf("okta audience is required")
	}

	handler, err := oidctoken.New[map[string]any](nil,
		options.WithIssuer(issuer),
		options.WithRequiredAudience(audience),
		options.WithLazyLoadJwks(true),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize okta token handler: %w", err)
	}

	return &OktaVerifier{issuer: issuer, resourceID: resourceID, handler: handler}, nil
}

func (v *OktaVerifier) Issuer() string { return v.issuer }

func (v *OktaVerifier) Profile() IssuerProfile {
	return IssuerProfile{
		ResourceMarker:   v.resourceID,
		EmbeddedVariants: []Variant{VariantOktaProvider, VariantOktaThirdParty},
	}
}

func (v *OktaVerifier) Verify(ctx context.Context, raw string) (map[string]any, error) {
	claims, err := v.handler.ParseToken(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify okta token: %w", err)
	}
	return claims, nil
}

// TokenAuthenticator verifies bearer tokens against the configured issuers
// and adapts the verified claims into an Authentication.
type TokenAuthenticator struct {
	verifiers map[string]Verifier
	parser    *jwt.Parser
}

// NewTokenAuthenticator registers verifiers by issuer.
func NewTokenAuthenticator(verifiers ...Verifier) *TokenAuthenticator {
	byIssuer := make(map[string]Verifier, len(verifiers))
	for _, v := range verifiers {
		if v != nil {
			byIssuer[v.Issuer()] = v
		}
	}
	return &TokenAuthenticator{verifiers: byIssuer, parser: jwt.NewParser()}
}

// Authenticate verifies raw and returns the resulting Authentication.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, raw, remoteAddr string) (*Authentication, error) {
	raw = strings.TrimSpace(raw)

	// The issuer is read unverified only to pick the verifier.
	unverified := jwt.MapClaims{}
	if _, _, err := a.parser.ParseUnverified(raw, unverified); err != nil {
		return nil, fmt.Errorf("malformed token: %w", err)
	}
	issuer, err := unverified.GetIssuer()
	if err != nil {
		return nil, fmt.Errorf("read issuer: %w", err)
	}

	verifier, ok := a.verifiers[issuer]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoVerifier, issuer)
	}

	claims, err := verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}

	return DecodeClaims(claims, verifier.Profile(), remoteAddr)
}
