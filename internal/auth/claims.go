package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrVariantNotIssued is returned when a token embeds an identity variant its
// issuer does not mint.
var ErrVariantNotIssued = errors.New("identity variant not issued by token issuer")

// IssuerProfile describes what tokens from one issuer may assert.
type IssuerProfile struct {
	// ResourceMarker, when set, is added to the resource identifiers so the
	// classifier can tell which issuer minted the token.
	ResourceMarker string
	// EmbeddedVariants are the identity variants the issuer's login flows embed.
	EmbeddedVariants []Variant
}

// tokenClaims lists the claims read at the verification boundary. Both
// issuers are covered; each fills only some of these.
type tokenClaims struct {
	Tenant          string   `mapstructure:"tenant"`
	IdentityVariant string   `mapstructure:"identity_variant"`
	UserIdentity    string   `mapstructure:"user_identity"`
	PatientID       *int64   `mapstructure:"patient_id"`
	ClientID        string   `mapstructure:"client_id"`
	CID             string   `mapstructure:"cid"`
	AZP             string   `mapstructure:"azp"`
	Scope           string   `mapstructure:"scope"`
	Scp             []string `mapstructure:"scp"`
	GrantType       string   `mapstructure:"grant_type"`
	GTY             string   `mapstructure:"gty"`
	Audience        []string `mapstructure:"aud"`
}

// DecodeClaims turns verified token claims into an Authentication.
//
// The principal is a UserPrincipal when the claims carry an embedded
// identity (identity_variant + tenant + user_identity), otherwise a
// ClientPrincipal. An embedded variant outside issuer.EmbeddedVariants fails
// with ErrVariantNotIssued.
func DecodeClaims(claims map[string]any, issuer IssuerProfile, remoteAddr string) (*Authentication, error) {
	var tc tokenClaims
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &tc,
	})
	if err != nil {
		return nil, fmt.Errorf("build claims decoder: %w", err)
	}
	if err := decoder.Decode(claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}

	clientID := firstNonEmpty(tc.ClientID, tc.CID, tc.AZP)
	extensions := map[string]string{}
	if clientID != "" {
		extensions[ExtensionClientID] = clientID
	}
	if tc.Tenant != "" {
		extensions[ExtensionTenant] = tc.Tenant
	}

	scopes := tc.Scp
	if tc.Scope != "" {
		scopes = append(scopes, strings.Fields(tc.Scope)...)
	}

	resourceIDs := append([]string(nil), tc.Audience...)
	if issuer.ResourceMarker != "" {
		resourceIDs = append(resourceIDs, issuer.ResourceMarker)
	}

	var principal any = ClientPrincipal{ClientID: clientID}
	if tc.IdentityVariant != "" {
		variant := Variant(tc.IdentityVariant)
		if !variant.CarriesUser() {
			return nil, fmt.Errorf("identity_variant %q cannot be embedded in a user token", tc.IdentityVariant)
		}
		if !slices.Contains(issuer.EmbeddedVariants, variant) {
			return nil, fmt.Errorf("%w: %s", ErrVariantNotIssued, variant)
		}
		if tc.Tenant == "" || tc.UserIdentity == "" {
			return nil, fmt.Errorf("embedded identity requires tenant and user_identity claims")
		}
		principal = UserPrincipal{
			Identity: EmbeddedIdentity{
				TenantID:     tc.Tenant,
				Variant:      variant,
				UserIdentity: tc.UserIdentity,
			},
			Patient: tc.PatientID,
		}
	}

	return &Authentication{
		Principal:   principal,
		Extensions:  extensions,
		Scopes:      scopes,
		GrantType:   firstNonEmpty(tc.GrantType, tc.GTY),
		ResourceIDs: resourceIDs,
		RemoteAddr:  remoteAddr,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
