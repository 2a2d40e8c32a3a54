package auth

// Variant is the closed set of authentication shapes a token may take.
type Variant string

const (
	// VariantLegacyClientCredentials is a client-credentials token from the in-house issuer.
	VariantLegacyClientCredentials Variant = "legacy_client_credentials"
	// VariantLegacyProvider is a user token minted by the in-house login flow.
	VariantLegacyProvider Variant = "legacy_provider"
	// VariantOktaProvider is a user token whose identity lives in the external identity system.
	VariantOktaProvider Variant = "okta_provider"
	// VariantOktaClientCredentials is a client-credentials token from the external issuer.
	VariantOktaClientCredentials Variant = "okta_client_credentials"
	// VariantOktaThirdParty is a user token obtained by a third-party client through the external issuer.
	VariantOktaThirdParty Variant = "okta_third_party"
)

// Variants lists every variant in declaration order.
var Variants = []Variant{
	VariantLegacyClientCredentials,
	VariantLegacyProvider,
	VariantOktaProvider,
	VariantOktaClientCredentials,
	VariantOktaThirdParty,
}

// Valid reports whether v is one of the five known variants.
func (v Variant) Valid() bool {
	for _, known := range Variants {
		if v == known {
			return true
		}
	}
	return false
}

// CarriesUser reports whether the variant is resolved against a per-user identity.
func (v Variant) CarriesUser() bool {
	switch v {
	case VariantLegacyProvider, VariantOktaProvider, VariantOktaThirdParty:
		return true
	default:
		return false
	}
}

func (v Variant) String() string { return string(v) }

// Classify maps an adapted token to exactly one variant.
//
// A principal-embedded identity is trusted first; its variant was decided
// when the upstream claims were extracted. Tokens without one are client
// credentials, told apart by the external issuer's resource marker.
func Classify(token *AdaptedToken, oktaResourceID string) Variant {
	if identity, ok := token.Identity(); ok {
		return identity.Variant
	}
	if token.HasResource(oktaResourceID) {
		return VariantOktaClientCredentials
	}
	return VariantLegacyClientCredentials
}
