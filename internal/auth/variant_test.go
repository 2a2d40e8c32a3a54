package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOktaResource = "okta"

func adapt(t *testing.T, a *Authentication) *AdaptedToken {
	t.Helper()
	token, err := NewAdaptedToken(a)
	require.NoError(t, err)
	return token
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		auth *Authentication
		want Variant
	}{
		{
			name: "embedded legacy provider identity",
			auth: &Authentication{Principal: UserPrincipal{Identity: EmbeddedIdentity{TenantID: "ACME", Variant: VariantLegacyProvider, UserIdentity: "42"}}},
			want: VariantLegacyProvider,
		},
		{
			name: "embedded okta provider identity wins over resource marker",
			auth: &Authentication{
				Principal:   UserPrincipal{Identity: EmbeddedIdentity{TenantID: "ACME", Variant: VariantOktaProvider, UserIdentity: "00u1"}},
				ResourceIDs: []string{testOktaResource},
			},
			want: VariantOktaProvider,
		},
		{
			name: "embedded third party identity",
			auth: &Authentication{Principal: UserPrincipal{Identity: EmbeddedIdentity{TenantID: "ACME", Variant: VariantOktaThirdParty, UserIdentity: "7"}}},
			want: VariantOktaThirdParty,
		},
		{
			name: "okta resource marker without identity",
			auth: &Authentication{Principal: ClientPrincipal{ClientID: "svc"}, ResourceIDs: []string{"records", testOktaResource}},
			want: VariantOktaClientCredentials,
		},
		{
			name: "no identity and no marker",
			auth: &Authentication{Principal: ClientPrincipal{ClientID: "svc"}, ResourceIDs: []string{"records"}},
			want: VariantLegacyClientCredentials,
		},
		{
			name: "nil principal",
			auth: &Authentication{},
			want: VariantLegacyClientCredentials,
		},
		{
			name: "user principal with empty identity",
			auth: &Authentication{Principal: UserPrincipal{}},
			want: VariantLegacyClientCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(adapt(t, tt.auth), testOktaResource)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestVariant_CarriesUser(t *testing.T) {
	assert.True(t, VariantLegacyProvider.CarriesUser())
	assert.True(t, VariantOktaProvider.CarriesUser())
	assert.True(t, VariantOktaThirdParty.CarriesUser())
	assert.False(t, VariantLegacyClientCredentials.CarriesUser())
	assert.False(t, VariantOktaClientCredentials.CarriesUser())
	assert.False(t, Variant("saml").Valid())
}
