package auth

// ResolveTenant derives the tenant a request targets from its classified
// variant. It never fails; a nil result is carried forward so that the
// context loader can reject the request while naming the identity attempted.
//
//   - embedded identity: the tenant code inside the identity
//   - Okta client credentials: the "tenant" request extension
//   - legacy client credentials: the tenant request parameter
func ResolveTenant(token *AdaptedToken, variant Variant, details RequestDetails) *string {
	if identity, ok := token.Identity(); ok {
		return nonEmpty(identity.TenantID)
	}
	if variant == VariantOktaClientCredentials {
		tenant, _ := token.Extension(ExtensionTenant)
		return nonEmpty(tenant)
	}
	if details.RequestParamTenantID == nil {
		return nil
	}
	return nonEmpty(*details.RequestParamTenantID)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
