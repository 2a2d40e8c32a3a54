package auth

import (
	"encoding/json"
	"maps"
	"slices"
)

// Request-extension keys recognised by the pipeline.
const (
	ExtensionClientID = "oauth_client_id"
	ExtensionTenant   = "tenant"
)

// EmbeddedIdentity is the identity a token's principal carries when it was
// minted by a login flow that already knows its tenant and variant.
type EmbeddedIdentity struct {
	TenantID     string
	Variant      Variant
	UserIdentity string
}

// IdentityCarrier is implemented by principals that embed an identity.
type IdentityCarrier interface {
	EmbeddedIdentity() (EmbeddedIdentity, bool)
}

// PatientCarrier is implemented by principals that may represent a patient.
type PatientCarrier interface {
	PatientID() (int64, bool)
}

// UserPrincipal is the principal of a token issued to a person.
type UserPrincipal struct {
	Identity EmbeddedIdentity
	// Patient is set when the person is a patient rather than staff.
	Patient *int64
}

func (p UserPrincipal) EmbeddedIdentity() (EmbeddedIdentity, bool) {
	return p.Identity, p.Identity.Variant != ""
}

func (p UserPrincipal) PatientID() (int64, bool) {
	if p.Patient == nil {
		return 0, false
	}
	return *p.Patient, true
}

// ClientPrincipal is the principal of a client-credentials token.
type ClientPrincipal struct {
	ClientID string
}

// Authentication is the framework-level result of bearer verification. A
// request without one never reaches classification.
type Authentication struct {
	// Principal is variant-specific and may be nil.
	Principal   any
	Extensions  map[string]string
	Scopes      []string
	GrantType   string
	ResourceIDs []string
	RemoteAddr  string
}

// AdaptedToken is the uniform, immutable view of an authenticated request.
// The embedded identity is read from the principal once, at construction.
type AdaptedToken struct {
	principal   any
	identity    *EmbeddedIdentity
	extensions  map[string]string
	scopes      Set
	grantType   string
	resourceIDs map[string]struct{}
	remoteAddr  string
}

// NewAdaptedToken adapts an Authentication. It fails with
// KindInvalidAuthentication when a is nil.
func NewAdaptedToken(a *Authentication) (*AdaptedToken, error) {
	if a == nil {
		return nil, InvalidAuthentication("no authentication attached to request")
	}

	t := &AdaptedToken{
		principal:   a.Principal,
		extensions:  maps.Clone(a.Extensions),
		scopes:      NewSet(a.Scopes...),
		grantType:   a.GrantType,
		resourceIDs: make(map[string]struct{}, len(a.ResourceIDs)),
		remoteAddr:  a.RemoteAddr,
	}
	if t.extensions == nil {
		t.extensions = map[string]string{}
	}
	for _, id := range a.ResourceIDs {
		t.resourceIDs[id] = struct{}{}
	}

	if carrier, ok := a.Principal.(IdentityCarrier); ok {
		if identity, present := carrier.EmbeddedIdentity(); present {
			t.identity = &identity
		}
	}

	return t, nil
}

// Principal returns the underlying principal, which may be nil.
func (t *AdaptedToken) Principal() any { return t.principal }

// Identity returns the principal-embedded identity, if any.
func (t *AdaptedToken) Identity() (EmbeddedIdentity, bool) {
	if t.identity == nil {
		return EmbeddedIdentity{}, false
	}
	return *t.identity, true
}

// Extension returns a request extension value.
func (t *AdaptedToken) Extension(key string) (string, bool) {
	v, ok := t.extensions[key]
	return v, ok
}

// ClientID returns the OAuth2 client the token was issued to.
func (t *AdaptedToken) ClientID() string { return t.extensions[ExtensionClientID] }

func (t *AdaptedToken) Scopes() Set        { return t.scopes }
func (t *AdaptedToken) GrantType() string  { return t.grantType }
func (t *AdaptedToken) RemoteAddr() string { return t.remoteAddr }

// HasResource reports whether id is among the token's resource identifiers.
func (t *AdaptedToken) HasResource(id string) bool {
	_, ok := t.resourceIDs[id]
	return ok
}

// RequestDetails describes the HTTP request independently of the token;
// some legacy clients pass the tenant as a request parameter.
type RequestDetails struct {
	HTTPMethod           string
	RequestURI           string
	RequestParamTenantID *string
}

// Set is a read-only set of strings (scopes, roles, permissions).
type Set struct {
	m map[string]struct{}
}

// NewSet builds a set, dropping empty entries.
func NewSet(values ...string) Set {
	m := make(map[string]struct{}, len(values))
	for _, s := range values {
		if s != "" {
			m[s] = struct{}{}
		}
	}
	return Set{m: m}
}

func (s Set) Has(v string) bool {
	_, ok := s.m[v]
	return ok
}

// HasAny reports whether any of values is in the set.
func (s Set) HasAny(values ...string) bool {
	for _, v := range values {
		if s.Has(v) {
			return true
		}
	}
	return false
}

func (s Set) Len() int { return len(s.m) }

// Values returns the members sorted.
func (s Set) Values() []string {
	return slices.Sorted(maps.Keys(s.m))
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}
