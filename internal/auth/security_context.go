package auth

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	// ApplicationName identifies this API in audit records.
	ApplicationName = "recordsapi"
	// AuditOrganization is the organization placeholder recorded for API callers.
	AuditOrganization = "api"
	// auditSourcePrefix prefixes the client id in the audit source marker.
	auditSourcePrefix = "oauth:"
)

// AuditIdentity is the caller identity recorded by audit trails.
type AuditIdentity struct {
	UserID       *int64 `json:"user_id,omitempty"`
	Organization string `json:"organization"`
	Application  string `json:"application"`
	Source       string `json:"source"`
	RemoteAddr   string `json:"remote_addr"`
}

// AuthorizationView is the read-only permission view derived from a full
// PermissionContext load.
type AuthorizationView struct {
	roles       Set
	permissions Set
	features    Set
}

// NewAuthorizationView builds a view from a permission set.
func NewAuthorizationView(ps PermissionSet) *AuthorizationView {
	return &AuthorizationView{
		roles:       NewSet(ps.Roles...),
		permissions: NewSet(ps.Permissions...),
		features:    NewSet(ps.Features...),
	}
}

func (v *AuthorizationView) Roles() Set       { return v.roles }
func (v *AuthorizationView) Permissions() Set { return v.permissions }
func (v *AuthorizationView) Features() Set    { return v.features }

func (v *AuthorizationView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Roles       Set `json:"roles"`
		Permissions Set `json:"permissions"`
		Features    Set `json:"features"`
	}{v.roles, v.permissions, v.features})
}

// SecurityContext is the immutable, request-scoped result of resolution.
// It is never persisted or shared across requests.
type SecurityContext struct {
	clientID      string
	variant       Variant
	tenantID      string
	user          *ResolvedUser
	audit         AuditIdentity
	patientID     *int64
	sessionID     uuid.UUID
	authorization *AuthorizationView
	scopes        Set
	grantType     string
}

// BuildSecurityContext assembles the security context. It performs no I/O.
// pc may be nil for contexts with nothing loaded.
func BuildSecurityContext(token *AdaptedToken, variant Variant, tenantID string, pc *PermissionContext) *SecurityContext {
	clientID := token.ClientID()

	var user *ResolvedUser
	var userID *int64
	if pc != nil && pc.User != nil {
		u := *pc.User
		user = &u
		id := u.ID
		userID = &id
	}

	sc := &SecurityContext{
		clientID: clientID,
		variant:  variant,
		tenantID: tenantID,
		user:     user,
		audit: AuditIdentity{
			UserID:       userID,
			Organization: AuditOrganization,
			Application:  ApplicationName,
			Source:       auditSourcePrefix + clientID,
			RemoteAddr:   token.RemoteAddr(),
		},
		sessionID: SessionID(clientID, userID),
		scopes:    token.Scopes(),
		grantType: token.GrantType(),
	}

	if pc != nil && pc.Permissions != nil {
		sc.authorization = NewAuthorizationView(*pc.Permissions)
	}

	if patient, ok := token.Principal().(PatientCarrier); ok {
		if id, isPatient := patient.PatientID(); isPatient {
			sc.patientID = &id
		}
	}

	return sc
}

func (sc *SecurityContext) OAuthClientID() string { return sc.clientID }
func (sc *SecurityContext) Variant() Variant      { return sc.variant }
func (sc *SecurityContext) TenantID() string      { return sc.tenantID }
func (sc *SecurityContext) SessionID() uuid.UUID  { return sc.sessionID }
func (sc *SecurityContext) Scopes() Set           { return sc.scopes }
func (sc *SecurityContext) GrantType() string     { return sc.grantType }

// User returns the resolved user, or nil for client-credential contexts.
func (sc *SecurityContext) User() *ResolvedUser {
	if sc.user == nil {
		return nil
	}
	u := *sc.user
	return &u
}

// Audit returns the audit identity.
func (sc *SecurityContext) Audit() AuditIdentity {
	a := sc.audit
	if a.UserID != nil {
		id := *a.UserID
		a.UserID = &id
	}
	return a
}

// PatientID returns the patient id when the principal is a patient.
func (sc *SecurityContext) PatientID() (int64, bool) {
	if sc.patientID == nil {
		return 0, false
	}
	return *sc.patientID, true
}

// Authorization returns the permission view; nil when only a partial
// context was loaded.
func (sc *SecurityContext) Authorization() *AuthorizationView { return sc.authorization }

func (sc *SecurityContext) MarshalJSON() ([]byte, error) {
	type view struct {
		ClientID      string             `json:"oauth_client_id"`
		Variant       Variant            `json:"variant"`
		TenantID      string             `json:"tenant_id"`
		User          *ResolvedUser      `json:"user,omitempty"`
		Audit         AuditIdentity      `json:"audit"`
		PatientID     *int64             `json:"patient_id,omitempty"`
		SessionID     string             `json:"session_id"`
		Authorization *AuthorizationView `json:"authorization,omitempty"`
		Scopes        Set                `json:"scopes"`
		GrantType     string             `json:"grant_type"`
	}
	return json.Marshal(view{
		ClientID:      sc.clientID,
		Variant:       sc.variant,
		TenantID:      sc.tenantID,
		User:          sc.User(),
		Audit:         sc.Audit(),
		PatientID:     sc.patientID,
		SessionID:     sc.sessionID.String(),
		Authorization: sc.authorization,
		Scopes:        sc.scopes,
		GrantType:     sc.grantType,
	})
}
