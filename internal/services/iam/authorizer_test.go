package iam

import (
	"context"
	"errors"
	"testing"

	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantrx/recordsapi/internal/auth"
)

// staticPolicyAdapter serves a fixed rule set to the enforcer.
type staticPolicyAdapter struct {
	rules [][]string
}

var errStaticPolicy = errors.New("static policy is read-only")

func (a *staticPolicyAdapter) LoadPolicy(m model.Model) error {
	for _, rule := range a.rules {
		if err := persist.LoadPolicyArray(rule, m); err != nil {
			return err
		}
	}
	return nil
}

func (a *staticPolicyAdapter) SavePolicy(model.Model) error                { return errStaticPolicy }
func (a *staticPolicyAdapter) AddPolicy(string, string, []string) error    { return errStaticPolicy }
func (a *staticPolicyAdapter) RemovePolicy(string, string, []string) error { return errStaticPolicy }
func (a *staticPolicyAdapter) RemoveFilteredPolicy(string, string, int, ...string) error {
	return errStaticPolicy
}

func newTestAuthorizer(t *testing.T) *Authorizer {
	t.Helper()
	a, err := NewAuthorizer(&staticPolicyAdapter{rules: [][]string{
		{"p", "role:clinician", "chart", "read", ""},
		{"p", "role:clinician", "chart", "write", `"charting" in features`},
		{"p", "role:front-desk", "appointment", "*", ""},
		{"p", "role:patient", "chart", "read", "patient == true"},
		{"p", "role:auditor", "report/*", "read", `tenant == "ACME"`},
	}})
	require.NoError(t, err)
	return a
}

func fullContext(t *testing.T, tenant string, patient *int64, ps auth.PermissionSet) *auth.SecurityContext {
	t.Helper()
	token, err := auth.NewAdaptedToken(&auth.Authentication{
		Principal:  auth.UserPrincipal{Identity: auth.EmbeddedIdentity{TenantID: tenant, Variant: auth.VariantLegacyProvider, UserIdentity: "7"}, Patient: patient},
		Extensions: map[string]string{auth.ExtensionClientID: "portal"},
	})
	require.NoError(t, err)
	return auth.BuildSecurityContext(token, auth.VariantLegacyProvider, tenant, &auth.PermissionContext{
		User:        &auth.ResolvedUser{ID: 7},
		Permissions: &ps,
	})
}

func TestAuthorizer_Roles(t *testing.T) {
	a := newTestAuthorizer(t)
	ctx := context.Background()
	patientID := int64(900)

	tests := []struct {
		name   string
		sc     *auth.SecurityContext
		object string
		action string
		want   bool
	}{
		{"clinician reads chart", fullContext(t, "ACME", nil, auth.PermissionSet{Roles: []string{"clinician"}}), "chart", "read", true},
		{"clinician without feature cannot write", fullContext(t, "ACME", nil, auth.PermissionSet{Roles: []string{"clinician"}}), "chart", "write", false},
		{"clinician with feature writes", fullContext(t, "ACME", nil, auth.PermissionSet{Roles: []string{"clinician"}, Features: []string{"charting"}}), "chart", "write", true},
		{"front desk wildcard action", fullContext(t, "ACME", nil, auth.PermissionSet{Roles: []string{"front-desk"}}), "appointment", "cancel", true},
		{"front desk cannot read chart", fullContext(t, "ACME", nil, auth.PermissionSet{Roles: []string{"front-desk"}}), "chart", "read", false},
		{"patient reads own chart", fullContext(t, "ACME", &patientID, auth.PermissionSet{Roles: []string{"patient"}}), "chart", "read", true},
		{"patient role without patient principal", fullContext(t, "ACME", nil, auth.PermissionSet{Roles: []string{"patient"}}), "chart", "read", false},
		{"auditor in matching tenant", fullContext(t, "ACME", nil, auth.PermissionSet{Roles: []string{"auditor"}}), "report/billing", "read", true},
		{"auditor in other tenant", fullContext(t, "BETA", nil, auth.PermissionSet{Roles: []string{"auditor"}}), "report/billing", "read", false},
		{"direct permission", fullContext(t, "ACME", nil, auth.PermissionSet{Permissions: []string{"invoice:void"}}), "invoice", "void", true},
		{"no roles", fullContext(t, "ACME", nil, auth.PermissionSet{}), "chart", "read", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, err := a.Authorize(ctx, tt.sc, tt.object, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, allowed)
		})
	}
}

func TestAuthorizer_PartialContextUsesScopes(t *testing.T) {
	a := newTestAuthorizer(t)
	token, err := auth.NewAdaptedToken(&auth.Authentication{
		Extensions: map[string]string{auth.ExtensionClientID: "svc"},
		Scopes:     []string{"chart:read"},
	})
	require.NoError(t, err)
	sc := auth.BuildSecurityContext(token, auth.VariantLegacyClientCredentials, "ACME", &auth.PermissionContext{})

	allowed, err := a.Authorize(context.Background(), sc, "chart", "read")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = a.Authorize(context.Background(), sc, "chart", "write")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAuthorizer_Reload(t *testing.T) {
	adapter := &staticPolicyAdapter{}
	a, err := NewAuthorizer(adapter)
	require.NoError(t, err)

	sc := fullContext(t, "ACME", nil, auth.PermissionSet{Roles: []string{"clinician"}})
	allowed, err := a.Authorize(context.Background(), sc, "chart", "read")
	require.NoError(t, err)
	assert.False(t, allowed)

	adapter.rules = [][]string{{"p", "role:clinician", "chart", "read", ""}}
	require.NoError(t, a.Reload())

	allowed, err = a.Authorize(context.Background(), sc, "chart", "read")
	require.NoError(t, err)
	assert.True(t, allowed)
}
