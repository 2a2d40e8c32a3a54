package auth

import "time"

// ResolvedUser is the tenant-native user a token resolved to.
type ResolvedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// PermissionSet is the full role/permission/feature load for a user or client.
type PermissionSet struct {
	Roles       []string
	Permissions []string
	Features    []string
}

// PermissionContext is what a tenant store returns for an identity.
//
// User is nil for pure client-credential contexts. Permissions is nil when
// only a partial load was requested. ValidFrom/ValidTo are minute-granular
// and only meaningful for identities sourced from the external identity system.
type PermissionContext struct {
	User        *ResolvedUser
	Permissions *PermissionSet
	ValidFrom   *time.Time
	ValidTo     *time.Time
}
