package models

import (
	"time"

	"github.com/uptrace/bun"
)

// The models below live in each tenant's own database.

// User is a tenant-native account.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID         int64      `bun:"id,pk"`
	Username   string     `bun:"username,notnull,unique"`
	PatientID  *int64     `bun:"patient_id"`
	Locked     bool       `bun:"locked,notnull,default:false"`
	DisabledAt *time.Time `bun:"disabled_at"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

// ProviderIdentity links an identity from an external identity system to a
// tenant user, with the window in which the link is valid.
type ProviderIdentity struct {
	bun.BaseModel `bun:"table:provider_identities,alias:pi"`

	Subject        string     `bun:"subject,pk,type:varchar(255)"`
	IdentitySystem string     `bun:"identity_system,pk,type:varchar(32)"`
	UserID         int64      `bun:"user_id,notnull"`
	ValidFrom      *time.Time `bun:"valid_from"`
	ValidTo        *time.Time `bun:"valid_to"`

	User *User `bun:"rel:belongs-to,join:user_id=id"`
}

// Role is a named bundle of permissions.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

// UserRole assigns a role to a user.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID int64 `bun:"user_id,pk"`
	RoleID int64 `bun:"role_id,pk"`
}

// RolePermission grants a role a permission of the form "object:action".
type RolePermission struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`

	RoleID     int64  `bun:"role_id,pk"`
	Permission string `bun:"permission,pk,type:varchar(255)"`
}

// UserFeature enables a feature flag for a user.
type UserFeature struct {
	bun.BaseModel `bun:"table:user_features,alias:uf"`

	UserID  int64  `bun:"user_id,pk"`
	Feature string `bun:"feature,pk,type:varchar(255)"`
}

// AuthorizedClient allow-lists an OAuth2 client for the tenant. Document is
// the versioned JSON record validated by the validation package.
type AuthorizedClient struct {
	bun.BaseModel `bun:"table:authorized_clients,alias:ac"`

	ID        string    `bun:"id,pk,type:varchar(36)"`
	ClientID  string    `bun:"client_id,notnull"`
	Document  string    `bun:"document,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
