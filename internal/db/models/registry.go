package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Tenant is a customer deployment registered in the control-plane database.
// DSNCiphertext holds the tenant database DSN encrypted by the secrets cipher.
type Tenant struct {
	bun.BaseModel `bun:"table:tenants,alias:t"`

	Code          string    `bun:"code,pk,type:varchar(32)"`
	Name          string    `bun:"name,notnull"`
	DSNCiphertext string    `bun:"dsn_ciphertext,notnull"`
	Enabled       bool      `bun:"enabled,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// OAuthClient is platform-wide OAuth2 client metadata. It rarely changes and
// is read through the client catalog cache.
type OAuthClient struct {
	bun.BaseModel `bun:"table:oauth_clients,alias:oc"`

	ClientID    string    `bun:"client_id,pk,type:varchar(255)"`
	DisplayName string    `bun:"display_name,notnull"`
	Scopes      []string  `bun:"scopes,type:jsonb,notnull"`
	FirstParty  bool      `bun:"first_party,notnull,default:false"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// PolicyRule is a casbin policy line granting a role an action on an object,
// optionally conditioned by a go-bexpr expression.
type PolicyRule struct {
	bun.BaseModel `bun:"table:policy_rules,alias:pr"`

	Ptype     string `bun:"ptype,pk,type:varchar(8)"`
	Subject   string `bun:"subject,pk,type:varchar(255)"`
	Object    string `bun:"object,pk,type:varchar(255)"`
	Action    string `bun:"action,pk,type:varchar(255)"`
	Condition string `bun:"condition,pk,type:varchar(1024),default:''"`
}
