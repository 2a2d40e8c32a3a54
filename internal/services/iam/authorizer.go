package iam

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/rs/zerolog"

	"github.com/tenantrx/recordsapi/internal/auth"
)

//go:embed model.conf
var casbinModel string

// RolePrefix qualifies role names as casbin subjects.
const RolePrefix = "role:"

// Authorizer answers object/action questions for a resolved security context.
// The enforcer is loaded once and only read afterwards.
type Authorizer struct {
	enforcer casbin.IEnforcer
}

// NewAuthorizer loads the role policy from adapter into a read-only enforcer.
func NewAuthorizer(adapter persist.Adapter) (*Authorizer, error) {
	m, err := model.NewModelFromString(casbinModel)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	enforcer.EnableAutoSave(false)
	enforcer.AddFunction("bexprMatch", bexprMatchFunction())

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load casbin policies: %w", err)
	}

	return &Authorizer{enforcer: enforcer}, nil
}

// Authorize reports whether sc may perform action on object.
//
// A full context is allowed when it holds the "object:action" permission
// directly or any of its roles is granted the action by policy. A partial
// context carries no authorization view and is decided by its scopes alone.
func (a *Authorizer) Authorize(ctx context.Context, sc *auth.SecurityContext, object, action string) (bool, error) {
	logger := zerolog.Ctx(ctx)
	permission := object + ":" + action

	view := sc.Authorization()
	if view == nil {
		allowed := sc.Scopes().Has(permission)
		logger.Debug().Str("object", object).Str("action", action).Bool("allowed", allowed).Msg("partial context authorized by scope")
		return allowed, nil
	}

	if view.Permissions().Has(permission) {
		return true, nil
	}

	roles := view.Roles().Values()
	if len(roles) == 0 {
		logger.Debug().Str("object", object).Str("action", action).Msg("authorization denied: no roles")
		return false, nil
	}

	attrs := NewExpressionInput(sc).attributes()
	for _, role := range roles {
		allowed, err := a.enforcer.Enforce(RolePrefix+role, object, action, attrs)
		if err != nil {
			return false, fmt.Errorf("casbin enforce error for role %s: %w", role, err)
		}
		if allowed {
			logger.Debug().Str("role", role).Str("object", object).Str("action", action).Msg("authorization granted")
			return true, nil
		}
	}

	logger.Debug().Strs("roles", roles).Str("object", object).Str("action", action).Msg("authorization denied")
	return false, nil
}

// Reload re-reads the role policy from the adapter.
func (a *Authorizer) Reload() error {
	if err := a.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("reload casbin policies: %w", err)
	}
	return nil
}
