package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/uptrace/bun"

	"github.com/tenantrx/recordsapi/internal/db/models"
)

// ErrPolicyReadOnly is returned by every write on BunPolicyAdapter.
var ErrPolicyReadOnly = errors.New("role policy is read-only at runtime")

// BunPolicyAdapter is a read-only casbin adapter over the policy_rules
// table. Policy changes ship as registry migrations.
type BunPolicyAdapter struct {
	db  *bun.DB
	ctx context.Context
}

// NewBunPolicyAdapter creates the adapter; ctx bounds policy loads.
func NewBunPolicyAdapter(ctx context.Context, db *bun.DB) *BunPolicyAdapter {
	return &BunPolicyAdapter{db: db, ctx: ctx}
}

var _ persist.Adapter = (*BunPolicyAdapter)(nil)

// LoadPolicy loads every rule into m.
func (a *BunPolicyAdapter) LoadPolicy(m model.Model) error {
	var rules []models.PolicyRule
	if err := a.db.NewSelect().Model(&rules).Order("ptype", "subject", "object", "action").Scan(a.ctx); err != nil {
		return fmt.Errorf("load policy rules: %w", err)
	}

	for _, r := range rules {
		line := []string{r.Ptype, r.Subject, r.Object, r.Action, r.Condition}
		if err := persist.LoadPolicyArray(line, m); err != nil {
			return fmt.Errorf("load policy rule %s %s %s: %w", r.Subject, r.Object, r.Action, err)
		}
	}
	return nil
}

func (a *BunPolicyAdapter) SavePolicy(model.Model) error { return ErrPolicyReadOnly }

func (a *BunPolicyAdapter) AddPolicy(string, string, []string) error { return ErrPolicyReadOnly }

func (a *BunPolicyAdapter) RemovePolicy(string, string, []string) error { return ErrPolicyReadOnly }

func (a *BunPolicyAdapter) RemoveFilteredPolicy(string, string, int, ...string) error {
	return ErrPolicyReadOnly
}
