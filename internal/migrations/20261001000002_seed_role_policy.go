package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/tenantrx/recordsapi/internal/db/models"
)

func init() {
	Registry.MustRegister(up_20261001000002, down_20261001000002)
}

// defaultPolicy grants the built-in clinical roles. Tenants assign these
// role names to users in their own databases.
var defaultPolicy = []models.PolicyRule{
	{Ptype: "p", Subject: "role:administrator", Object: "*", Action: "*"},
	{Ptype: "p", Subject: "role:clinician", Object: "chart", Action: "read"},
	{Ptype: "p", Subject: "role:clinician", Object: "chart", Action: "write"},
	{Ptype: "p", Subject: "role:clinician", Object: "prescription", Action: "write", Condition: `"prescribing" in features`},
	{Ptype: "p", Subject: "role:front-desk", Object: "appointment", Action: "*"},
	{Ptype: "p", Subject: "role:front-desk", Object: "chart", Action: "read", Condition: `variant != "okta_third_party"`},
	{Ptype: "p", Subject: "role:patient", Object: "chart", Action: "read", Condition: `patient == true`},
}

func up_20261001000002(ctx context.Context, db *bun.DB) error {
	rules := append([]models.PolicyRule(nil), defaultPolicy...)
	if _, err := db.NewInsert().Model(&rules).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("seed role policy: %w", err)
	}
	return nil
}

func down_20261001000002(ctx context.Context, db *bun.DB) error {
	for _, rule := range defaultPolicy {
		if _, err := db.NewDelete().Model((*models.PolicyRule)(nil)).
			Where("ptype = ?", rule.Ptype).
			Where("subject = ?", rule.Subject).
			Where("object = ?", rule.Object).
			Where("action = ?", rule.Action).
			Exec(ctx); err != nil {
			return fmt.Errorf("remove seeded policy %s %s %s: %w", rule.Subject, rule.Object, rule.Action, err)
		}
	}
	return nil
}
