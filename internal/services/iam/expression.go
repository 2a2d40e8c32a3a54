package iam

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-bexpr"

	"github.com/tenantrx/recordsapi/internal/auth"
)

// evaluatorCache holds compiled go-bexpr evaluators keyed by expression.
var evaluatorCache = &sync.Map{}

// ExpressionInput flattens a security context into the fields expressions
// may reference, e.g. `"chart:read" in permissions and tenant == "ACME"`.
type ExpressionInput struct {
	Roles       []string `bexpr:"roles"`
	Permissions []string `bexpr:"permissions"`
	Features    []string `bexpr:"features"`
	Scopes      []string `bexpr:"scopes"`
	Tenant      string   `bexpr:"tenant"`
	Variant     string   `bexpr:"variant"`
	GrantType   string   `bexpr:"grant_type"`
	Patient     bool     `bexpr:"patient"`
}

// NewExpressionInput builds the expression view of sc. Roles, permissions
// and features are empty for partial contexts.
func NewExpressionInput(sc *auth.SecurityContext) ExpressionInput {
	_, patient := sc.PatientID()
	in := ExpressionInput{
		Scopes:    sc.Scopes().Values(),
		Tenant:    sc.TenantID(),
		Variant:   sc.Variant().String(),
		GrantType: sc.GrantType(),
		Patient:   patient,
	}
	if view := sc.Authorization(); view != nil {
		in.Roles = view.Roles().Values()
		in.Permissions = view.Permissions().Values()
		in.Features = view.Features().Values()
	}
	return in
}

// attributes is the map form handed to casbin's bexprMatch.
func (in ExpressionInput) attributes() map[string]any {
	return map[string]any{
		"roles":       in.Roles,
		"permissions": in.Permissions,
		"features":    in.Features,
		"scopes":      in.Scopes,
		"tenant":      in.Tenant,
		"variant":     in.Variant,
		"grant_type":  in.GrantType,
		"patient":     in.Patient,
	}
}

// EvaluateExpression evaluates a go-bexpr expression against sc.
// An empty expression is true.
func EvaluateExpression(sc *auth.SecurityContext, expr string) (bool, error) {
	return evaluate(expr, NewExpressionInput(sc))
}

func evaluate(expr string, input any) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return true, nil
	}

	var evaluator *bexpr.Evaluator
	if cached, ok := evaluatorCache.Load(expr); ok {
		evaluator = cached.(*bexpr.Evaluator)
	} else {
		compiled, err := bexpr.CreateEvaluator(expr)
		if err != nil {
			return false, fmt.Errorf("compile expression %q: %w", expr, err)
		}
		evaluatorCache.Store(expr, compiled)
		evaluator = compiled
	}

	matches, err := evaluator.Evaluate(input)
	if err != nil {
		return false, fmt.Errorf("evaluate expression %q: %w", expr, err)
	}
	return matches, nil
}

// bexprMatchFunction adapts evaluate for casbin matchers:
// bexprMatch(p.cond, r.attrs). Evaluation errors deny.
func bexprMatchFunction() func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return false, fmt.Errorf("bexprMatch requires 2 arguments: cond, attrs")
		}
		cond, ok := args[0].(string)
		if !ok {
			return false, fmt.Errorf("bexprMatch: first argument must be string")
		}
		attrs, ok := args[1].(map[string]any)
		if !ok {
			return false, fmt.Errorf("bexprMatch: second argument must be map[string]any")
		}
		matches, err := evaluate(cond, attrs)
		if err != nil {
			return false, nil
		}
		return matches, nil
	}
}
