// Package moduleaccess decides whether a request may reach a feature
// module, based on the request context and the tenant's plan.
package moduleaccess

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/workstack/hrsuite/internal/plan/domain"
	subscriptiondomain "github.com/workstack/hrsuite/internal/subscription/domain"
	"github.com/workstack/hrsuite/internal/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// DenyReason names why access was refused.
type DenyReason string

const (
	// DenySystem means the module is central-only.
	DenySystem DenyReason = "system"
	// DenyPlan means the tenant's plan does not include the module.
	DenyPlan DenyReason = "plan"
)

type Decision struct {
	Allowed bool
	Reason  DenyReason
}

var allowed = Decision{Allowed: true}

// coreModules are available to every resolved tenant regardless of plan.
var coreModules = map[string]struct{}{
	"dashboard": {},
	"account":   {},
	"settings":  {},
	"support":   {},
}

// systemModules are only reachable from the central context.
var systemModules = map[string]struct{}{
	"admin":           {},
	"tenants":         {},
	"plans":           {},
	"system-settings": {},
}

// Evaluate is the pure access rule. planModules is the module list of
// the tenant's current plan; it is ignored for core and system modules.
func Evaluate(module string, central bool, planModules []string) Decision {
	module = strings.ToLower(strings.TrimSpace(module))

	if _, ok := systemModules[module]; ok {
		if central {
			return allowed
		}
		return Decision{Reason: DenySystem}
	}

	// Central operators are not bound to any plan.
	if central {
		return allowed
	}

	if _, ok := coreModules[module]; ok {
		return allowed
	}

	for _, name := range planModules {
		if strings.EqualFold(strings.TrimSpace(name), module) {
			return allowed
		}
	}
	return Decision{Reason: DenyPlan}
}

// PlanLoader resolves the tenant's current plan. Satisfied by the
// subscription service.
type PlanLoader interface {
	CurrentPlan(ctx context.Context, tenantID snowflake.ID) (*plandomain.Plan, error)
}

// Gate evaluates module access for the tenant in context.
type Gate struct {
	log   *zap.Logger
	plans PlanLoader
}

type GateParam struct {
	fx.In

	Log   *zap.Logger
	Plans PlanLoader
}

func NewGate(p GateParam) *Gate {
	return &Gate{
		log:   p.Log.Named("moduleaccess"),
		plans: p.Plans,
	}
}

// Check evaluates access to a module for the request in ctx. A request
// without a resolved tenant runs in the central context.
func (g *Gate) Check(ctx context.Context, module string) (Decision, error) {
	tenantID := tenantctx.TenantID(ctx)
	if tenantID == 0 {
		return Evaluate(module, true, nil), nil
	}

	// Core and system rules need no plan lookup.
	decision := Evaluate(module, false, nil)
	if decision.Allowed || decision.Reason == DenySystem {
		return decision, nil
	}

	plan, err := g.plans.CurrentPlan(ctx, tenantID)
	if err != nil {
		return Decision{}, err
	}
	if plan == nil {
		return Decision{Reason: DenyPlan}, nil
	}

	return Evaluate(module, false, plan.ModuleNames()), nil
}

var Module = fx.Module("moduleaccess",
	fx.Provide(func(svc subscriptiondomain.Service) PlanLoader { return svc }),
	fx.Provide(NewGate),
)
