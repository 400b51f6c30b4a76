package moduleaccess

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/workstack/hrsuite/internal/plan/domain"
	"github.com/workstack/hrsuite/internal/tenantctx"
	"go.uber.org/zap"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name        string
		module      string
		central     bool
		planModules []string
		wantAllowed bool
		wantReason  DenyReason
	}{
		{name: "core module for tenant", module: "dashboard", wantAllowed: true},
		{name: "core module regardless of plan", module: "settings", planModules: []string{"hrm"}, wantAllowed: true},
		{name: "system module for central", module: "admin", central: true, wantAllowed: true},
		{name: "system module for tenant", module: "tenants", wantReason: DenySystem},
		{name: "plan module included", module: "hrm", planModules: []string{"hrm", "payroll"}, wantAllowed: true},
		{name: "plan module case-insensitive", module: "HRM", planModules: []string{"hrm"}, wantAllowed: true},
		{name: "plan module missing", module: "payroll", planModules: []string{"hrm"}, wantReason: DenyPlan},
		{name: "plan module without plan", module: "payroll", wantReason: DenyPlan},
		{name: "central skips plan gating", module: "payroll", central: true, wantAllowed: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.module, tc.central, tc.planModules)
			if got.Allowed != tc.wantAllowed {
				t.Fatalf("allowed = %v, want %v", got.Allowed, tc.wantAllowed)
			}
			if got.Reason != tc.wantReason {
				t.Fatalf("reason = %q, want %q", got.Reason, tc.wantReason)
			}
		})
	}
}

type fakePlanLoader struct {
	plan *plandomain.Plan
	err  error
}

func (f *fakePlanLoader) CurrentPlan(ctx context.Context, tenantID snowflake.ID) (*plandomain.Plan, error) {
	return f.plan, f.err
}

func TestGateCheck(t *testing.T) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	tenantID := node.Generate()
	tenantCtx := tenantctx.WithTenant(context.Background(), tenantID, "acme")

	plan := &plandomain.Plan{
		ID:      node.Generate(),
		Name:    "Starter",
		Modules: plandomain.EncodeModules([]string{"hrm", "attendance"}),
	}

	gate := NewGate(GateParam{Log: zap.NewNop(), Plans: &fakePlanLoader{plan: plan}})

	decision, err := gate.Check(tenantCtx, "hrm")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("hrm denied: %+v", decision)
	}

	decision, err = gate.Check(tenantCtx, "payroll")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if decision.Allowed || decision.Reason != DenyPlan {
		t.Fatalf("payroll decision = %+v, want plan denial", decision)
	}

	decision, err = gate.Check(tenantCtx, "admin")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if decision.Allowed || decision.Reason != DenySystem {
		t.Fatalf("admin decision = %+v, want system denial", decision)
	}

	decision, err = gate.Check(context.Background(), "admin")
	if err != nil {
		t.Fatalf("Check central: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("central admin denied: %+v", decision)
	}
}

func TestGateCheck_NoPlan(t *testing.T) {
	node, _ := snowflake.NewNode(1)
	tenantCtx := tenantctx.WithTenant(context.Background(), node.Generate(), "acme")

	gate := NewGate(GateParam{Log: zap.NewNop(), Plans: &fakePlanLoader{}})

	decision, err := gate.Check(tenantCtx, "hrm")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if decision.Allowed || decision.Reason != DenyPlan {
		t.Fatalf("decision = %+v, want plan denial", decision)
	}

	// Core modules stay open while the tenant has no plan.
	decision, err = gate.Check(tenantCtx, "dashboard")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("dashboard denied without plan: %+v", decision)
	}
}
