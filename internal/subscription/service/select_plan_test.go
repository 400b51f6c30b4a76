package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/workstack/hrsuite/internal/clock"
	"github.com/workstack/hrsuite/internal/config"
	paymentdomain "github.com/workstack/hrsuite/internal/payment/domain"
	paymentrepository "github.com/workstack/hrsuite/internal/payment/repository"
	plandomain "github.com/workstack/hrsuite/internal/plan/domain"
	planrepository "github.com/workstack/hrsuite/internal/plan/repository"
	subscriptiondomain "github.com/workstack/hrsuite/internal/subscription/domain"
	subscriptionrepository "github.com/workstack/hrsuite/internal/subscription/repository"
	tenantdomain "github.com/workstack/hrsuite/internal/tenant/domain"
	tenantrepository "github.com/workstack/hrsuite/internal/tenant/repository"
	"github.com/workstack/hrsuite/internal/tenantctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&tenantdomain.Tenant{},
		&plandomain.Plan{},
		&subscriptiondomain.Subscription{},
		&paymentdomain.Payment{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

type testEnv struct {
	db    *gorm.DB
	node  *snowflake.Node
	clk   *clock.FakeClock
	svc   subscriptiondomain.Service
	repo  subscriptiondomain.Repository
	trepo tenantdomain.Repository
}

func newTestEnv(t *testing.T, billing config.Billing) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC))

	repo := subscriptionrepository.Provide()
	trepo := tenantrepository.Provide()
	svc := NewService(ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Billing:     billing,
		Repo:        repo,
		PlanRepo:    planrepository.Provide(),
		TenantRepo:  trepo,
		PaymentRepo: paymentrepository.Provide(),
	})

	return &testEnv{db: db, node: node, clk: clk, svc: svc, repo: repo, trepo: trepo}
}

func defaultBilling() config.Billing {
	return config.Billing{
		TrialEnabled:    true,
		TrialDays:       14,
		DefaultCurrency: "USD",
		EnabledGateways: []string{"stripe", "paypal", "razorpay", "bank_transfer", "offline"},
	}
}

func (e *testEnv) seedTenant(t *testing.T, hasUsedTrial bool) *tenantdomain.Tenant {
	t.Helper()
	tenant := &tenantdomain.Tenant{
		ID:                 e.node.Generate(),
		Subdomain:          "acme",
		Name:               "Acme",
		Email:              "owner@acme.test",
		Status:             tenantdomain.StatusActive,
		DatabaseName:       "tenant_acme",
		ProvisioningStatus: tenantdomain.ProvisioningProvisioned,
		HasUsedTrial:       hasUsedTrial,
	}
	if err := e.db.Create(tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return tenant
}

func (e *testEnv) seedPlan(t *testing.T, name string, price int64, period plandomain.BillingPeriod) *plandomain.Plan {
	t.Helper()
	plan := &plandomain.Plan{
		ID:            e.node.Generate(),
		Name:          name,
		Price:         price,
		Currency:      "USD",
		BillingPeriod: period,
		Modules:       plandomain.EncodeModules([]string{"dashboard", "hrm"}),
		Active:        true,
	}
	if err := e.db.Create(plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan
}

func tenantContext(tenant *tenantdomain.Tenant) context.Context {
	return tenantctx.WithTenant(context.Background(), tenant.ID, tenant.Subdomain)
}

func TestSelectPlan_FreePlanActivates(t *testing.T) {
	env := newTestEnv(t, defaultBilling())
	tenant := env.seedTenant(t, false)
	plan := env.seedPlan(t, "Free", 0, plandomain.PeriodMonthly)

	resp, err := env.svc.SelectPlan(tenantContext(tenant), subscriptiondomain.SelectPlanRequest{
		PlanID: plan.ID.String(),
	})
	if err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}
	if resp.Result != subscriptiondomain.ResultActivated {
		t.Fatalf("result = %q, want %q", resp.Result, subscriptiondomain.ResultActivated)
	}
	if resp.Subscription.Status != subscriptiondomain.StatusActive {
		t.Fatalf("status = %q, want active", resp.Subscription.Status)
	}
	if resp.Subscription.EndsAt != nil {
		t.Fatalf("free plan should have no end date, got %v", resp.Subscription.EndsAt)
	}
}

func TestSelectPlan_TrialStartsOnce(t *testing.T) {
	env := newTestEnv(t, defaultBilling())
	tenant := env.seedTenant(t, false)
	plan := env.seedPlan(t, "Starter", 2900, plandomain.PeriodMonthly)

	resp, err := env.svc.SelectPlan(tenantContext(tenant), subscriptiondomain.SelectPlanRequest{
		PlanID: plan.ID.String(),
	})
	if err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}
	if resp.Result != subscriptiondomain.ResultTrialStarted {
		t.Fatalf("result = %q, want %q", resp.Result, subscriptiondomain.ResultTrialStarted)
	}
	if resp.Subscription.TrialEndsAt == nil {
		t.Fatal("trial subscription has no trial end")
	}
	wantEnd := env.clk.Now().AddDate(0, 0, 14)
	if !resp.Subscription.TrialEndsAt.Equal(wantEnd) {
		t.Fatalf("trial ends at %v, want %v", resp.Subscription.TrialEndsAt, wantEnd)
	}

	stored, err := env.trepo.FindByID(context.Background(), env.db, tenant.ID)
	if err != nil {
		t.Fatalf("reload tenant: %v", err)
	}
	if !stored.HasUsedTrial {
		t.Fatal("tenant trial flag not set")
	}
}

func TestSelectPlan_TrialUsedRequiresPayment(t *testing.T) {
	env := newTestEnv(t, defaultBilling())
	tenant := env.seedTenant(t, true)
	plan := env.seedPlan(t, "Starter", 2900, plandomain.PeriodMonthly)

	_, err := env.svc.SelectPlan(tenantContext(tenant), subscriptiondomain.SelectPlanRequest{
		PlanID: plan.ID.String(),
	})
	if err != subscriptiondomain.ErrPaymentMethodRequired {
		t.Fatalf("err = %v, want ErrPaymentMethodRequired", err)
	}

	_, err = env.svc.SelectPlan(tenantContext(tenant), subscriptiondomain.SelectPlanRequest{
		PlanID:        plan.ID.String(),
		PaymentMethod: "cheque",
	})
	if err != subscriptiondomain.ErrPaymentMethodUnknown {
		t.Fatalf("err = %v, want ErrPaymentMethodUnknown", err)
	}
}

func TestSelectPlan_PaidPlanCreatesPendingPayment(t *testing.T) {
	env := newTestEnv(t, defaultBilling())
	tenant := env.seedTenant(t, true)
	plan := env.seedPlan(t, "Professional", 7900, plandomain.PeriodYearly)

	resp, err := env.svc.SelectPlan(tenantContext(tenant), subscriptiondomain.SelectPlanRequest{
		PlanID:        plan.ID.String(),
		PaymentMethod: "stripe",
	})
	if err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}
	if resp.Result != subscriptiondomain.ResultPaymentPending {
		t.Fatalf("result = %q, want %q", resp.Result, subscriptiondomain.ResultPaymentPending)
	}
	if resp.Subscription.Status != subscriptiondomain.StatusPending {
		t.Fatalf("status = %q, want pending", resp.Subscription.Status)
	}
	if resp.PaymentID == "" {
		t.Fatal("no payment created")
	}
	wantURL := "/billing/payments/" + resp.PaymentID + "/checkout"
	if resp.RedirectURL != wantURL {
		t.Fatalf("redirect = %q, want %q", resp.RedirectURL, wantURL)
	}

	var payment paymentdomain.Payment
	if err := env.db.First(&payment, "subscription_id = ?", resp.Subscription.ID).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != paymentdomain.StatusPending {
		t.Fatalf("payment status = %q, want pending", payment.Status)
	}
	if payment.Amount != 7900 {
		t.Fatalf("payment amount = %d, want 7900", payment.Amount)
	}
}

func TestSelectPlan_OfflineMethodGetsInstructionsURL(t *testing.T) {
	env := newTestEnv(t, defaultBilling())
	tenant := env.seedTenant(t, true)
	plan := env.seedPlan(t, "Starter", 2900, plandomain.PeriodMonthly)

	resp, err := env.svc.SelectPlan(tenantContext(tenant), subscriptiondomain.SelectPlanRequest{
		PlanID:        plan.ID.String(),
		PaymentMethod: "bank_transfer",
	})
	if err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}
	wantURL := "/billing/payments/" + resp.PaymentID + "/instructions"
	if resp.RedirectURL != wantURL {
		t.Fatalf("redirect = %q, want %q", resp.RedirectURL, wantURL)
	}
}

func TestSelectPlan_SamePlanIsNoOp(t *testing.T) {
	env := newTestEnv(t, defaultBilling())
	tenant := env.seedTenant(t, false)
	plan := env.seedPlan(t, "Free", 0, plandomain.PeriodMonthly)

	ctx := tenantContext(tenant)
	if _, err := env.svc.SelectPlan(ctx, subscriptiondomain.SelectPlanRequest{PlanID: plan.ID.String()}); err != nil {
		t.Fatalf("first SelectPlan: %v", err)
	}

	resp, err := env.svc.SelectPlan(ctx, subscriptiondomain.SelectPlanRequest{PlanID: plan.ID.String()})
	if err != nil {
		t.Fatalf("second SelectPlan: %v", err)
	}
	if resp.Result != subscriptiondomain.ResultAlreadySubscribed {
		t.Fatalf("result = %q, want %q", resp.Result, subscriptiondomain.ResultAlreadySubscribed)
	}

	var count int64
	if err := env.db.Model(&subscriptiondomain.Subscription{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("subscription count = %d, want 1", count)
	}
}

func TestSelectPlan_SwitchCancelsPrevious(t *testing.T) {
	env := newTestEnv(t, defaultBilling())
	tenant := env.seedTenant(t, true)
	free := env.seedPlan(t, "Free", 0, plandomain.PeriodMonthly)
	other := env.seedPlan(t, "Community", 0, plandomain.PeriodMonthly)

	ctx := tenantContext(tenant)
	first, err := env.svc.SelectPlan(ctx, subscriptiondomain.SelectPlanRequest{PlanID: free.ID.String()})
	if err != nil {
		t.Fatalf("first SelectPlan: %v", err)
	}

	second, err := env.svc.SelectPlan(ctx, subscriptiondomain.SelectPlanRequest{PlanID: other.ID.String()})
	if err != nil {
		t.Fatalf("second SelectPlan: %v", err)
	}
	if second.Result != subscriptiondomain.ResultActivated {
		t.Fatalf("result = %q, want activated", second.Result)
	}

	previous, err := env.repo.FindByID(ctx, env.db, first.Subscription.ID)
	if err != nil {
		t.Fatalf("reload previous: %v", err)
	}
	if previous.Status != subscriptiondomain.StatusCancelled {
		t.Fatalf("previous status = %q, want cancelled", previous.Status)
	}
	if previous.CancelledAt == nil {
		t.Fatal("previous subscription missing cancelled_at")
	}

	live, err := env.repo.FindLiveByTenantID(ctx, env.db, tenant.ID)
	if err != nil {
		t.Fatalf("find live: %v", err)
	}
	if live == nil || live.PlanID != other.ID {
		t.Fatalf("live subscription not on new plan")
	}
}

func TestSelectPlan_TrialDisabledGoesStraightToPayment(t *testing.T) {
	billing := defaultBilling()
	billing.TrialEnabled = false
	env := newTestEnv(t, billing)
	tenant := env.seedTenant(t, false)
	plan := env.seedPlan(t, "Starter", 2900, plandomain.PeriodMonthly)

	resp, err := env.svc.SelectPlan(tenantContext(tenant), subscriptiondomain.SelectPlanRequest{
		PlanID:        plan.ID.String(),
		PaymentMethod: "paypal",
	})
	if err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}
	if resp.Result != subscriptiondomain.ResultPaymentPending {
		t.Fatalf("result = %q, want payment_pending", resp.Result)
	}
}

func TestSelectPlan_TrialRequiresPaymentMethodWhenConfigured(t *testing.T) {
	billing := defaultBilling()
	billing.TrialRequiresPaymentMethod = true
	env := newTestEnv(t, billing)
	tenant := env.seedTenant(t, false)
	plan := env.seedPlan(t, "Starter", 2900, plandomain.PeriodMonthly)

	_, err := env.svc.SelectPlan(tenantContext(tenant), subscriptiondomain.SelectPlanRequest{
		PlanID: plan.ID.String(),
	})
	if err != subscriptiondomain.ErrPaymentMethodRequired {
		t.Fatalf("err = %v, want ErrPaymentMethodRequired", err)
	}

	resp, err := env.svc.SelectPlan(tenantContext(tenant), subscriptiondomain.SelectPlanRequest{
		PlanID:        plan.ID.String(),
		PaymentMethod: "stripe",
	})
	if err != nil {
		t.Fatalf("SelectPlan with method: %v", err)
	}
	if resp.Result != subscriptiondomain.ResultTrialStarted {
		t.Fatalf("result = %q, want trial_started", resp.Result)
	}
}

func TestSelectPlan_WithoutTenantContext(t *testing.T) {
	env := newTestEnv(t, defaultBilling())
	plan := env.seedPlan(t, "Free", 0, plandomain.PeriodMonthly)

	_, err := env.svc.SelectPlan(context.Background(), subscriptiondomain.SelectPlanRequest{
		PlanID: plan.ID.String(),
	})
	if err != subscriptiondomain.ErrInvalidTenant {
		t.Fatalf("err = %v, want ErrInvalidTenant", err)
	}
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t, defaultBilling())
	tenant := env.seedTenant(t, false)
	plan := env.seedPlan(t, "Free", 0, plandomain.PeriodMonthly)

	ctx := tenantContext(tenant)
	if err := env.svc.Cancel(ctx, tenant.ID, "too expensive"); err != subscriptiondomain.ErrSubscriptionNotFound {
		t.Fatalf("cancel without subscription: err = %v, want ErrSubscriptionNotFound", err)
	}

	if _, err := env.svc.SelectPlan(ctx, subscriptiondomain.SelectPlanRequest{PlanID: plan.ID.String()}); err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}
	if err := env.svc.Cancel(ctx, tenant.ID, "too expensive"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	live, err := env.svc.Current(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if live != nil {
		t.Fatalf("subscription still live after cancel: %+v", live)
	}
}

func TestCurrentPlan(t *testing.T) {
	env := newTestEnv(t, defaultBilling())
	tenant := env.seedTenant(t, false)
	plan := env.seedPlan(t, "Starter", 2900, plandomain.PeriodMonthly)

	ctx := tenantContext(tenant)
	if _, err := env.svc.SelectPlan(ctx, subscriptiondomain.SelectPlanRequest{PlanID: plan.ID.String()}); err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}

	current, err := env.svc.CurrentPlan(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("CurrentPlan: %v", err)
	}
	if current == nil || current.ID != plan.ID {
		t.Fatalf("current plan = %+v, want %s", current, plan.ID)
	}

	// The trial lapses and the plan with it.
	env.clk.Advance(15 * 24 * time.Hour)
	current, err = env.svc.CurrentPlan(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("CurrentPlan after trial: %v", err)
	}
	if current != nil {
		t.Fatalf("expired trial still reports a plan: %+v", current)
	}
}
