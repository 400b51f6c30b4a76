package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/workstack/hrsuite/internal/clock"
	"github.com/workstack/hrsuite/internal/notify"
	paymentdomain "github.com/workstack/hrsuite/internal/payment/domain"
	paymentrepository "github.com/workstack/hrsuite/internal/payment/repository"
	plandomain "github.com/workstack/hrsuite/internal/plan/domain"
	planrepository "github.com/workstack/hrsuite/internal/plan/repository"
	subscriptiondomain "github.com/workstack/hrsuite/internal/subscription/domain"
	subscriptionrepository "github.com/workstack/hrsuite/internal/subscription/repository"
	tenantdomain "github.com/workstack/hrsuite/internal/tenant/domain"
	tenantrepository "github.com/workstack/hrsuite/internal/tenant/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	receipts []notify.PaymentReceipt
}

func (r *recordingNotifier) PaymentCompleted(ctx context.Context, receipt notify.PaymentReceipt) {
	r.receipts = append(r.receipts, receipt)
}

type paymentTestEnv struct {
	db       *gorm.DB
	node     *snowflake.Node
	clk      *clock.FakeClock
	svc      paymentdomain.Service
	notifier *recordingNotifier

	tenant       *tenantdomain.Tenant
	plan         *plandomain.Plan
	subscription *subscriptiondomain.Subscription
	payment      *paymentdomain.Payment
}

func setupPaymentTest(t *testing.T) *paymentTestEnv {
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

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2026, time.June, 15, 9, 30, 0, 0, time.UTC))
	notifier := &recordingNotifier{}

	svc := NewService(ServiceParam{
		DB:               db,
		Log:              zap.NewNop(),
		Clock:            clk,
		Notifier:         notifier,
		Repo:             paymentrepository.Provide(),
		SubscriptionRepo: subscriptionrepository.Provide(),
		PlanRepo:         planrepository.Provide(),
		TenantRepo:       tenantrepository.Provide(),
	})

	env := &paymentTestEnv{db: db, node: node, clk: clk, svc: svc, notifier: notifier}

	env.tenant = &tenantdomain.Tenant{
		ID:                 node.Generate(),
		Subdomain:          "acme",
		Name:               "Acme",
		Email:              "owner@acme.test",
		Status:             tenantdomain.StatusActive,
		DatabaseName:       "tenant_acme",
		ProvisioningStatus: tenantdomain.ProvisioningProvisioned,
	}
	env.plan = &plandomain.Plan{
		ID:            node.Generate(),
		Name:          "Professional",
		Price:         7900,
		Currency:      "USD",
		BillingPeriod: plandomain.PeriodMonthly,
		Active:        true,
	}
	env.subscription = &subscriptiondomain.Subscription{
		ID:       node.Generate(),
		TenantID: env.tenant.ID,
		PlanID:   env.plan.ID,
		Status:   subscriptiondomain.StatusPending,
		StartsAt: clk.Now(),
		Amount:   env.plan.Price,
		Currency: "USD",
	}
	env.payment = &paymentdomain.Payment{
		ID:             node.Generate(),
		TenantID:       env.tenant.ID,
		SubscriptionID: env.subscription.ID,
		PlanID:         env.plan.ID,
		Method:         paymentdomain.MethodStripe,
		Status:         paymentdomain.StatusPending,
		Amount:         env.plan.Price,
		Currency:       "USD",
	}

	for _, row := range []any{env.tenant, env.plan, env.subscription, env.payment} {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return env
}

func TestComplete(t *testing.T) {
	env := setupPaymentTest(t)
	ctx := context.Background()

	payment, err := env.svc.Complete(ctx, paymentdomain.CompleteRequest{
		PaymentID:            env.payment.ID.String(),
		GatewayTransactionID: "pi_123",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if payment.Status != paymentdomain.StatusCompleted {
		t.Fatalf("status = %q, want completed", payment.Status)
	}
	if payment.InvoiceNumber == nil || *payment.InvoiceNumber != "INV-202606-000001" {
		t.Fatalf("invoice number = %v, want INV-202606-000001", payment.InvoiceNumber)
	}
	if payment.PaidAt == nil || !payment.PaidAt.Equal(env.clk.Now()) {
		t.Fatalf("paid_at = %v, want %v", payment.PaidAt, env.clk.Now())
	}
	if payment.GatewayTransactionID == nil || *payment.GatewayTransactionID != "pi_123" {
		t.Fatalf("gateway transaction id = %v, want pi_123", payment.GatewayTransactionID)
	}

	var stored paymentdomain.Payment
	if err := env.db.First(&stored, "id = ?", env.payment.ID).Error; err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if stored.GatewayTransactionID == nil || *stored.GatewayTransactionID != "pi_123" {
		t.Fatalf("stored gateway transaction id = %v, want pi_123", stored.GatewayTransactionID)
	}

	var subscription subscriptiondomain.Subscription
	if err := env.db.First(&subscription, "id = ?", env.subscription.ID).Error; err != nil {
		t.Fatalf("reload subscription: %v", err)
	}
	if subscription.Status != subscriptiondomain.StatusActive {
		t.Fatalf("subscription status = %q, want active", subscription.Status)
	}
	wantEnd := env.clk.Now().AddDate(0, 1, 0)
	if subscription.EndsAt == nil || !subscription.EndsAt.Equal(wantEnd) {
		t.Fatalf("subscription ends at %v, want %v", subscription.EndsAt, wantEnd)
	}

	if len(env.notifier.receipts) != 1 {
		t.Fatalf("receipts = %d, want 1", len(env.notifier.receipts))
	}
	receipt := env.notifier.receipts[0]
	if receipt.TenantEmail != "owner@acme.test" || receipt.InvoiceNumber != "INV-202606-000001" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
}

func TestComplete_Idempotent(t *testing.T) {
	env := setupPaymentTest(t)
	ctx := context.Background()

	first, err := env.svc.Complete(ctx, paymentdomain.CompleteRequest{
		PaymentID: env.payment.ID.String(),
	})
	if err != nil {
		t.Fatalf("first Complete: %v", err)
	}

	env.clk.Advance(48 * time.Hour)
	second, err := env.svc.Complete(ctx, paymentdomain.CompleteRequest{
		PaymentID: env.payment.ID.String(),
	})
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}

	if *second.InvoiceNumber != *first.InvoiceNumber {
		t.Fatalf("invoice number changed on retry: %q -> %q", *first.InvoiceNumber, *second.InvoiceNumber)
	}
	if !second.PaidAt.Equal(*first.PaidAt) {
		t.Fatalf("paid_at changed on retry: %v -> %v", first.PaidAt, second.PaidAt)
	}
	if len(env.notifier.receipts) != 1 {
		t.Fatalf("receipts = %d, want 1 (no resend on retry)", len(env.notifier.receipts))
	}

	var count int64
	env.db.Model(&paymentdomain.Payment{}).Where("invoice_number IS NOT NULL").Count(&count)
	if count != 1 {
		t.Fatalf("payments with invoice numbers = %d, want 1", count)
	}
}

func TestComplete_SecondPaymentGetsNextSeq(t *testing.T) {
	env := setupPaymentTest(t)
	ctx := context.Background()

	if _, err := env.svc.Complete(ctx, paymentdomain.CompleteRequest{PaymentID: env.payment.ID.String()}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	next := &paymentdomain.Payment{
		ID:             env.node.Generate(),
		TenantID:       env.tenant.ID,
		SubscriptionID: env.subscription.ID,
		PlanID:         env.plan.ID,
		Method:         paymentdomain.MethodStripe,
		Status:         paymentdomain.StatusPending,
		Amount:         7900,
		Currency:       "USD",
	}
	if err := env.db.Create(next).Error; err != nil {
		t.Fatalf("seed second payment: %v", err)
	}

	completed, err := env.svc.Complete(ctx, paymentdomain.CompleteRequest{PaymentID: next.ID.String()})
	if err != nil {
		t.Fatalf("Complete second: %v", err)
	}
	if *completed.InvoiceNumber != "INV-202606-000002" {
		t.Fatalf("invoice number = %q, want INV-202606-000002", *completed.InvoiceNumber)
	}
}

func TestFail(t *testing.T) {
	env := setupPaymentTest(t)
	ctx := context.Background()

	payment, err := env.svc.Fail(ctx, paymentdomain.FailRequest{PaymentID: env.payment.ID.String()})
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if payment.Status != paymentdomain.StatusFailed {
		t.Fatalf("status = %q, want failed", payment.Status)
	}
	if payment.InvoiceNumber != nil {
		t.Fatalf("failed payment has invoice number %q", *payment.InvoiceNumber)
	}

	// The pending subscription is left alone; the tenant may retry.
	var subscription subscriptiondomain.Subscription
	if err := env.db.First(&subscription, "id = ?", env.subscription.ID).Error; err != nil {
		t.Fatalf("reload subscription: %v", err)
	}
	if subscription.Status != subscriptiondomain.StatusPending {
		t.Fatalf("subscription status = %q, want pending", subscription.Status)
	}

	// A failed payment cannot be completed afterwards.
	if _, err := env.svc.Complete(ctx, paymentdomain.CompleteRequest{PaymentID: env.payment.ID.String()}); err != paymentdomain.ErrNotOpen {
		t.Fatalf("Complete after fail: err = %v, want ErrNotOpen", err)
	}
}

func TestReject(t *testing.T) {
	env := setupPaymentTest(t)
	ctx := context.Background()
	operator := env.node.Generate()

	if _, err := env.svc.Reject(ctx, paymentdomain.RejectRequest{
		PaymentID:  env.payment.ID.String(),
		RejectedBy: operator,
	}); err != paymentdomain.ErrReasonRequired {
		t.Fatalf("Reject without reason: err = %v, want ErrReasonRequired", err)
	}

	payment, err := env.svc.Reject(ctx, paymentdomain.RejectRequest{
		PaymentID:  env.payment.ID.String(),
		RejectedBy: operator,
		Reason:     "proof of transfer missing",
	})
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if payment.Status != paymentdomain.StatusRejected {
		t.Fatalf("status = %q, want rejected", payment.Status)
	}
	if payment.RejectReason == nil || *payment.RejectReason != "proof of transfer missing" {
		t.Fatalf("reject reason = %v", payment.RejectReason)
	}
	if payment.RejectedBy == nil || *payment.RejectedBy != operator {
		t.Fatalf("rejected by = %v, want %s", payment.RejectedBy, operator)
	}
}

func TestRefund(t *testing.T) {
	env := setupPaymentTest(t)
	ctx := context.Background()

	if _, err := env.svc.Refund(ctx, paymentdomain.RefundRequest{
		PaymentID: env.payment.ID.String(),
	}); err != paymentdomain.ErrNotCompleted {
		t.Fatalf("Refund pending payment: err = %v, want ErrNotCompleted", err)
	}

	if _, err := env.svc.Complete(ctx, paymentdomain.CompleteRequest{PaymentID: env.payment.ID.String()}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	payment, err := env.svc.Refund(ctx, paymentdomain.RefundRequest{
		PaymentID: env.payment.ID.String(),
		Metadata:  map[string]string{"refund_ref": "re_42"},
	})
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if payment.Status != paymentdomain.StatusRefunded {
		t.Fatalf("status = %q, want refunded", payment.Status)
	}
	if payment.Metadata["refund_ref"] != "re_42" {
		t.Fatalf("metadata = %v", payment.Metadata)
	}

	// Access is not revoked by the refund itself.
	var subscription subscriptiondomain.Subscription
	if err := env.db.First(&subscription, "id = ?", env.subscription.ID).Error; err != nil {
		t.Fatalf("reload subscription: %v", err)
	}
	if subscription.Status != subscriptiondomain.StatusActive {
		t.Fatalf("subscription status = %q, want active", subscription.Status)
	}
}

func TestGet_UnknownPayment(t *testing.T) {
	env := setupPaymentTest(t)

	if _, err := env.svc.Get(context.Background(), "not-a-number"); err != paymentdomain.ErrInvalidID {
		t.Fatalf("err = %v, want ErrInvalidID", err)
	}
	if _, err := env.svc.Get(context.Background(), env.node.Generate().String()); err != paymentdomain.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
