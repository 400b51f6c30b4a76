package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/workstack/hrsuite/internal/clock"
	"github.com/workstack/hrsuite/internal/config"
	"github.com/workstack/hrsuite/internal/locking"
	"github.com/workstack/hrsuite/internal/observability/metrics"
	paymentdomain "github.com/workstack/hrsuite/internal/payment/domain"
	plandomain "github.com/workstack/hrsuite/internal/plan/domain"
	subscriptiondomain "github.com/workstack/hrsuite/internal/subscription/domain"
	tenantdomain "github.com/workstack/hrsuite/internal/tenant/domain"
	"github.com/workstack/hrsuite/internal/tenantctx"
	"github.com/workstack/hrsuite/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const planChangeLockTTL = 10 * time.Second

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	billing config.Billing
	locker  *locking.Locker
	metrics *metrics.BillingMetrics

	repo        subscriptiondomain.Repository
	planRepo    plandomain.Repository
	tenantRepo  tenantdomain.Repository
	paymentRepo paymentdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Billing config.Billing
	Locker  *locking.Locker `optional:"true"`
	Metrics *metrics.BillingMetrics

	Repo        subscriptiondomain.Repository
	PlanRepo    plandomain.Repository
	TenantRepo  tenantdomain.Repository
	PaymentRepo paymentdomain.Repository
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		billing: p.Billing,
		locker:  p.Locker,
		metrics: p.Metrics,

		repo:        p.Repo,
		planRepo:    p.PlanRepo,
		tenantRepo:  p.TenantRepo,
		paymentRepo: p.PaymentRepo,
	}
}

// SelectPlan implements domain.Service.
func (s *Service) SelectPlan(ctx context.Context, req subscriptiondomain.SelectPlanRequest) (subscriptiondomain.SelectPlanResponse, error) {
	tenantID := tenantctx.TenantID(ctx)
	if tenantID == 0 {
		return subscriptiondomain.SelectPlanResponse{}, subscriptiondomain.ErrInvalidTenant
	}

	planID, err := snowflake.ParseString(strings.TrimSpace(req.PlanID))
	if err != nil || planID == 0 {
		return subscriptiondomain.SelectPlanResponse{}, subscriptiondomain.ErrInvalidPlan
	}

	tenant, err := s.tenantRepo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return subscriptiondomain.SelectPlanResponse{}, err
	}
	if tenant == nil {
		return subscriptiondomain.SelectPlanResponse{}, subscriptiondomain.ErrInvalidTenant
	}

	plan, err := s.planRepo.FindByID(ctx, s.db, planID)
	if err != nil {
		return subscriptiondomain.SelectPlanResponse{}, err
	}
	if plan == nil || !plan.Active {
		return subscriptiondomain.SelectPlanResponse{}, subscriptiondomain.ErrPlanNotFound
	}

	current, err := s.repo.FindLiveByTenantID(ctx, s.db, tenantID)
	if err != nil {
		return subscriptiondomain.SelectPlanResponse{}, err
	}
	if current != nil && current.PlanID == planID {
		return subscriptiondomain.SelectPlanResponse{
			Result:       subscriptiondomain.ResultAlreadySubscribed,
			Subscription: *current,
		}, nil
	}

	// Serialize concurrent plan changes for one tenant. The partial
	// unique index on live subscriptions backstops this when redis is
	// down.
	lockKey := fmt.Sprintf("billing:planchange:%s", tenantID)
	token, locked, err := s.locker.TryLock(ctx, lockKey, planChangeLockTTL)
	switch {
	case err != nil:
		s.log.Warn("plan change lock unavailable", zap.Error(err))
	case locked:
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
				s.log.Warn("plan change lock release failed", zap.Error(err))
			}
		}()
	case s.locker != nil:
		// Another change for this tenant holds the lock.
		return subscriptiondomain.SelectPlanResponse{}, subscriptiondomain.ErrPlanChangeInProgress
	}

	now := s.clock.Now()

	switch {
	case plan.IsFree():
		return s.activateFree(ctx, tenant, plan, now)
	case s.trialEligible(tenant, plan):
		return s.startTrial(ctx, tenant, plan, strings.TrimSpace(req.PaymentMethod), now)
	default:
		return s.createPending(ctx, tenant, plan, strings.TrimSpace(req.PaymentMethod), now)
	}
}

func (s *Service) trialEligible(tenant *tenantdomain.Tenant, plan *plandomain.Plan) bool {
	return s.billing.TrialEnabled && s.billing.TrialDays > 0 && !tenant.HasUsedTrial && !plan.IsFree()
}

func (s *Service) activateFree(ctx context.Context, tenant *tenantdomain.Tenant, plan *plandomain.Plan, now time.Time) (subscriptiondomain.SelectPlanResponse, error) {
	subscription := s.newSubscription(tenant.ID, plan, subscriptiondomain.StatusActive, now)
	subscription.EndsAt = nil

	if err := s.replaceLive(ctx, tenant.ID, subscription, "plan_change", now, false); err != nil {
		return subscriptiondomain.SelectPlanResponse{}, err
	}

	s.metrics.RecordPlanSelection(string(subscriptiondomain.StatusActive))
	s.log.Info("free plan activated",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("plan_id", plan.ID.String()),
	)

	return subscriptiondomain.SelectPlanResponse{
		Result:       subscriptiondomain.ResultActivated,
		Subscription: *subscription,
	}, nil
}

func (s *Service) startTrial(ctx context.Context, tenant *tenantdomain.Tenant, plan *plandomain.Plan, method string, now time.Time) (subscriptiondomain.SelectPlanResponse, error) {
	if s.billing.TrialRequiresPaymentMethod {
		if method == "" {
			return subscriptiondomain.SelectPlanResponse{}, subscriptiondomain.ErrPaymentMethodRequired
		}
		if _, ok := paymentdomain.ParseMethod(method); !ok || !s.billing.GatewayEnabled(method) {
			return subscriptiondomain.SelectPlanResponse{}, subscriptiondomain.ErrPaymentMethodUnknown
		}
	}

	trialEndsAt := now.AddDate(0, 0, s.billing.TrialDays)

	subscription := s.newSubscription(tenant.ID, plan, subscriptiondomain.StatusTrial, now)
	subscription.TrialEndsAt = &trialEndsAt
	subscription.EndsAt = nil

	if err := s.replaceLive(ctx, tenant.ID, subscription, "plan_change", now, true); err != nil {
		return subscriptiondomain.SelectPlanResponse{}, err
	}

	s.metrics.RecordPlanSelection(string(subscriptiondomain.StatusTrial))
	s.log.Info("trial started",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.Time("trial_ends_at", trialEndsAt),
	)

	return subscriptiondomain.SelectPlanResponse{
		Result:       subscriptiondomain.ResultTrialStarted,
		Subscription: *subscription,
	}, nil
}

func (s *Service) createPending(ctx context.Context, tenant *tenantdomain.Tenant, plan *plandomain.Plan, rawMethod string, now time.Time) (subscriptiondomain.SelectPlanResponse, error) {
	if rawMethod == "" {
		return subscriptiondomain.SelectPlanResponse{}, subscriptiondomain.ErrPaymentMethodRequired
	}
	method, ok := paymentdomain.ParseMethod(rawMethod)
	if !ok || !s.billing.GatewayEnabled(string(method)) {
		return subscriptiondomain.SelectPlanResponse{}, subscriptiondomain.ErrPaymentMethodUnknown
	}

	subscription := s.newSubscription(tenant.ID, plan, subscriptiondomain.StatusPending, now)
	payment := &paymentdomain.Payment{
		ID:             s.genID.Generate(),
		TenantID:       tenant.ID,
		SubscriptionID: subscription.ID,
		PlanID:         plan.ID,
		Method:         method,
		Status:         paymentdomain.StatusPending,
		Amount:         plan.Price,
		Currency:       plan.Currency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// A pending subscription is not live, so nothing is cancelled
	// here. The live subscription keeps running until the payment
	// completes.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, subscription); err != nil {
			return err
		}
		return s.paymentRepo.Insert(ctx, tx, payment)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return subscriptiondomain.SelectPlanResponse{}, subscriptiondomain.ErrPlanChangeInProgress
		}
		return subscriptiondomain.SelectPlanResponse{}, err
	}

	s.metrics.RecordPlanSelection(string(subscriptiondomain.StatusPending))
	s.log.Info("payment pending",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("method", string(method)),
	)

	return subscriptiondomain.SelectPlanResponse{
		Result:       subscriptiondomain.ResultPaymentPending,
		Subscription: *subscription,
		PaymentID:    payment.ID.String(),
		RedirectURL:  redirectURL(payment),
	}, nil
}

// replaceLive cancels the tenant's live subscription and inserts the
// replacement in one transaction, so the partial unique index never
// sees two live rows.
func (s *Service) replaceLive(ctx context.Context, tenantID snowflake.ID, subscription *subscriptiondomain.Subscription, reason string, now time.Time, markTrialUsed bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.CancelLive(ctx, tx, tenantID, now, reason); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, subscription); err != nil {
			return err
		}
		if markTrialUsed {
			return s.tenantRepo.MarkTrialUsed(ctx, tx, tenantID)
		}
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return subscriptiondomain.ErrPlanChangeInProgress
		}
		return err
	}
	return nil
}

func (s *Service) newSubscription(tenantID snowflake.ID, plan *plandomain.Plan, status subscriptiondomain.Status, now time.Time) *subscriptiondomain.Subscription {
	return &subscriptiondomain.Subscription{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		PlanID:    plan.ID,
		Status:    status,
		StartsAt:  now,
		EndsAt:    plan.BillingPeriod.EndFrom(now),
		Amount:    plan.Price,
		Currency:  plan.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func redirectURL(payment *paymentdomain.Payment) string {
	if payment.Method.Hosted() {
		return fmt.Sprintf("/billing/payments/%s/checkout", payment.ID)
	}
	return fmt.Sprintf("/billing/payments/%s/instructions", payment.ID)
}

// Current implements domain.Service.
func (s *Service) Current(ctx context.Context, tenantID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	if tenantID == 0 {
		return nil, subscriptiondomain.ErrInvalidTenant
	}
	return s.repo.FindLiveByTenantID(ctx, s.db, tenantID)
}

// CurrentPlan implements domain.Service.
func (s *Service) CurrentPlan(ctx context.Context, tenantID snowflake.ID) (*plandomain.Plan, error) {
	subscription, err := s.Current(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if subscription == nil || !subscription.ValidAt(s.clock.Now()) {
		return nil, nil
	}
	return s.planRepo.FindByID(ctx, s.db, subscription.PlanID)
}

// Cancel implements domain.Service.
func (s *Service) Cancel(ctx context.Context, tenantID snowflake.ID, reason string) error {
	if tenantID == 0 {
		return subscriptiondomain.ErrInvalidTenant
	}

	affected, err := s.repo.CancelLive(ctx, s.db, tenantID, s.clock.Now(), strings.TrimSpace(reason))
	if err != nil {
		return err
	}
	if affected == 0 {
		return subscriptiondomain.ErrSubscriptionNotFound
	}

	s.metrics.RecordPlanSelection(string(subscriptiondomain.StatusCancelled))
	s.log.Info("subscription cancelled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("reason", reason),
	)
	return nil
}
