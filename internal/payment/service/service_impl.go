package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/workstack/hrsuite/internal/clock"
	"github.com/workstack/hrsuite/internal/config"
	"github.com/workstack/hrsuite/internal/notify"
	"github.com/workstack/hrsuite/internal/observability/metrics"
	paymentdomain "github.com/workstack/hrsuite/internal/payment/domain"
	"github.com/workstack/hrsuite/internal/payment/format"
	plandomain "github.com/workstack/hrsuite/internal/plan/domain"
	subscriptiondomain "github.com/workstack/hrsuite/internal/subscription/domain"
	tenantdomain "github.com/workstack/hrsuite/internal/tenant/domain"
	"github.com/workstack/hrsuite/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clock    clock.Clock
	billing  config.Billing
	metrics  *metrics.BillingMetrics
	notifier notify.Notifier

	repo             paymentdomain.Repository
	subscriptionRepo subscriptiondomain.Repository
	planRepo         plandomain.Repository
	tenantRepo       tenantdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Billing  config.Billing
	Metrics  *metrics.BillingMetrics
	Notifier notify.Notifier

	Repo             paymentdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
	PlanRepo         plandomain.Repository
	TenantRepo       tenantdomain.Repository
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("payment.service"),

		clock:    p.Clock,
		billing:  p.Billing,
		metrics:  p.Metrics,
		notifier: p.Notifier,

		repo:             p.Repo,
		subscriptionRepo: p.SubscriptionRepo,
		planRepo:         p.PlanRepo,
		tenantRepo:       p.TenantRepo,
	}
}

// Complete implements domain.Service.
func (s *Service) Complete(ctx context.Context, req paymentdomain.CompleteRequest) (*paymentdomain.Payment, error) {
	paymentID, err := s.parseID(req.PaymentID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	var payment *paymentdomain.Payment
	var alreadyCompleted bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err = s.repo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrNotFound
		}

		// Gateways retry webhooks. A completed payment stays exactly
		// as it was stamped the first time.
		if payment.Status == paymentdomain.StatusCompleted {
			alreadyCompleted = true
			return nil
		}
		if !payment.Status.Open() {
			return paymentdomain.ErrNotOpen
		}

		seq, err := s.repo.NextInvoiceSeq(ctx, tx, payment.TenantID)
		if err != nil {
			return err
		}
		template := s.billing.InvoiceNumberTemplate
		if template == "" {
			template = format.DefaultInvoiceNumberTemplate
		}
		number, err := format.InvoiceNumber(template, now, seq)
		if err != nil {
			return err
		}

		payment.Status = paymentdomain.StatusCompleted
		payment.InvoiceSeq = &seq
		payment.InvoiceNumber = &number
		payment.PaidAt = &now
		payment.UpdatedAt = now
		if txnID := strings.TrimSpace(req.GatewayTransactionID); txnID != "" {
			payment.GatewayTransactionID = &txnID
		}
		if len(req.GatewayResponse) > 0 {
			payment.GatewayResponse = req.GatewayResponse
		}
		if req.ApprovedBy != nil {
			payment.ApprovedBy = req.ApprovedBy
			payment.ApprovedAt = &now
		}

		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return err
		}

		return s.activateSubscription(ctx, tx, payment, now)
	})
	if err != nil {
		return nil, err
	}

	if alreadyCompleted {
		s.log.Info("payment already completed",
			zap.String("payment_id", payment.ID.String()),
		)
		return payment, nil
	}

	s.metrics.RecordPaymentCompleted()
	s.log.Info("payment completed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("tenant_id", payment.TenantID.String()),
		zap.Stringp("invoice_number", payment.InvoiceNumber),
	)

	s.sendReceipt(ctx, payment)

	return payment, nil
}

// activateSubscription promotes the pending subscription behind a paid
// payment. The previous live subscription is cancelled in the same
// transaction.
func (s *Service) activateSubscription(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment, now time.Time) error {
	subscription, err := s.subscriptionRepo.FindByID(ctx, tx, payment.SubscriptionID)
	if err != nil {
		return err
	}
	if subscription == nil {
		return subscriptiondomain.ErrSubscriptionNotFound
	}
	if subscription.Status != subscriptiondomain.StatusPending {
		// Already promoted, or superseded by a later plan change.
		return nil
	}

	plan, err := s.planRepo.FindByID(ctx, tx, payment.PlanID)
	if err != nil {
		return err
	}
	if plan == nil {
		return plandomain.ErrNotFound
	}

	if _, err := s.subscriptionRepo.CancelLive(ctx, tx, payment.TenantID, now, "plan_change"); err != nil {
		return err
	}
	return s.subscriptionRepo.Activate(ctx, tx, subscription.ID, now, plan.BillingPeriod.EndFrom(now))
}

func (s *Service) sendReceipt(ctx context.Context, payment *paymentdomain.Payment) {
	tenant, err := s.tenantRepo.FindByID(ctx, s.db, payment.TenantID)
	if err != nil || tenant == nil {
		s.log.Warn("receipt skipped, tenant lookup failed",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
		return
	}

	planName := ""
	if plan, err := s.planRepo.FindByID(ctx, s.db, payment.PlanID); err == nil && plan != nil {
		planName = plan.Name
	}

	invoiceNumber := ""
	if payment.InvoiceNumber != nil {
		invoiceNumber = *payment.InvoiceNumber
	}

	s.notifier.PaymentCompleted(ctx, notify.PaymentReceipt{
		TenantEmail:   tenant.Email,
		TenantName:    tenant.Name,
		PlanName:      planName,
		InvoiceNumber: invoiceNumber,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
	})
}

// Fail implements domain.Service.
func (s *Service) Fail(ctx context.Context, req paymentdomain.FailRequest) (*paymentdomain.Payment, error) {
	return s.close(ctx, req.PaymentID, func(payment *paymentdomain.Payment, now time.Time) error {
		if payment.Status == paymentdomain.StatusFailed {
			return nil
		}
		if !payment.Status.Open() {
			return paymentdomain.ErrNotOpen
		}

		payment.Status = paymentdomain.StatusFailed
		payment.UpdatedAt = now
		if len(req.GatewayResponse) > 0 {
			payment.GatewayResponse = req.GatewayResponse
		}
		return nil
	})
}

// Reject implements domain.Service.
func (s *Service) Reject(ctx context.Context, req paymentdomain.RejectRequest) (*paymentdomain.Payment, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, paymentdomain.ErrReasonRequired
	}

	return s.close(ctx, req.PaymentID, func(payment *paymentdomain.Payment, now time.Time) error {
		if !payment.Status.Open() {
			return paymentdomain.ErrNotOpen
		}

		payment.Status = paymentdomain.StatusRejected
		payment.RejectedBy = &req.RejectedBy
		payment.RejectedAt = &now
		payment.RejectReason = &reason
		payment.UpdatedAt = now
		return nil
	})
}

// Refund implements domain.Service.
func (s *Service) Refund(ctx context.Context, req paymentdomain.RefundRequest) (*paymentdomain.Payment, error) {
	return s.close(ctx, req.PaymentID, func(payment *paymentdomain.Payment, now time.Time) error {
		if payment.Status == paymentdomain.StatusRefunded {
			return nil
		}
		if payment.Status != paymentdomain.StatusCompleted {
			return paymentdomain.ErrNotCompleted
		}

		payment.Status = paymentdomain.StatusRefunded
		payment.UpdatedAt = now
		if len(req.Metadata) > 0 {
			if payment.Metadata == nil {
				payment.Metadata = datatypes.JSONMap{}
			}
			for k, v := range req.Metadata {
				payment.Metadata[k] = v
			}
		}
		// The subscription stays untouched; revoking access after a
		// refund is an operator decision made separately.
		return nil
	})
}

// close runs a finalizer over a row-locked payment in one transaction.
func (s *Service) close(ctx context.Context, rawID string, finalize func(*paymentdomain.Payment, time.Time) error) (*paymentdomain.Payment, error) {
	paymentID, err := s.parseID(rawID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	var payment *paymentdomain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err = s.repo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrNotFound
		}

		before := payment.Status
		if err := finalize(payment, now); err != nil {
			return err
		}
		if payment.Status == before {
			return nil
		}
		return s.repo.Update(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case paymentdomain.StatusFailed, paymentdomain.StatusRejected:
		s.metrics.RecordPaymentFailed()
	}
	s.log.Info("payment finalized",
		zap.String("payment_id", payment.ID.String()),
		zap.String("status", string(payment.Status)),
	)

	return payment, nil
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context, id string) (*paymentdomain.Payment, error) {
	paymentID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrNotFound
	}
	return payment, nil
}

// ListByTenant implements domain.Service.
func (s *Service) ListByTenant(ctx context.Context, tenantID snowflake.ID, page pagination.Pagination) ([]paymentdomain.Payment, pagination.PageInfo, error) {
	return s.repo.ListByTenantID(ctx, s.db, tenantID, page)
}

func (s *Service) parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, paymentdomain.ErrInvalidID
	}
	return id, nil
}
