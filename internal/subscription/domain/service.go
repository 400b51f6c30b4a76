package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/workstack/hrsuite/internal/plan/domain"
)

// SelectPlanRequest asks to move the tenant in context onto a plan.
type SelectPlanRequest struct {
	PlanID string `json:"plan_id"`
	// PaymentMethod names the gateway the tenant will pay with. It is
	// required for non-free plans unless a trial applies.
	PaymentMethod string `json:"payment_method"`
}

// SelectPlanResult names the outcome of a plan selection.
type SelectPlanResult string

const (
	ResultTrialStarted      SelectPlanResult = "trial_started"
	ResultActivated         SelectPlanResult = "activated"
	ResultPaymentPending    SelectPlanResult = "payment_pending"
	ResultAlreadySubscribed SelectPlanResult = "already_subscribed"
)

type SelectPlanResponse struct {
	Result       SelectPlanResult `json:"result"`
	Subscription Subscription     `json:"subscription"`
	// PaymentID is set when a pending payment was created.
	PaymentID string `json:"payment_id,omitempty"`
	// RedirectURL points at the checkout or payment-instruction page
	// for pending payments.
	RedirectURL string `json:"redirect_url,omitempty"`
}

type Service interface {
	// SelectPlan runs the plan-selection state machine for the tenant
	// in context. Selecting the currently held plan is a no-op.
	SelectPlan(ctx context.Context, req SelectPlanRequest) (SelectPlanResponse, error)

	// Current returns the tenant's live (trial or active) subscription.
	Current(ctx context.Context, tenantID snowflake.ID) (*Subscription, error)

	// CurrentPlan returns the plan behind the tenant's live
	// subscription, or nil when there is none.
	CurrentPlan(ctx context.Context, tenantID snowflake.ID) (*plandomain.Plan, error)

	// Cancel cancels the tenant's live subscription with a reason.
	Cancel(ctx context.Context, tenantID snowflake.ID, reason string) error
}

var (
	ErrInvalidTenant         = errors.New("invalid_tenant")
	ErrInvalidPlan           = errors.New("invalid_plan")
	ErrPlanNotFound          = errors.New("plan_not_found")
	ErrPaymentMethodRequired = errors.New("payment_method_required")
	ErrPaymentMethodUnknown  = errors.New("payment_method_unknown")
	ErrSubscriptionNotFound  = errors.New("subscription_not_found")
	// ErrPlanChangeInProgress means another plan change for the same
	// tenant holds the advisory lock or won the commit race.
	ErrPlanChangeInProgress = errors.New("plan_change_in_progress")
)
