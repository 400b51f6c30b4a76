package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/workstack/hrsuite/internal/subscription/domain"
	"github.com/workstack/hrsuite/internal/tenantctx"
)

type subscriptionResponse struct {
	ID          string     `json:"id"`
	PlanID      string     `json:"plan_id"`
	Status      string     `json:"status"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
}

func toSubscriptionResponse(subscription subscriptiondomain.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:          subscription.ID.String(),
		PlanID:      subscription.PlanID.String(),
		Status:      string(subscription.Status),
		StartsAt:    subscription.StartsAt,
		EndsAt:      subscription.EndsAt,
		TrialEndsAt: subscription.TrialEndsAt,
		Amount:      subscription.Amount,
		Currency:    subscription.Currency,
	}
}

func (s *Server) SelectPlan(c *gin.Context) {
	var req subscriptiondomain.SelectPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.subscriptionSvc.SelectPlan(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"result":       resp.Result,
		"subscription": toSubscriptionResponse(resp.Subscription),
		"payment_id":   resp.PaymentID,
		"redirect_url": resp.RedirectURL,
	}})
}

func (s *Server) CurrentSubscription(c *gin.Context) {
	tenantID := tenantctx.TenantID(c.Request.Context())

	subscription, err := s.subscriptionSvc.Current(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if subscription == nil {
		AbortWithError(c, subscriptiondomain.ErrSubscriptionNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toSubscriptionResponse(*subscription)})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	tenantID := tenantctx.TenantID(c.Request.Context())
	if err := s.subscriptionSvc.Cancel(c.Request.Context(), tenantID, req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "cancelled"}})
}
