package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	paymentdomain "github.com/workstack/hrsuite/internal/payment/domain"
	"github.com/workstack/hrsuite/internal/tenantctx"
	"github.com/workstack/hrsuite/pkg/db/pagination"
	"gorm.io/datatypes"
)

type paymentResponse struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscription_id"`
	PlanID         string     `json:"plan_id"`
	Method         string     `json:"method"`
	Status         string     `json:"status"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	InvoiceNumber  *string    `json:"invoice_number,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	RejectReason   *string    `json:"reject_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toPaymentResponse(payment paymentdomain.Payment) paymentResponse {
	return paymentResponse{
		ID:             payment.ID.String(),
		SubscriptionID: payment.SubscriptionID.String(),
		PlanID:         payment.PlanID.String(),
		Method:         string(payment.Method),
		Status:         string(payment.Status),
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		InvoiceNumber:  payment.InvoiceNumber,
		PaidAt:         payment.PaidAt,
		RejectReason:   payment.RejectReason,
		CreatedAt:      payment.CreatedAt,
	}
}

func (s *Server) CompletePayment(c *gin.Context) {
	var req struct {
		GatewayTransactionID string         `json:"gateway_transaction_id"`
		GatewayResponse      datatypes.JSON `json:"gateway_response"`
		ApprovedBy           string         `json:"approved_by"`
	}
	_ = c.ShouldBindJSON(&req)

	complete := paymentdomain.CompleteRequest{
		PaymentID:            c.Param("id"),
		GatewayTransactionID: req.GatewayTransactionID,
		GatewayResponse:      req.GatewayResponse,
	}
	if req.ApprovedBy != "" {
		if approver, err := snowflake.ParseString(req.ApprovedBy); err == nil {
			complete.ApprovedBy = &approver
		}
	}

	payment, err := s.paymentSvc.Complete(c.Request.Context(), complete)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toPaymentResponse(*payment)})
}

func (s *Server) FailPayment(c *gin.Context) {
	var req struct {
		GatewayResponse datatypes.JSON `json:"gateway_response"`
	}
	_ = c.ShouldBindJSON(&req)

	payment, err := s.paymentSvc.Fail(c.Request.Context(), paymentdomain.FailRequest{
		PaymentID:       c.Param("id"),
		GatewayResponse: req.GatewayResponse,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toPaymentResponse(*payment)})
}

func (s *Server) RejectPayment(c *gin.Context) {
	var req struct {
		RejectedBy string `json:"rejected_by"`
		Reason     string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rejectedBy, err := snowflake.ParseString(req.RejectedBy)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	payment, err := s.paymentSvc.Reject(c.Request.Context(), paymentdomain.RejectRequest{
		PaymentID:  c.Param("id"),
		RejectedBy: rejectedBy,
		Reason:     req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toPaymentResponse(*payment)})
}

func (s *Server) RefundPayment(c *gin.Context) {
	var req struct {
		Metadata map[string]string `json:"metadata"`
	}
	_ = c.ShouldBindJSON(&req)

	payment, err := s.paymentSvc.Refund(c.Request.Context(), paymentdomain.RefundRequest{
		PaymentID: c.Param("id"),
		Metadata:  req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toPaymentResponse(*payment)})
}

func (s *Server) GetPayment(c *gin.Context) {
	payment, err := s.paymentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Tenants only see their own payments.
	if tenantID := tenantctx.TenantID(c.Request.Context()); tenantID != 0 && payment.TenantID != tenantID {
		AbortWithError(c, paymentdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toPaymentResponse(*payment)})
}

func (s *Server) ListPayments(c *gin.Context) {
	tenantID := tenantctx.TenantID(c.Request.Context())
	if tenantID == 0 {
		AbortWithError(c, ErrForbidden)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	payments, info, err := s.paymentSvc.ListByTenant(c.Request.Context(), tenantID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]paymentResponse, 0, len(payments))
	for _, payment := range payments {
		out = append(out, toPaymentResponse(payment))
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "page_info": info})
}
