package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/workstack/hrsuite/pkg/db/pagination"
	"gorm.io/datatypes"
)

// CompleteRequest finalizes a payment as successful. It is safe to
// deliver more than once; completion is idempotent.
type CompleteRequest struct {
	PaymentID            string         `json:"payment_id"`
	GatewayTransactionID string         `json:"gateway_transaction_id"`
	GatewayResponse      datatypes.JSON `json:"gateway_response"`
	// ApprovedBy identifies the operator for manual methods.
	ApprovedBy *snowflake.ID `json:"approved_by,omitempty"`
}

type FailRequest struct {
	PaymentID       string         `json:"payment_id"`
	GatewayResponse datatypes.JSON `json:"gateway_response"`
}

type RejectRequest struct {
	PaymentID  string       `json:"payment_id"`
	RejectedBy snowflake.ID `json:"rejected_by"`
	// Reason is required; a rejection without one is invalid.
	Reason string `json:"reason"`
}

type RefundRequest struct {
	PaymentID string            `json:"payment_id"`
	Metadata  map[string]string `json:"metadata"`
}

type Service interface {
	// Complete marks the payment paid, assigns its invoice number and
	// activates the subscription behind it. Repeat deliveries return
	// the already-completed payment unchanged.
	Complete(ctx context.Context, req CompleteRequest) (*Payment, error)

	// Fail closes an open payment as failed.
	Fail(ctx context.Context, req FailRequest) (*Payment, error)

	// Reject closes an open payment with an operator decision.
	Reject(ctx context.Context, req RejectRequest) (*Payment, error)

	// Refund flags a completed payment as refunded. The subscription
	// stays as-is; access changes are a separate decision.
	Refund(ctx context.Context, req RefundRequest) (*Payment, error)

	Get(ctx context.Context, id string) (*Payment, error)
	ListByTenant(ctx context.Context, tenantID snowflake.ID, page pagination.Pagination) ([]Payment, pagination.PageInfo, error)
}

var (
	ErrInvalidID      = errors.New("invalid_payment_id")
	ErrNotFound       = errors.New("payment_not_found")
	ErrNotOpen        = errors.New("payment_not_open")
	ErrNotCompleted   = errors.New("payment_not_completed")
	ErrReasonRequired = errors.New("reject_reason_required")
)
