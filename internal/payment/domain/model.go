// Package domain contains the payment model and lifecycle contract.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Method is the gateway a payment goes through.
type Method string

const (
	MethodStripe       Method = "stripe"
	MethodPaypal       Method = "paypal"
	MethodRazorpay     Method = "razorpay"
	MethodBankTransfer Method = "bank_transfer"
	MethodOffline      Method = "offline"
)

// ParseMethod normalizes and validates a payment method string.
func ParseMethod(raw string) (Method, bool) {
	switch m := Method(strings.ToLower(strings.TrimSpace(raw))); m {
	case MethodStripe, MethodPaypal, MethodRazorpay, MethodBankTransfer, MethodOffline:
		return m, true
	default:
		return "", false
	}
}

// Hosted reports whether the method redirects to a gateway-hosted
// checkout page. Non-hosted methods get an instructions page instead.
func (m Method) Hosted() bool {
	switch m {
	case MethodStripe, MethodPaypal, MethodRazorpay:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a payment.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRejected   Status = "rejected"
	StatusRefunded   Status = "refunded"
)

// Open reports whether the payment can still be finalized.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusProcessing
}

type Payment struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	TenantID       snowflake.ID `gorm:"not null;index;index:ux_payments_tenant_invoice,unique"`
	SubscriptionID snowflake.ID `gorm:"not null;index"`
	PlanID         snowflake.ID `gorm:"not null"`

	Method Method `gorm:"type:text;not null"`
	Status Status `gorm:"type:text;not null"`

	Amount   int64  `gorm:"not null"`
	Currency string `gorm:"type:text;not null"`

	GatewayTransactionID *string        `gorm:"type:text"`
	GatewayResponse      datatypes.JSON `gorm:"type:jsonb"`

	// InvoiceSeq and InvoiceNumber are assigned exactly once, when the
	// payment completes. The sequence is monotonic per tenant.
	InvoiceSeq    *int64  `gorm:""`
	InvoiceNumber *string `gorm:"type:text;index:ux_payments_tenant_invoice,unique"`
	PaidAt        *time.Time

	ApprovedBy *snowflake.ID
	ApprovedAt *time.Time

	RejectedBy   *snowflake.ID
	RejectedAt   *time.Time
	RejectReason *string `gorm:"type:text"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payment) TableName() string { return "payments" }
