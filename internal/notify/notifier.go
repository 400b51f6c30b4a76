// Package notify delivers best-effort billing notifications. Delivery
// failures are logged and never propagated to the calling transaction.
package notify

import (
	"context"
	"fmt"

	"github.com/workstack/hrsuite/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PaymentReceipt describes a completed payment for notification.
type PaymentReceipt struct {
	TenantEmail   string
	TenantName    string
	PlanName      string
	InvoiceNumber string
	Amount        int64
	Currency      string
}

type Notifier interface {
	PaymentCompleted(ctx context.Context, receipt PaymentReceipt)
}

type notifier struct {
	email email.Provider
	log   *zap.Logger
}

type Params struct {
	fx.In

	Email email.Provider
	Log   *zap.Logger
}

func New(p Params) Notifier {
	return &notifier{
		email: p.Email,
		log:   p.Log.Named("notify"),
	}
}

func (n *notifier) PaymentCompleted(ctx context.Context, receipt PaymentReceipt) {
	if receipt.TenantEmail == "" {
		return
	}

	subject := fmt.Sprintf("Payment received: invoice %s", receipt.InvoiceNumber)
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>We received your payment of %d %s for the <strong>%s</strong> plan.</p>
<p>Invoice number: %s</p>`,
		receipt.TenantName,
		receipt.Amount,
		receipt.Currency,
		receipt.PlanName,
		receipt.InvoiceNumber,
	)

	if err := n.email.Send(ctx, []string{receipt.TenantEmail}, subject, body); err != nil {
		n.log.Warn("payment receipt delivery failed",
			zap.String("invoice_number", receipt.InvoiceNumber),
			zap.Error(err),
		)
	}
}

var Module = fx.Module("notify",
	fx.Provide(New),
)
