package config

import "strings"

// Billing is the billing policy snapshot handed to the subscription
// lifecycle manager at construction. It is read once at startup instead
// of being queried from a settings store on every call.
type Billing struct {
	// TrialEnabled globally enables the one-per-tenant trial.
	TrialEnabled bool
	// TrialDays is the length of a trial subscription.
	TrialDays int
	// TrialRequiresPaymentMethod rejects trial selection without a
	// payment method when set.
	TrialRequiresPaymentMethod bool

	DefaultCurrency string

	// EnabledGateways lists the payment methods tenants may use.
	EnabledGateways []string

	// InvoiceNumberTemplate renders assigned invoice numbers, for
	// example "INV-{YYYY}{MM}-{SEQ6}". Empty selects the built-in
	// default.
	InvoiceNumberTemplate string
}

func loadBilling() Billing {
	return Billing{
		TrialEnabled:               getenvBool("BILLING_TRIAL_ENABLED", true),
		TrialDays:                  getenvInt("BILLING_TRIAL_DAYS", 14),
		TrialRequiresPaymentMethod: getenvBool("BILLING_TRIAL_REQUIRES_PAYMENT_METHOD", false),
		DefaultCurrency:            strings.ToUpper(getenv("BILLING_DEFAULT_CURRENCY", "USD")),
		EnabledGateways:            parseGateways(getenv("BILLING_ENABLED_GATEWAYS", "stripe,paypal,razorpay,bank_transfer,offline")),
		InvoiceNumberTemplate:      strings.TrimSpace(getenv("BILLING_INVOICE_NUMBER_TEMPLATE", "")),
	}
}

// GatewayEnabled reports whether the given payment method is enabled.
func (b Billing) GatewayEnabled(method string) bool {
	method = strings.ToLower(strings.TrimSpace(method))
	for _, gw := range b.EnabledGateways {
		if gw == method {
			return true
		}
	}
	return false
}

func parseGateways(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
