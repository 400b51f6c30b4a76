package metrics

import "github.com/prometheus/client_golang/prometheus"

// BillingMetrics counts billing lifecycle outcomes.
type BillingMetrics struct {
	planSelections    *prometheus.CounterVec
	paymentsCompleted prometheus.Counter
	paymentsFailed    prometheus.Counter
}

func NewBillingMetrics() (*BillingMetrics, error) {
	m := &BillingMetrics{
		planSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrsuite_plan_selections_total",
			Help: "Plan selections by resulting subscription status.",
		}, []string{"status"}),
		paymentsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hrsuite_payments_completed_total",
			Help: "Payments finalized as completed.",
		}),
		paymentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hrsuite_payments_failed_total",
			Help: "Payments finalized as failed.",
		}),
	}

	for _, c := range []prometheus.Collector{m.planSelections, m.paymentsCompleted, m.paymentsFailed} {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}

	return m, nil
}

func (m *BillingMetrics) RecordPlanSelection(status string) {
	if m == nil {
		return
	}
	m.planSelections.WithLabelValues(status).Inc()
}

func (m *BillingMetrics) RecordPaymentCompleted() {
	if m == nil {
		return
	}
	m.paymentsCompleted.Inc()
}

func (m *BillingMetrics) RecordPaymentFailed() {
	if m == nil {
		return
	}
	m.paymentsFailed.Inc()
}
