package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics counts reconciliation outcomes per gateway.
type PaymentMetrics struct {
	reconciled *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment counters on reg. A nil registerer
// yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	reconciled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliations_total",
		Help: "Payment reconciliations by gateway and resulting state.",
	}, []string{"gateway", "state"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliation_errors_total",
		Help: "Payment reconciliations that returned an error.",
	}, []string{"gateway"})
	reg.MustRegister(reconciled, failures)
	return &PaymentMetrics{reconciled: reconciled, failures: failures}
}

// IncReconciled records one reconciliation that reached state.
func (p *PaymentMetrics) IncReconciled(gateway, state string) {
	if p == nil || p.reconciled == nil {
		return
	}
	p.reconciled.WithLabelValues(normalizeLabel(gateway), normalizeLabel(state)).Inc()
}

// IncError records a failed reconciliation.
func (p *PaymentMetrics) IncError(gateway string) {
	if p == nil || p.failures == nil {
		return
	}
	p.failures.WithLabelValues(normalizeLabel(gateway)).Inc()
}
