package metrics

import "github.com/prometheus/client_golang/prometheus"

// ShipmentMetrics tracks courier booking attempts.
type ShipmentMetrics struct {
	attempts *prometheus.CounterVec
	booked   prometheus.Counter
	exhaust  prometheus.Counter
}

// NewShipmentMetrics registers the shipment counters on reg.
func NewShipmentMetrics(reg prometheus.Registerer) *ShipmentMetrics {
	if reg == nil {
		return &ShipmentMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipment_courier_attempts_total",
		Help: "Shipment creation attempts by outcome (booked, unserviceable, error).",
	}, []string{"outcome"})
	booked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shipments_booked_total",
		Help: "Orders that received an AWB.",
	})
	exhaust := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shipment_couriers_exhausted_total",
		Help: "Orders for which every courier candidate failed.",
	})
	reg.MustRegister(attempts, booked, exhaust)
	return &ShipmentMetrics{attempts: attempts, booked: booked, exhaust: exhaust}
}

// IncAttempt records one courier attempt.
func (s *ShipmentMetrics) IncAttempt(outcome string) {
	if s == nil || s.attempts == nil {
		return
	}
	s.attempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncBooked records a successful booking.
func (s *ShipmentMetrics) IncBooked() {
	if s == nil || s.booked == nil {
		return
	}
	s.booked.Inc()
}

// IncExhausted records an order that ran out of couriers.
func (s *ShipmentMetrics) IncExhausted() {
	if s == nil || s.exhaust == nil {
		return
	}
	s.exhaust.Inc()
}
