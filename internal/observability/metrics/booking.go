package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BookingMetrics tracks confirmation decisions and webhook traffic.
type BookingMetrics struct {
	decisions *prometheus.CounterVec
	webhooks  *prometheus.CounterVec
}

func NewBookingMetrics() *BookingMetrics {
	return &BookingMetrics{
		decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskhive",
			Subsystem: "booking",
			Name:      "confirmation_decisions_total",
			Help:      "Capacity guard outcomes by decision.",
		}, []string{"outcome"}),
		webhooks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskhive",
			Subsystem: "payment",
			Name:      "webhook_events_total",
			Help:      "Inbound payment webhook events by provider and result.",
		}, []string{"provider", "result"}),
	}
}

func (m *BookingMetrics) RecordDecision(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) RecordWebhook(provider, result string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(provider, result).Inc()
}
