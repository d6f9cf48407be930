package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts billing webhook deliveries by type and outcome.
type WebhookMetrics struct {
	events *prometheus.CounterVec
}

// NewWebhookMetrics registers webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Billing webhook events processed, by event type and outcome.",
	}, []string{"type", "outcome"})
	reg.MustRegister(events)
	return &WebhookMetrics{events: events}
}

// IncEvent counts one processed delivery.
func (w *WebhookMetrics) IncEvent(eventType, outcome string) {
	if w == nil || w.events == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	w.events.WithLabelValues(eventType, outcome).Inc()
}
