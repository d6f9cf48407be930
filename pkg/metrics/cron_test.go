package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCronJobMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSuccess("subscription_reminder")
	m.IncSuccess("subscription_reminder")
	m.IncFailure("subscription_reminder")
	m.ObserveDuration("subscription_reminder", 150*time.Millisecond)

	if got := testutil.ToFloat64(m.success.WithLabelValues("subscription_reminder")); got != 2 {
		t.Fatalf("success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("subscription_reminder")); got != 1 {
		t.Fatalf("failure = %v, want 1", got)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.IncSuccess("job")
	m.IncFailure("job")
	m.ObserveDuration("job", time.Second)

	empty := NewCronJobMetrics(nil)
	empty.IncSuccess("")
}

func TestWebhookMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.IncEvent("invoice.paid", "applied")
	m.IncEvent("invoice.paid", "applied")
	m.IncEvent("", "")

	if got := testutil.ToFloat64(m.events.WithLabelValues("invoice.paid", "applied")); got != 2 {
		t.Fatalf("events = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("unknown", "unknown")); got != 1 {
		t.Fatalf("unknown events = %v, want 1", got)
	}
}
