package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPaymentMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPaymentMetrics(reg)

	metrics.IncInitiated("phonepe")
	metrics.IncInitiated("phonepe")
	metrics.IncCallback("phonepe", "success")
	metrics.IncChecksumRejected("razorpay")
	metrics.IncRateLimited()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "payment_initiated_total", "provider", "phonepe"); err != nil {
		t.Fatalf("fetch initiated: %v", err)
	} else if got != 2 {
		t.Fatalf("expected initiated=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "payment_callback_total", "result", "success"); err != nil {
		t.Fatalf("fetch callback: %v", err)
	} else if got != 1 {
		t.Fatalf("expected callback=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "payment_checksum_rejected_total", "provider", "razorpay"); err != nil {
		t.Fatalf("fetch checksum rejected: %v", err)
	} else if got != 1 {
		t.Fatalf("expected checksum rejected=1, got %f", got)
	}

	if mf := findMetricFamily(mfs, "payment_rate_limited_total"); mf == nil {
		t.Fatal("rate limited counter not exported")
	} else if mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected rate limited=1, got %f", mf.GetMetric()[0].GetCounter().GetValue())
	}
}

func TestPaymentMetricsNilRegisterer(t *testing.T) {
	metrics := NewPaymentMetrics(nil)
	// all recorders must be safe no-ops
	metrics.IncInitiated("phonepe")
	metrics.IncCallback("phonepe", "failed")
	metrics.IncChecksumRejected("paytm")
	metrics.IncRateLimited()
}
