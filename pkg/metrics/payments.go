package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records gateway traffic for dashboards and alerting.
type PaymentMetrics struct {
	initiated        *prometheus.CounterVec
	callbacks        *prometheus.CounterVec
	checksumRejected *prometheus.CounterVec
	rateLimited      prometheus.Counter
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	initiated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_initiated_total",
		Help: "Payment initiations by provider.",
	}, []string{"provider"})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callback_total",
		Help: "Gateway callbacks by provider and mapped result.",
	}, []string{"provider", "result"})
	checksumRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_checksum_rejected_total",
		Help: "Callbacks rejected due to signature mismatch.",
	}, []string{"provider"})
	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_rate_limited_total",
		Help: "Payment initiations rejected by the rate limiter.",
	})
	reg.MustRegister(initiated, callbacks, checksumRejected, rateLimited)
	return &PaymentMetrics{
		initiated:        initiated,
		callbacks:        callbacks,
		checksumRejected: checksumRejected,
		rateLimited:      rateLimited,
	}
}

// IncInitiated counts one initiation for the provider.
func (p *PaymentMetrics) IncInitiated(provider string) {
	if p == nil || p.initiated == nil {
		return
	}
	p.initiated.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncCallback counts a processed callback with its mapped result.
func (p *PaymentMetrics) IncCallback(provider, result string) {
	if p == nil || p.callbacks == nil {
		return
	}
	p.callbacks.WithLabelValues(normalizeLabel(provider), normalizeLabel(result)).Inc()
}

// IncChecksumRejected counts a callback dropped for a bad signature.
func (p *PaymentMetrics) IncChecksumRejected(provider string) {
	if p == nil || p.checksumRejected == nil {
		return
	}
	p.checksumRejected.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncRateLimited counts an initiation rejected by the rate limiter.
func (p *PaymentMetrics) IncRateLimited() {
	if p == nil || p.rateLimited == nil {
		return
	}
	p.rateLimited.Inc()
}
