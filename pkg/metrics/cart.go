package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart mutations and checkout outcomes.
type CartMetrics struct {
	mutations   *prometheus.CounterVec
	submissions *prometheus.CounterVec
	submitTime  prometheus.Histogram
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation.",
	}, []string{"op"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions_total",
		Help: "Checkout submissions by outcome.",
	}, []string{"outcome"})
	submitTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_submission_duration_seconds",
		Help:    "Duration of order submission calls in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(mutations, submissions, submitTime)
	return &CartMetrics{
		mutations:   mutations,
		submissions: submissions,
		submitTime:  submitTime,
	}
}

// IncMutation counts one cart mutation of the named operation.
func (c *CartMetrics) IncMutation(op string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncSubmission counts one checkout submission outcome ("placed" or "failed").
func (c *CartMetrics) IncSubmission(outcome string) {
	if c == nil || c.submissions == nil {
		return
	}
	c.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveSubmission records the duration of an order submission call.
func (c *CartMetrics) ObserveSubmission(duration time.Duration) {
	if c == nil || c.submitTime == nil {
		return
	}
	c.submitTime.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
