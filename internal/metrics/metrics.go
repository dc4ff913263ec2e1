package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "checkout"

// Metrics holds the checkout counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	softFailures      *prometheus.CounterVec
	floorExclusions   *prometheus.CounterVec
	ordersCreated     prometheus.Counter
	paymentsConfirmed prometheus.Counter
	intentFailures    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		softFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "soft_failures_total",
			Help:      "Upstream failures absorbed by the checkout, by stage.",
		}, []string{"stage"}),
		floorExclusions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commission_floor_exclusions_total",
			Help:      "Line items excluded from a discount to keep the commission floor.",
		}, []string{"source_type"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Pending orders written.",
		}),
		paymentsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_confirmed_total",
			Help:      "Orders moved to paid.",
		}),
		intentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_intent_failures_total",
			Help:      "Payment intent creations that failed.",
		}),
	}
	reg.MustRegister(m.softFailures, m.floorExclusions, m.ordersCreated, m.paymentsConfirmed, m.intentFailures)
	return m
}

func (m *Metrics) SoftFailure(stage string) {
	if m == nil {
		return
	}
	m.softFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) FloorExclusion(sourceType string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.floorExclusions.WithLabelValues(sourceType).Add(float64(n))
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) PaymentConfirmed() {
	if m == nil {
		return
	}
	m.paymentsConfirmed.Inc()
}

func (m *Metrics) IntentFailure() {
	if m == nil {
		return
	}
	m.intentFailures.Inc()
}
