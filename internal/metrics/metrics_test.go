package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SoftFailure("tax")
	m.SoftFailure("tax")
	m.SoftFailure("payment_customer")
	m.FloorExclusion("coupon", 2)
	m.FloorExclusion("sale", 0)
	m.OrderCreated()
	m.PaymentConfirmed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.softFailures.WithLabelValues("tax")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.softFailures.WithLabelValues("payment_customer")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.floorExclusions.WithLabelValues("coupon")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentsConfirmed))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.intentFailures))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SoftFailure("tax")
		m.FloorExclusion("coupon", 1)
		m.OrderCreated()
		m.PaymentConfirmed()
		m.IntentFailure()
	})
}
